// Package ops exposes the h3array operations by name so the HTTP service, the
// job worker and the CLI run them the same way.
package ops

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

var (
	ErrUnknownOp     = errors.New("unknown op")
	ErrBadParam      = errors.New("bad parameter")
	ErrMissingColumn = errors.New("missing input column")
)

// Handler runs one op over an input record. The returned record is owned by
// the caller.
type Handler func(ctx context.Context, e *h3array.Engine, in arrow.Record, p Params) (arrow.Record, error)

type Op struct {
	Name string
	Doc  string
	// Inputs lists the columns the op reads.
	Inputs []string
	// Cacheable ops are pure functions of input and params.
	Cacheable bool
	Handler   Handler
}

var reg = map[string]Op{}

func Register(op Op) {
	if op.Name == "" || op.Handler == nil {
		panic("ops: Register needs a name and a handler")
	}
	if _, dup := reg[op.Name]; dup {
		panic(fmt.Sprintf("ops: %q registered twice", op.Name))
	}
	reg[op.Name] = op
}

func Lookup(name string) (Op, error) {
	op, ok := reg[name]
	if !ok {
		return Op{}, fmt.Errorf("%w: %q", ErrUnknownOp, name)
	}
	return op, nil
}

// List returns all ops sorted by name.
func List() []Op {
	out := make([]Op, 0, len(reg))
	for _, op := range reg {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run looks up name and applies it to in.
func Run(ctx context.Context, e *h3array.Engine, name string, in arrow.Record, p Params) (arrow.Record, error) {
	op, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	out, err := op.Handler(ctx, e, in, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// IsUserError reports errors caused by the request rather than the service.
func IsUserError(err error) bool {
	return errors.Is(err, ErrBadParam) || errors.Is(err, ErrMissingColumn) || h3array.IsUserError(err)
}

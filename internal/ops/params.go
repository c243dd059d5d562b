package ops

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Params are the string-typed op parameters of a request or job.
type Params map[string]string

// ParamsFromQuery takes the first value of every query key.
func ParamsFromQuery(q url.Values) Params {
	p := make(Params, len(q))
	for k, v := range q {
		if len(v) > 0 {
			p[k] = v[0]
		}
	}
	return p
}

// Canonical renders params as sorted, query-escaped k=v pairs joined by '&'.
// Distinct param sets never share a rendering.
func (p Params) Canonical() string {
	q := make(url.Values, len(p))
	for k, v := range p {
		q.Set(k, v)
	}
	return q.Encode()
}

func (p Params) String(name, def string) string {
	if v, ok := p[name]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p Params) Has(name string) bool {
	v, ok := p[name]
	return ok && strings.TrimSpace(v) != ""
}

func (p Params) Int(name string, def int) (int, error) {
	v, ok := p[name]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w %s=%q: not an integer", ErrBadParam, name, v)
	}
	return n, nil
}

func (p Params) Bool(name string, def bool) (bool, error) {
	v, ok := p[name]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%w %s=%q: not a boolean", ErrBadParam, name, v)
	}
	return b, nil
}

func (p Params) Float(name string, def float64) (float64, error) {
	v, ok := p[name]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w %s=%q: not a number", ErrBadParam, name, v)
	}
	return f, nil
}

// Floats parses a comma separated list of exactly n numbers.
func (p Params) Floats(name string, n int) ([]float64, error) {
	v, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s is required", ErrBadParam, name)
	}
	parts := strings.Split(v, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%w %s=%q: want %d numbers", ErrBadParam, name, v, n)
	}
	out := make([]float64, n)
	for i, s := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%w %s=%q: not a number at %d", ErrBadParam, name, v, i)
		}
		out[i] = f
	}
	return out, nil
}

// Resolution reads the required resolution parameter res.
func (p Params) Resolution() (int, error) {
	if !p.Has("res") {
		return 0, fmt.Errorf("%w: res is required", ErrBadParam)
	}
	return p.Int("res", 0)
}

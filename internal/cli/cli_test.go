package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/mohammed-shakir/h3-columnar/internal/core/arrowipc"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

func execute(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(bytes.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOpsListsBuiltins(t *testing.T) {
	out, err := execute(t, nil, "ops")
	if err != nil {
		t.Fatalf("ops: %v", err)
	}
	for _, name := range []string{"grid_disk", "wkb_to_cells", "raster_to_cells"} {
		if !strings.Contains(out, name) {
			t.Fatalf("ops output missing %s:\n%s", name, out)
		}
	}
}

func TestInvalidFormat(t *testing.T) {
	if _, err := execute(t, nil, "--format", "xml", "ops"); err == nil {
		t.Fatalf("expected an error for --format xml")
	}
}

func TestParse(t *testing.T) {
	out, err := execute(t, nil, "parse", "85283473fffffff")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("want header and one row, got:\n%s", out)
	}
	if !strings.Contains(lines[1], "85283473fffffff") || !strings.Contains(lines[1], " 5 ") {
		t.Fatalf("row should carry the cell and resolution 5: %q", lines[1])
	}
	if _, err := execute(t, nil, "parse", "zzz"); err == nil {
		t.Fatalf("expected an error for an unparsable cell")
	}
}

func TestDiskJSON(t *testing.T) {
	out, err := execute(t, nil, "--format", "json", "disk", "-k", "1", "85283473fffffff")
	if err != nil {
		t.Fatalf("disk: %v", err)
	}
	if n := strings.Count(out, "\n"); n != 7 {
		t.Fatalf("want 7 json rows, got %d:\n%s", n, out)
	}
}

func TestRunStdinToFile(t *testing.T) {
	e := h3array.New()
	arr := e.NewUint64([]uint64{0x85283473fffffff}, nil)
	defer arr.Release()
	rec := h3array.NewTable([]string{h3array.ColCell}, []arrow.Array{arr})
	defer rec.Release()
	in, err := arrowipc.Encode(rec, memory.DefaultAllocator)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "disk.arrow")
	if _, err := execute(t, in, "run", "grid_disk", "--param", "k=1", "--param", "flatten=true", "--file", "--out", path); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := arrowipc.Decode(data, memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("decode output file: %v", err)
	}
	defer got.Release()
	if got.NumRows() != 7 {
		t.Fatalf("rows=%d want 7", got.NumRows())
	}
}

func TestRunErrors(t *testing.T) {
	if _, err := execute(t, nil, "run", "grid_disk", "--param", "novalue"); err == nil {
		t.Fatalf("expected an error for a param without =")
	}
	if _, err := execute(t, nil, "run", "no_such_op"); err == nil {
		t.Fatalf("expected an error for an unknown op")
	}
}

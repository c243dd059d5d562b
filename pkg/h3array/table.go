package h3array

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Column names of returned tables.
const (
	ColCell       = "cell"
	ColK          = "k"
	ColCellBefore = "cell_before"
	ColCellAfter  = "cell_after"
	ColAnchor     = "anchor"
	ColI          = "i"
	ColJ          = "j"
	ColLat        = "lat"
	ColLng        = "lng"
	ColMinX       = "minx"
	ColMinY       = "miny"
	ColMaxX       = "maxx"
	ColMaxY       = "maxy"
	ColValue      = "value"
	ColIsValid    = "is_valid"
	ColResolution = "resolution"
	ColDisk       = "disk"
	ColWKB        = "wkb"
	ColString     = "string"
	ColVertex     = "vertex"
	ColEdge       = "directed_edge"
	ColGeoJSON    = "geojson"
	ColMask       = "mask"
)

// NewTable assembles a record from named columns of equal length. The record
// takes its own references; callers still release the columns they built.
func NewTable(names []string, cols []arrow.Array) arrow.Record {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: names[i], Type: c.DataType(), Nullable: true}
	}
	var rows int64
	if len(cols) > 0 {
		rows = int64(cols[0].Len())
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rows)
}

// tableOwning builds a record and drops the caller's references to cols.
func tableOwning(names []string, cols ...arrow.Array) arrow.Record {
	rec := NewTable(names, cols)
	for _, c := range cols {
		c.Release()
	}
	return rec
}

// list builders

func (e *Engine) NewUint64List(lists [][]uint64, valid []bool) *array.List {
	lb := array.NewListBuilder(e.mem, arrow.PrimitiveTypes.Uint64)
	defer lb.Release()
	vb := lb.ValueBuilder().(*array.Uint64Builder)
	lb.Reserve(len(lists))
	for i, l := range lists {
		if valid != nil && !valid[i] {
			lb.AppendNull()
			continue
		}
		lb.Append(true)
		vb.AppendValues(l, nil)
	}
	return lb.NewListArray()
}

func (e *Engine) newUint32List(lists [][]uint32, valid []bool) *array.List {
	lb := array.NewListBuilder(e.mem, arrow.PrimitiveTypes.Uint32)
	defer lb.Release()
	vb := lb.ValueBuilder().(*array.Uint32Builder)
	lb.Reserve(len(lists))
	for i, l := range lists {
		if valid != nil && !valid[i] {
			lb.AppendNull()
			continue
		}
		lb.Append(true)
		vb.AppendValues(l, nil)
	}
	return lb.NewListArray()
}

func (e *Engine) NewUint32(vals []uint32) *array.Uint32 {
	b := array.NewUint32Builder(e.mem)
	defer b.Release()
	b.AppendValues(vals, nil)
	return b.NewUint32Array()
}

func (e *Engine) NewFloat64(vals []float64, valid []bool) *array.Float64 {
	b := array.NewFloat64Builder(e.mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewFloat64Array()
}

func (e *Engine) newInt32(vals []int32, valid []bool) *array.Int32 {
	b := array.NewInt32Builder(e.mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewInt32Array()
}

func flatten64(lists [][]uint64) []uint64 {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]uint64, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func flatten32(lists [][]uint32) []uint32 {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]uint32, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

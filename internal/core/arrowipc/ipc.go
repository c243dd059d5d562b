// Package arrowipc reads and writes the Arrow IPC payloads exchanged by the
// HTTP service, the job worker and the CLI.
package arrowipc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// StreamContentType is the media type of an Arrow IPC stream.
const StreamContentType = "application/vnd.apache.arrow.stream"

var ErrMalformed = errors.New("malformed arrow ipc payload")

var fileMagic = []byte("ARROW1")

// Decode reads an IPC stream or an IPC file (detected by its magic) into a
// single record. Multiple batches are concatenated. An empty payload gives
// nil and no error.
func Decode(data []byte, mem memory.Allocator) (arrow.Record, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if bytes.HasPrefix(data, fileMagic) {
		return decodeFile(data, mem)
	}
	return ReadStream(bytes.NewReader(data), mem)
}

// ReadStream reads every batch of an IPC stream into one record.
func ReadStream(r io.Reader, mem memory.Allocator) (arrow.Record, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	defer rdr.Release()

	var batches []arrow.Record
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()
	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		batches = append(batches, rec)
	}
	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return concat(rdr.Schema(), batches, mem)
}

func decodeFile(data []byte, mem memory.Allocator) (arrow.Record, error) {
	f, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	defer f.Close()

	batches := make([]arrow.Record, 0, f.NumRecords())
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()
	for i := 0; i < f.NumRecords(); i++ {
		rec, err := f.Record(i)
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d: %w", ErrMalformed, i, err)
		}
		rec.Retain()
		batches = append(batches, rec)
	}
	return concat(f.Schema(), batches, mem)
}

func concat(schema *arrow.Schema, batches []arrow.Record, mem memory.Allocator) (arrow.Record, error) {
	switch len(batches) {
	case 0:
		cols := make([]arrow.Array, schema.NumFields())
		for i, f := range schema.Fields() {
			cols[i] = array.MakeArrayOfNull(mem, f.Type, 0)
			defer cols[i].Release()
		}
		return array.NewRecord(schema, cols, 0), nil
	case 1:
		batches[0].Retain()
		return batches[0], nil
	}

	var rows int64
	for _, b := range batches {
		rows += b.NumRows()
	}
	cols := make([]arrow.Array, schema.NumFields())
	for i := range cols {
		parts := make([]arrow.Array, len(batches))
		for j, b := range batches {
			parts[j] = b.Column(i)
		}
		col, err := array.Concatenate(parts, mem)
		if err != nil {
			return nil, fmt.Errorf("concatenate column %q: %w", schema.Field(i).Name, err)
		}
		defer col.Release()
		cols[i] = col
	}
	return array.NewRecord(schema, cols, rows), nil
}

// WriteStream writes rec as a one batch IPC stream.
func WriteStream(w io.Writer, rec arrow.Record, mem memory.Allocator) error {
	wr := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := wr.Write(rec); err != nil {
		_ = wr.Close()
		return fmt.Errorf("write arrow batch: %w", err)
	}
	if err := wr.Close(); err != nil {
		return fmt.Errorf("close arrow stream: %w", err)
	}
	return nil
}

// WriteFile writes rec in the random access IPC file format.
func WriteFile(w io.Writer, rec arrow.Record, mem memory.Allocator) error {
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("open arrow file: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("write arrow batch: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close arrow file: %w", err)
	}
	return nil
}

// Encode returns rec as IPC stream bytes.
func Encode(rec arrow.Record, mem memory.Allocator) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteStream(&buf, rec, mem); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

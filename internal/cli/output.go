package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// printRecord writes rec as an aligned table or as JSON rows.
func printRecord(w io.Writer, rec arrow.Record, format string) error {
	if format == "json" {
		return array.RecordToJSON(rec, w)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, f := range rec.Schema().Fields() {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, f.Name)
	}
	fmt.Fprintln(tw)
	for row := 0; row < int(rec.NumRows()); row++ {
		for i, col := range rec.Columns() {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, col.ValueStr(row))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// Package export writes a connection report in structured formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"schem-tracer/internal/netlist"

	"github.com/gocarina/gocsv"
)

// Format is an output format name.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(s), ".")); f {
	case FormatText, FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	case "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json, csv or xlsx)", s)
}

// Write encodes the report in the given format.
func Write(w io.Writer, r *netlist.Report, f Format) error {
	switch f {
	case FormatText:
		return r.Format(w)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	}
	return fmt.Errorf("unknown output format %q", f)
}

// WriteJSON writes the full report as indented JSON.
func WriteJSON(w io.Writer, r *netlist.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// memberRow is one CSV line: a net member or an orphan.
type memberRow struct {
	Net         string  `csv:"net"`
	NetName     string  `csv:"net_name"`
	Kind        string  `csv:"kind"`
	ID          string  `csv:"id"`
	X           float64 `csv:"x"`
	Y           float64 `csv:"y"`
	SingleEnded bool    `csv:"single_ended"`
	Status      string  `csv:"status"`
}

func memberRows(r *netlist.Report) []*memberRow {
	var rows []*memberRow
	for _, n := range r.Nets {
		for _, m := range n.Members {
			rows = append(rows, &memberRow{
				Net:         n.ID,
				NetName:     n.Name,
				Kind:        m.Type.String(),
				ID:          m.ID,
				X:           m.Position.X,
				Y:           m.Position.Y,
				SingleEnded: n.SingleEnded,
				Status:      status(m),
			})
		}
	}
	for _, m := range r.Orphans {
		rows = append(rows, &memberRow{
			Kind:   m.Type.String(),
			ID:     m.ID,
			X:      m.Position.X,
			Y:      m.Position.Y,
			Status: "orphan",
		})
	}
	return rows
}

func status(m netlist.Member) string {
	if m.Partial {
		return "partial"
	}
	return "ok"
}

// WriteCSV writes one row per net member followed by one row per orphan.
func WriteCSV(w io.Writer, r *netlist.Report) error {
	rows := memberRows(r)
	if len(rows) == 0 {
		// gocsv writes no header for an empty slice
		_, err := io.WriteString(w, "net,net_name,kind,id,x,y,single_ended,status\n")
		return err
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

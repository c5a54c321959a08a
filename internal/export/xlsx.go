package export

import (
	"fmt"
	"io"

	"schem-tracer/internal/netlist"

	"github.com/xuri/excelize/v2"
)

const (
	sheetNets      = "Nets"
	sheetTerminals = "Terminals"
	sheetReview    = "Review"
)

// WriteXLSX writes a workbook with the nets, the terminal table, and the
// manual review list on separate sheets.
func WriteXLSX(w io.Writer, r *netlist.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetNets); err != nil {
		return err
	}
	for _, name := range []string{sheetTerminals, sheetReview} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	nets := [][]any{{"Net", "Name", "Kind", "ID", "X", "Y", "Single-ended", "Status"}}
	for _, row := range memberRows(r) {
		nets = append(nets, []any{row.Net, row.NetName, row.Kind, row.ID, row.X, row.Y, row.SingleEnded, row.Status})
	}

	terms := [][]any{{"Full ID", "Group", "Label", "Label source", "Group source", "X", "Y", "Radius", "CV"}}
	for _, t := range r.Terminals {
		terms = append(terms, []any{
			t.FullID(), t.Group, t.Label, t.LabelSource.String(), t.GroupSource.String(),
			t.Center.X, t.Center.Y, t.Radius, t.CV,
		})
	}

	review := [][]any{{"Issue", "Kind", "ID", "X", "Y", "Detail"}}
	for _, m := range r.Unlabeled {
		review = append(review, []any{"unlabeled", m.Type.String(), m.ID, m.Position.X, m.Position.Y, ""})
	}
	for _, m := range r.UnresolvedGroups {
		review = append(review, []any{"no group", m.Type.String(), m.ID, m.Position.X, m.Position.Y, ""})
	}
	for _, c := range r.LabelConflicts {
		review = append(review, []any{"text mismatch", "Terminal", c.Terminal, "", "",
			fmt.Sprintf("embedded %q, OCR %q", c.Embedded, c.OCR)})
	}
	for _, fs := range r.ForkSuspects {
		review = append(review, []any{"possible fork", "Net", fmt.Sprint(fs.Nets), "", "", ""})
	}

	for sheet, rows := range map[string][][]any{sheetNets: nets, sheetTerminals: terms, sheetReview: review} {
		if err := writeRows(f, sheet, rows); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// Package export renders a patient aggregate to spreadsheet form for
// printing and chart review.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/wardrounds/rounds-cli/internal/model"
)

// WriteLabBook writes an xlsx workbook with the patient's lab grid and active
// medication list.
func WriteLabBook(w io.Writer, p *model.Patient) error {
	f := xlsx.NewFile()

	if err := addLabSheet(f, p); err != nil {
		return err
	}
	if err := addMedicationSheet(f, p); err != nil {
		return err
	}

	return eris.Wrap(f.Write(w), "export: write workbook")
}

// addLabSheet lays labs out as the ward flowsheet does: one row per series,
// one column per observation date, oldest date first.
func addLabSheet(f *xlsx.File, p *model.Patient) error {
	sheet, err := f.AddSheet("Labs")
	if err != nil {
		return eris.Wrap(err, "export: add labs sheet")
	}

	dates := collectDates(p)

	header := sheet.AddRow()
	header.AddCell().SetString("Test")
	header.AddCell().SetString("Unit")
	for _, d := range dates {
		header.AddCell().SetString(d)
	}

	for _, key := range sortedSeriesKeys(p) {
		series := p.Labs[key]
		row := sheet.AddRow()
		row.AddCell().SetString(series.Label)
		row.AddCell().SetString(series.Unit)

		byDate := make(map[string]model.TimedValue, len(series.Points))
		for _, pt := range series.Points {
			if pt.Placeholder() {
				continue
			}
			byDate[pt.Date] = pt
		}
		for _, d := range dates {
			cell := row.AddCell()
			if pt, ok := byDate[d]; ok {
				cell.SetString(fmt.Sprint(pt.Value))
			}
		}
	}

	return nil
}

func addMedicationSheet(f *xlsx.File, p *model.Patient) error {
	sheet, err := f.AddSheet("Medications")
	if err != nil {
		return eris.Wrap(err, "export: add medications sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Name", "Dose", "Route", "Frequency", "Started", "Active"} {
		header.AddCell().SetString(h)
	}

	for _, m := range p.Medications {
		row := sheet.AddRow()
		row.AddCell().SetString(m.Name)
		row.AddCell().SetString(m.Dose)
		row.AddCell().SetString(m.Route)
		row.AddCell().SetString(m.Frequency)
		row.AddCell().SetString(m.StartDate)
		if m.IsActive {
			row.AddCell().SetString("yes")
		} else {
			row.AddCell().SetString("no")
		}
	}

	return nil
}

func collectDates(p *model.Patient) []string {
	seen := make(map[string]bool)
	for _, series := range p.Labs {
		for _, pt := range series.Points {
			seen[pt.Date] = true
		}
	}
	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	// Canonical date strings sort chronologically as text.
	sort.Strings(dates)
	return dates
}

func sortedSeriesKeys(p *model.Patient) []string {
	keys := make([]string, 0, len(p.Labs))
	for k := range p.Labs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

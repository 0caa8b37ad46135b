package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/wardrounds/rounds-cli/internal/model"
)

func exportedSheet(t *testing.T, p *model.Patient, name string) *xlsx.Sheet {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, WriteLabBook(&buf, p))

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[name]
	require.True(t, ok, "sheet %s missing", name)
	return sheet
}

func TestWriteLabBook_Grid(t *testing.T) {
	p := &model.Patient{
		HN: "660012345",
		Labs: map[string]*model.LabSeries{
			"creatinine": {
				Name: "creatinine", Label: "Creatinine", Unit: "mg/dL",
				Points: []model.TimedValue{
					{Date: "2024-06-15 08:00", Value: 1.2},
					{Date: "2024-06-14 09:00", Value: 1.4},
				},
			},
			"wbc": {
				Name: "wbc", Label: "WBC",
				Points: []model.TimedValue{
					{Date: "2024-06-14 09:00", Value: 8.1},
					{Date: "2024-06-15 08:00"}, // placeholder
				},
			},
		},
	}

	sheet := exportedSheet(t, p, "Labs")
	require.GreaterOrEqual(t, len(sheet.Rows), 3)

	header := sheet.Rows[0]
	require.Len(t, header.Cells, 4)
	assert.Equal(t, "Test", header.Cells[0].String())
	// Dates ordered oldest first.
	assert.Equal(t, "2024-06-14 09:00", header.Cells[2].String())
	assert.Equal(t, "2024-06-15 08:00", header.Cells[3].String())

	// Rows sorted by series key: creatinine before wbc.
	cr := sheet.Rows[1]
	assert.Equal(t, "Creatinine", cr.Cells[0].String())
	assert.Equal(t, "mg/dL", cr.Cells[1].String())
	assert.Equal(t, "1.4", cr.Cells[2].String())
	assert.Equal(t, "1.2", cr.Cells[3].String())

	wbc := sheet.Rows[2]
	assert.Equal(t, "WBC", wbc.Cells[0].String())
	assert.Equal(t, "8.1", wbc.Cells[2].String())
	// Placeholder cells stay empty.
	if len(wbc.Cells) > 3 {
		assert.Empty(t, wbc.Cells[3].String())
	}
}

func TestWriteLabBook_Medications(t *testing.T) {
	p := &model.Patient{
		HN: "660012345",
		Medications: []model.MedicationRecord{
			{Name: "ceftriaxone", Dose: "2 g", Route: "IV", Frequency: "OD", IsActive: true},
			{Name: "ibuprofen", Dose: "400 mg", Route: "PO", Frequency: "tid", IsActive: false},
		},
	}

	sheet := exportedSheet(t, p, "Medications")
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "ceftriaxone", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "yes", sheet.Rows[1].Cells[5].String())
	assert.Equal(t, "no", sheet.Rows[2].Cells[5].String())
}

func TestWriteLabBook_EmptyPatient(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLabBook(&buf, &model.Patient{HN: "660000000"}))
	assert.NotZero(t, buf.Len())
}

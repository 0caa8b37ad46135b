package reconcile

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wardrounds/rounds-cli/internal/extract"
	"github.com/wardrounds/rounds-cli/internal/model"
)

// ErrNoSuchRecord signals an update whose target id does not exist in the
// aggregate. The operation is a no-op; the caller surfaces it, nothing is
// inserted silently.
var ErrNoSuchRecord = eris.New("reconcile: no record with that id")

// labConfig holds per-call lab reconciliation options.
type labConfig struct {
	gridFill bool
}

// LabOption configures Labs.
type LabOption func(*labConfig)

// WithGridFill makes Labs synthesize explicit placeholder points for every
// (test, date) combination observed in the batch but missing from the
// results, so a tabular view renders a complete grid. Off by default.
func WithGridFill() LabOption {
	return func(c *labConfig) { c.gridFill = true }
}

// Labs appends extracted lab results to the aggregate's series. Each result
// lands on the series its test name routes to; a batch holding the same test
// at several dates becomes several points, one per (test, date) pair. Points
// already present — same series, date, and value — are skipped, so merging an
// unchanged batch twice changes nothing.
func Labs(p *model.Patient, results []extract.LabResult, opts ...LabOption) *model.Patient {
	var cfg labConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	out := p.Clone()

	type cell struct{ key, date string }
	seen := make(map[cell]bool)
	keyLabel := make(map[string]string)
	dates := make(map[string]bool)

	added, skipped := 0, 0
	for _, r := range results {
		key, label := SeriesKey(r.TestName)
		keyLabel[key] = label
		dates[r.DateTime] = true
		seen[cell{key, r.DateTime}] = true

		series := ensureSeries(out, key, label, r.Unit)
		if hasPoint(series, r.DateTime, r.Value) {
			skipped++
			continue
		}
		point := model.TimedValue{
			Date:       r.DateTime,
			Value:      r.Value,
			SubResults: r.SubResults,
		}
		// A real value fills the cell a grid-fill placeholder was holding.
		if i := placeholderAt(series, r.DateTime); i >= 0 {
			series.Points[i] = point
		} else {
			series.Points = append(series.Points, point)
		}
		added++
	}

	if cfg.gridFill {
		for key, label := range keyLabel {
			for date := range dates {
				if seen[cell{key, date}] {
					continue
				}
				series := ensureSeries(out, key, label, "")
				if hasDate(series, date) {
					continue
				}
				series.Points = append(series.Points, model.TimedValue{Date: date})
			}
		}
	}

	zap.L().Info("lab batch reconciled",
		zap.String("patient", p.ID),
		zap.Int("added", added),
		zap.Int("skipped", skipped),
		zap.Bool("grid_fill", cfg.gridFill))

	return out
}

// placeholderAt returns the index of a placeholder on this date, or -1.
func placeholderAt(s *model.LabSeries, date string) int {
	for i, pt := range s.Points {
		if pt.Date == date && pt.Placeholder() {
			return i
		}
	}
	return -1
}

// hasPoint reports whether the series already holds a point with this exact
// date and value. Placeholders don't count as values.
func hasPoint(s *model.LabSeries, date string, value any) bool {
	for _, pt := range s.Points {
		if pt.Date == date && !pt.Placeholder() && fmt.Sprint(pt.Value) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

func hasDate(s *model.LabSeries, date string) bool {
	for _, pt := range s.Points {
		if pt.Date == date {
			return true
		}
	}
	return false
}

// Medications inserts extracted medication items as new records with freshly
// assigned ids. An item exactly matching an existing record (name, dose,
// route, frequency, start date) is skipped, keeping the merge idempotent.
func Medications(p *model.Patient, items []extract.MedicationItem) *model.Patient {
	out := p.Clone()
	for _, it := range items {
		if medicationExists(out, it) {
			continue
		}
		out.Medications = append(out.Medications, model.MedicationRecord{
			ID:        uuid.New().String(),
			Name:      it.Name,
			Dose:      it.Dose,
			Route:     it.Route,
			Frequency: it.Frequency,
			StartDate: it.StartDate,
			IsActive:  true,
		})
	}
	return out
}

func medicationExists(p *model.Patient, it extract.MedicationItem) bool {
	for _, m := range p.Medications {
		if m.Name == it.Name && m.Dose == it.Dose && m.Route == it.Route &&
			m.Frequency == it.Frequency && m.StartDate == it.StartDate {
			return true
		}
	}
	return false
}

// UpdateMedication replaces the record matching med.ID. Toggling IsActive
// goes through here; records are never deleted. Returns ErrNoSuchRecord and
// the unchanged aggregate when the id matches nothing.
func UpdateMedication(p *model.Patient, med model.MedicationRecord) (*model.Patient, error) {
	out := p.Clone()
	for i, m := range out.Medications {
		if m.ID == med.ID {
			out.Medications[i] = med
			return out, nil
		}
	}
	return p, ErrNoSuchRecord
}

// Problems pushes the extracted problem list as a new snapshot onto the
// versioned history. Entries get fresh ids; unrecognized statuses default to
// active rather than dropping the line.
func Problems(p *model.Patient, items []extract.ProblemItem) *model.Patient {
	out := p.Clone()
	entries := make([]model.ProblemEntry, 0, len(items))
	for _, it := range items {
		status := model.ProblemStatus(it.Status)
		if !model.ValidProblemStatus(status) {
			status = model.ProblemActive
		}
		entries = append(entries, model.ProblemEntry{
			ID:      uuid.New().String(),
			Problem: it.Problem,
			Status:  status,
			Plan:    it.Plan,
			System:  it.System,
		})
	}
	out.Problems = out.Problems.Push(entries)
	return out
}

// PushProblems records a manually edited problem list as a new snapshot.
func PushProblems(p *model.Patient, entries []model.ProblemEntry) *model.Patient {
	out := p.Clone()
	out.Problems = out.Problems.Push(entries)
	return out
}

// Cultures inserts extracted cultures with fresh ids, skipping exact
// duplicates. Status defaults to pending.
func Cultures(p *model.Patient, items []extract.CultureItem) *model.Patient {
	out := p.Clone()
	for _, it := range items {
		if cultureExists(out, it) {
			continue
		}
		status := model.StudyStatus(it.Status)
		if status != model.StudyFinal {
			status = model.StudyPending
		}
		out.Cultures = append(out.Cultures, model.CultureResult{
			ID:             uuid.New().String(),
			CollectedDate:  it.CollectedDate,
			Specimen:       it.Specimen,
			Organism:       it.Organism,
			Susceptibility: it.Susceptibility,
			Status:         status,
			Notes:          it.Notes,
		})
	}
	return out
}

func cultureExists(p *model.Patient, it extract.CultureItem) bool {
	for _, c := range p.Cultures {
		if c.CollectedDate == it.CollectedDate && c.Specimen == it.Specimen && c.Organism == it.Organism {
			return true
		}
	}
	return false
}

// UpdateCulture amends a culture in place by id — the Pending → Final path.
// Archived cultures are immutable.
func UpdateCulture(p *model.Patient, culture model.CultureResult) (*model.Patient, error) {
	out := p.Clone()
	for i, c := range out.Cultures {
		if c.ID != culture.ID {
			continue
		}
		if c.Status == model.StudyArchived {
			return p, eris.New("reconcile: archived culture is immutable")
		}
		out.Cultures[i] = culture
		return out, nil
	}
	return p, ErrNoSuchRecord
}

// Imaging inserts extracted studies with fresh ids, skipping exact duplicates.
func Imaging(p *model.Patient, items []extract.ImagingItem) *model.Patient {
	out := p.Clone()
	for _, it := range items {
		if imagingExists(out, it) {
			continue
		}
		out.Imaging = append(out.Imaging, model.ImagingStudy{
			ID:         uuid.New().String(),
			Date:       it.Date,
			Modality:   it.Modality,
			Region:     it.Region,
			Findings:   it.Findings,
			Impression: it.Impression,
			Status:     model.StudyFinal,
		})
	}
	return out
}

func imagingExists(p *model.Patient, it extract.ImagingItem) bool {
	for _, s := range p.Imaging {
		if s.Date == it.Date && s.Modality == it.Modality && s.Findings == it.Findings {
			return true
		}
	}
	return false
}

// UpdateImaging replaces a study by id. Archived studies are immutable.
func UpdateImaging(p *model.Patient, study model.ImagingStudy) (*model.Patient, error) {
	out := p.Clone()
	for i, s := range out.Imaging {
		if s.ID != study.ID {
			continue
		}
		if s.Status == model.StudyArchived {
			return p, eris.New("reconcile: archived study is immutable")
		}
		out.Imaging[i] = study
		return out, nil
	}
	return p, ErrNoSuchRecord
}

// Microscopy inserts extracted microscopy results with fresh ids.
func Microscopy(p *model.Patient, items []extract.MicroscopyItem) *model.Patient {
	out := p.Clone()
	for _, it := range items {
		if microscopyExists(out, it) {
			continue
		}
		out.Microscopy = append(out.Microscopy, model.MicroscopyResult{
			ID:       uuid.New().String(),
			Date:     it.Date,
			Specimen: it.Specimen,
			Findings: it.Findings,
			Status:   model.StudyFinal,
		})
	}
	return out
}

func microscopyExists(p *model.Patient, it extract.MicroscopyItem) bool {
	for _, m := range p.Microscopy {
		if m.Date == it.Date && m.Specimen == it.Specimen && m.Findings == it.Findings {
			return true
		}
	}
	return false
}

// EKG appends an extracted EKG reading.
func EKG(p *model.Patient, fields *extract.EKGFields) *model.Patient {
	if fields == nil {
		return p.Clone()
	}
	out := p.Clone()
	for _, e := range out.EKGs {
		if e.Date == fields.Date && e.Rhythm == fields.Rhythm && e.Interpretation == fields.Interpretation {
			return out
		}
	}
	out.EKGs = append(out.EKGs, model.EKGReading{
		ID:             uuid.New().String(),
		Date:           fields.Date,
		Rhythm:         fields.Rhythm,
		Rate:           fields.Rate,
		Axis:           fields.Axis,
		Intervals:      fields.Intervals,
		Interpretation: fields.Interpretation,
	})
	return out
}

// Appointments inserts extracted follow-up slots, skipping duplicates.
func Appointments(p *model.Patient, items []extract.AppointmentItem) *model.Patient {
	out := p.Clone()
	for _, it := range items {
		if appointmentExists(out, it) {
			continue
		}
		out.Appointments = append(out.Appointments, model.Appointment{
			ID:     uuid.New().String(),
			Date:   it.Date,
			Clinic: it.Clinic,
			Note:   it.Note,
		})
	}
	return out
}

func appointmentExists(p *model.Patient, it extract.AppointmentItem) bool {
	for _, a := range p.Appointments {
		if a.Date == it.Date && a.Clinic == it.Clinic {
			return true
		}
	}
	return false
}

// Admission sets the structured admission note. Fields the extraction left
// empty keep whatever was already documented.
func Admission(p *model.Patient, fields *extract.AdmissionFields) *model.Patient {
	out := p.Clone()
	if fields == nil {
		return out
	}
	note := out.Admission
	if note == nil {
		note = &model.AdmissionNote{}
		out.Admission = note
	}
	setIfPresent(&note.ChiefComplaint, fields.ChiefComplaint)
	setIfPresent(&note.HPI, fields.HPI)
	setIfPresent(&note.PastHistory, fields.PastHistory)
	setIfPresent(&note.HomeMeds, fields.HomeMeds)
	setIfPresent(&note.PhysicalExam, fields.PhysicalExam)
	setIfPresent(&note.Assessment, fields.Assessment)
	setIfPresent(&note.Plan, fields.Plan)
	setIfPresent(&note.AdmitDate, fields.AdmitDate)
	return out
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

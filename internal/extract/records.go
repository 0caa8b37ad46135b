package extract

import "github.com/wardrounds/rounds-cli/internal/model"

// The types below are the pre-reconciliation shapes coming out of coercion.
// Dates are still whatever the document said; the use-case normalizes them
// before handing records to the caller.

// LabResult is one (test, instant, value) observation off a lab sheet.
// Columnar sheets produce one LabResult per (test, date-column) cell.
type LabResult struct {
	TestName   string            `json:"testName"`
	Value      any               `json:"value"`
	Unit       string            `json:"unit,omitempty"`
	DateTime   string            `json:"dateTime,omitempty"`
	SubResults []model.SubResult `json:"subResults,omitempty"`
}

// MedicationItem is one line off a medication administration record.
type MedicationItem struct {
	Name      string `json:"name"`
	Dose      string `json:"dose,omitempty"`
	Route     string `json:"route,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	StartDate string `json:"startDate,omitempty"`
}

// ProblemItem is one line off a written problem list.
type ProblemItem struct {
	Problem string `json:"problem"`
	Status  string `json:"status,omitempty"`
	Plan    string `json:"plan,omitempty"`
	System  string `json:"system,omitempty"`
}

// CultureItem is one culture off a microbiology report.
type CultureItem struct {
	CollectedDate  string `json:"collectedDate,omitempty"`
	Specimen       string `json:"specimen"`
	Organism       string `json:"organism,omitempty"`
	Susceptibility string `json:"susceptibility,omitempty"`
	Status         string `json:"status,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// ImagingItem is one study off a radiology report. Echo reports coerce to the
// same shape with modality fixed to "echo".
type ImagingItem struct {
	Date       string `json:"date,omitempty"`
	Modality   string `json:"modality,omitempty"`
	Region     string `json:"region,omitempty"`
	Findings   string `json:"findings"`
	Impression string `json:"impression,omitempty"`
}

// MicroscopyItem is one microscopy report line.
type MicroscopyItem struct {
	Date     string `json:"date,omitempty"`
	Specimen string `json:"specimen,omitempty"`
	Findings string `json:"findings"`
}

// AppointmentItem is one follow-up slot off an appointment screen.
type AppointmentItem struct {
	Date   string `json:"date"`
	Clinic string `json:"clinic,omitempty"`
	Note   string `json:"note,omitempty"`
}

// HandoffEntry is one patient in a bulk handoff text blob.
type HandoffEntry struct {
	HN        string `json:"hn"`
	Name      string `json:"name,omitempty"`
	Bed       string `json:"bed,omitempty"`
	Diagnosis string `json:"diagnosis,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Tasks     string `json:"tasks,omitempty"`
}

// EKGFields is the object-shaped result of reading one EKG strip.
type EKGFields struct {
	Date           string `json:"date"`
	Rhythm         string `json:"rhythm"`
	Rate           string `json:"rate"`
	Axis           string `json:"axis"`
	Intervals      string `json:"intervals"`
	Interpretation string `json:"interpretation"`
}

// AdmissionFields is the object-shaped result of reading an admission note.
type AdmissionFields struct {
	ChiefComplaint string `json:"chiefComplaint"`
	HPI            string `json:"hpi"`
	PastHistory    string `json:"pastHistory"`
	HomeMeds       string `json:"homeMeds"`
	PhysicalExam   string `json:"physicalExam"`
	Assessment     string `json:"assessment"`
	Plan           string `json:"plan"`
	AdmitDate      string `json:"admitDate"`
}

// DischargeFields is the object-shaped result of drafting a discharge
// summary from the chart.
type DischargeFields struct {
	Diagnosis      string `json:"diagnosis"`
	HospitalCourse string `json:"hospitalCourse"`
	DischargeMeds  string `json:"dischargeMeds"`
	FollowUp       string `json:"followUp"`
	Condition      string `json:"condition"`
}

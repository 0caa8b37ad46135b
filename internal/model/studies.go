package model

// StudyStatus is the lifecycle tag shared by cultures, imaging, and
// microscopy: created on extraction or manual entry, optionally amended
// (Pending → Final), immutable once archived.
type StudyStatus string

const (
	StudyPending  StudyStatus = "pending"
	StudyFinal    StudyStatus = "final"
	StudyArchived StudyStatus = "archived"
)

// CultureResult is one microbiology culture.
type CultureResult struct {
	ID             string      `json:"id"`
	CollectedDate  string      `json:"collected_date"`
	Specimen       string      `json:"specimen,omitempty"` // blood, urine, sputum...
	Organism       string      `json:"organism,omitempty"`
	Susceptibility string      `json:"susceptibility,omitempty"`
	Status         StudyStatus `json:"status"`
	Notes          string      `json:"notes,omitempty"`
	ImageRefs      []string    `json:"image_refs,omitempty"`
}

// ImagingStudy is one radiology study (CXR, CT, US...).
type ImagingStudy struct {
	ID         string      `json:"id"`
	Date       string      `json:"date"`
	Modality   string      `json:"modality,omitempty"`
	Region     string      `json:"region,omitempty"`
	Findings   string      `json:"findings,omitempty"`
	Impression string      `json:"impression,omitempty"`
	Status     StudyStatus `json:"status"`
	ImageRefs  []string    `json:"image_refs,omitempty"`
}

// EKGReading is one electrocardiogram interpretation. Echo reports reuse the
// imaging shape; EKGs carry interval fields of their own.
type EKGReading struct {
	ID             string   `json:"id"`
	Date           string   `json:"date"`
	Rhythm         string   `json:"rhythm,omitempty"`
	Rate           string   `json:"rate,omitempty"`
	Axis           string   `json:"axis,omitempty"`
	Intervals      string   `json:"intervals,omitempty"` // PR/QRS/QTc summary
	Interpretation string   `json:"interpretation,omitempty"`
	ImageRefs      []string `json:"image_refs,omitempty"`
}

// MicroscopyResult is one urine/stool/CSF microscopy report.
type MicroscopyResult struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	Specimen  string      `json:"specimen,omitempty"`
	Findings  string      `json:"findings,omitempty"`
	Status    StudyStatus `json:"status"`
	ImageRefs []string    `json:"image_refs,omitempty"`
}

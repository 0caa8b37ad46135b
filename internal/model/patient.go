// Package model defines the domain types shared by the extraction pipeline,
// the reconciliation engine, and the stores.
package model

import "time"

// Patient is the aggregate root for one admitted patient. It exclusively owns
// every clinical collection below; reconciliation always operates on a copy of
// the whole aggregate and the store persists it with document-replace
// semantics.
type Patient struct {
	ID        string    `json:"id"`
	HN        string    `json:"hn"` // hospital number
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Age       int       `json:"age,omitempty"`
	Sex       string    `json:"sex,omitempty"`
	Ward      string    `json:"ward,omitempty"`
	Bed       string    `json:"bed,omitempty"`
	Diagnosis string    `json:"diagnosis,omitempty"`
	Allergies []Allergy `json:"allergies,omitempty"`

	Admission *AdmissionNote `json:"admission,omitempty"`

	Labs         map[string]*LabSeries `json:"labs,omitempty"`
	Medications  []MedicationRecord    `json:"medications,omitempty"`
	Problems     ProblemHistory        `json:"problems"`
	Cultures     []CultureResult       `json:"cultures,omitempty"`
	Imaging      []ImagingStudy        `json:"imaging,omitempty"`
	EKGs         []EKGReading          `json:"ekgs,omitempty"`
	Microscopy   []MicroscopyResult    `json:"microscopy,omitempty"`
	Appointments []Appointment         `json:"appointments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Allergy is one known allergen with its documented reaction.
type Allergy struct {
	Substance string `json:"substance"`
	Reaction  string `json:"reaction,omitempty"`
}

// AdmissionNote holds the structured admission document. All fields are
// free text; partial capture is expected when the note was OCR'd.
type AdmissionNote struct {
	ChiefComplaint string `json:"chief_complaint,omitempty"`
	HPI            string `json:"hpi,omitempty"`
	PastHistory    string `json:"past_history,omitempty"`
	HomeMeds       string `json:"home_meds,omitempty"`
	PhysicalExam   string `json:"physical_exam,omitempty"`
	Assessment     string `json:"assessment,omitempty"`
	Plan           string `json:"plan,omitempty"`
	AdmitDate      string `json:"admit_date,omitempty"`
}

// Appointment is one scheduled follow-up visit.
type Appointment struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Clinic string `json:"clinic,omitempty"`
	Note   string `json:"note,omitempty"`
}

// Clone returns a deep copy of the aggregate. The reconciliation engine
// mutates only the copy, so a caller's aggregate is never changed in place.
func (p *Patient) Clone() *Patient {
	if p == nil {
		return nil
	}
	cp := *p

	if p.Admission != nil {
		adm := *p.Admission
		cp.Admission = &adm
	}

	cp.Allergies = append([]Allergy(nil), p.Allergies...)
	cp.Medications = append([]MedicationRecord(nil), p.Medications...)
	cp.Cultures = append([]CultureResult(nil), p.Cultures...)
	cp.Imaging = append([]ImagingStudy(nil), p.Imaging...)
	cp.EKGs = append([]EKGReading(nil), p.EKGs...)
	cp.Microscopy = append([]MicroscopyResult(nil), p.Microscopy...)
	cp.Appointments = append([]Appointment(nil), p.Appointments...)

	if p.Labs != nil {
		cp.Labs = make(map[string]*LabSeries, len(p.Labs))
		for k, s := range p.Labs {
			cp.Labs[k] = s.Clone()
		}
	}

	cp.Problems = p.Problems.Clone()

	return &cp
}

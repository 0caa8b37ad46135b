// Package extract turns noisy model responses from scanned clinical documents
// into validated, typed records. The flow for every document type is the
// same: build a prompt, call the completion provider, sanitize the raw text,
// coerce the JSON against the kind's expected shape, normalize dates. The
// caller decides if and when the result is reconciled into a patient
// aggregate; nothing in this package ever writes to one.
package extract

// Kind names a supported document/record category.
type Kind string

const (
	KindLab         Kind = "lab"
	KindMedication  Kind = "medication"
	KindProblem     Kind = "problem"
	KindCulture     Kind = "culture"
	KindImaging     Kind = "imaging"
	KindMicroscopy  Kind = "microscopy"
	KindAppointment Kind = "appointment"
	KindHandoff     Kind = "handoff"
	KindEKG         Kind = "ekg"
	KindEcho        Kind = "echo"
	KindAdmission   Kind = "admission"
	KindDischarge   Kind = "discharge"
)

// ArrayShaped reports whether responses for the kind must be a JSON array.
// The remaining kinds are single-object documents.
func (k Kind) ArrayShaped() bool {
	switch k {
	case KindLab, KindMedication, KindProblem, KindCulture, KindImaging,
		KindEcho, KindMicroscopy, KindAppointment, KindHandoff:
		return true
	}
	return false
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindLab, KindMedication, KindProblem, KindCulture, KindImaging,
		KindMicroscopy, KindAppointment, KindHandoff, KindEKG, KindEcho,
		KindAdmission, KindDischarge:
		return true
	}
	return false
}

// Envelope is the pipeline's internal unit of work for one provider call.
// It exists for logging and tests and is discarded after the merge; it is
// never persisted.
type Envelope struct {
	Kind      Kind
	Raw       string // raw provider response text
	Sanitized string // output of Sanitize
	Dropped   int    // array elements rejected by coercion
}

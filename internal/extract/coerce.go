package extract

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Coercion validates sanitized JSON against a kind's expected shape. Array
// kinds drop elements missing their required fields — partial extraction is
// the normal case with OCR noise, so a bad element never fails the batch.
// Object kinds keep whatever fields were captured; absent fields decode to
// empty strings. Only a top-level parse failure (or a non-array for an array
// kind) is an error, and callers map that to "nothing extracted".

// coerceArray decodes data as a JSON array of T, dropping elements that fail
// the valid check. Returns the kept elements and the number dropped.
func coerceArray[T any](kind Kind, data string, valid func(T) bool) ([]T, int, error) {
	var probe any
	if err := json.Unmarshal([]byte(data), &probe); err != nil {
		return nil, 0, eris.Wrapf(err, "extract: parse %s response", kind)
	}
	if _, ok := probe.([]any); !ok {
		return nil, 0, eris.Errorf("extract: %s response is not an array", kind)
	}

	// Element-wise decode so one malformed element doesn't poison the rest.
	var rawItems []json.RawMessage
	if err := json.Unmarshal([]byte(data), &rawItems); err != nil {
		return nil, 0, eris.Wrapf(err, "extract: parse %s array", kind)
	}

	kept := make([]T, 0, len(rawItems))
	dropped := 0
	for i, raw := range rawItems {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil || !valid(item) {
			dropped++
			zap.L().Debug("dropped invalid extracted element",
				zap.String("kind", string(kind)),
				zap.Int("index", i))
			continue
		}
		kept = append(kept, item)
	}
	return kept, dropped, nil
}

// coerceObject decodes data as a single JSON object of T.
func coerceObject[T any](kind Kind, data string) (*T, error) {
	var probe map[string]any
	if err := json.Unmarshal([]byte(data), &probe); err != nil {
		return nil, eris.Wrapf(err, "extract: parse %s response", kind)
	}
	var out T
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, eris.Wrapf(err, "extract: decode %s object", kind)
	}
	return &out, nil
}

// CoerceLabs validates a lab-sheet response. A result needs a test name and
// a value.
func CoerceLabs(data string) ([]LabResult, int, error) {
	return coerceArray(KindLab, data, func(r LabResult) bool {
		return r.TestName != "" && r.Value != nil
	})
}

// CoerceMedications validates a medication-list response. Only the drug name
// is required.
func CoerceMedications(data string) ([]MedicationItem, int, error) {
	return coerceArray(KindMedication, data, func(m MedicationItem) bool {
		return m.Name != ""
	})
}

// CoerceProblems validates a problem-list response.
func CoerceProblems(data string) ([]ProblemItem, int, error) {
	return coerceArray(KindProblem, data, func(p ProblemItem) bool {
		return p.Problem != ""
	})
}

// CoerceCultures validates a culture-report response. A culture without a
// specimen or organism is noise.
func CoerceCultures(data string) ([]CultureItem, int, error) {
	return coerceArray(KindCulture, data, func(c CultureItem) bool {
		return c.Specimen != "" || c.Organism != ""
	})
}

// CoerceImaging validates an imaging-report response.
func CoerceImaging(data string) ([]ImagingItem, int, error) {
	return coerceArray(KindImaging, data, func(s ImagingItem) bool {
		return s.Findings != "" || s.Impression != ""
	})
}

// CoerceMicroscopy validates a microscopy response.
func CoerceMicroscopy(data string) ([]MicroscopyItem, int, error) {
	return coerceArray(KindMicroscopy, data, func(m MicroscopyItem) bool {
		return m.Findings != ""
	})
}

// CoerceAppointments validates an appointment-screen response.
func CoerceAppointments(data string) ([]AppointmentItem, int, error) {
	return coerceArray(KindAppointment, data, func(a AppointmentItem) bool {
		return a.Date != ""
	})
}

// CoerceHandoff validates a bulk-handoff response. An entry must identify a
// patient by HN or at least by name.
func CoerceHandoff(data string) ([]HandoffEntry, int, error) {
	return coerceArray(KindHandoff, data, func(h HandoffEntry) bool {
		return h.HN != "" || h.Name != ""
	})
}

// CoerceEKG validates an EKG reading. Partial capture is kept; missing
// fields stay empty.
func CoerceEKG(data string) (*EKGFields, error) {
	return coerceObject[EKGFields](KindEKG, data)
}

// CoerceAdmission validates an admission-note response.
func CoerceAdmission(data string) (*AdmissionFields, error) {
	return coerceObject[AdmissionFields](KindAdmission, data)
}

// CoerceDischarge validates a discharge-summary response.
func CoerceDischarge(data string) (*DischargeFields, error) {
	return coerceObject[DischargeFields](KindDischarge, data)
}

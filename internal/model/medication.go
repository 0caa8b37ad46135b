package model

// MedicationRecord is one order on the medication list. The reconciler assigns
// ID on first creation and it is stable thereafter; toggling IsActive keeps
// the record so the interaction check and the audit trail see full history.
type MedicationRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Dose      string `json:"dose,omitempty"`
	Route     string `json:"route,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	IsActive  bool   `json:"is_active"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

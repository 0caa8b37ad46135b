package reconcile

import (
	"fmt"
	"strings"

	"github.com/wardrounds/rounds-cli/internal/model"
)

// Conflict is one allergy or drug-drug finding from the discharge check.
type Conflict struct {
	Kind       string `json:"kind"` // "allergy" or "interaction"
	Medication string `json:"medication"`
	Against    string `json:"against"` // the allergen or the other drug
	Detail     string `json:"detail,omitempty"`
}

// interactionPairs is a small table of drug-class pairs worth flagging at
// discharge. Matching is substring-based on the normalized drug name, same as
// series routing.
var interactionPairs = []struct {
	A, B   string
	Detail string
}{
	{"warfarin", "aspirin", "bleeding risk"},
	{"warfarin", "nsaid", "bleeding risk"},
	{"warfarin", "ibuprofen", "bleeding risk"},
	{"spironolactone", "enalapril", "hyperkalemia"},
	{"spironolactone", "losartan", "hyperkalemia"},
	{"clarithromycin", "simvastatin", "rhabdomyolysis risk"},
	{"metformin", "contrast", "hold before contrast studies"},
}

// CheckInteractions derives the conflict list for the patient's active
// medications against known allergies and the interaction table. It is a
// read-only view: stopping or restarting a medication is a separate,
// user-confirmed UpdateMedication call.
func CheckInteractions(p *model.Patient) []Conflict {
	var conflicts []Conflict

	active := make([]model.MedicationRecord, 0, len(p.Medications))
	for _, m := range p.Medications {
		if m.IsActive {
			active = append(active, m)
		}
	}

	for _, m := range active {
		name := normalizeName(m.Name)
		for _, a := range p.Allergies {
			substance := normalizeName(a.Substance)
			if substance == "" {
				continue
			}
			if strings.Contains(name, substance) || strings.Contains(substance, name) {
				conflicts = append(conflicts, Conflict{
					Kind:       "allergy",
					Medication: m.Name,
					Against:    a.Substance,
					Detail:     a.Reaction,
				})
			}
		}
	}

	for i, m1 := range active {
		n1 := normalizeName(m1.Name)
		for _, m2 := range active[i+1:] {
			n2 := normalizeName(m2.Name)
			for _, pair := range interactionPairs {
				if (strings.Contains(n1, pair.A) && strings.Contains(n2, pair.B)) ||
					(strings.Contains(n1, pair.B) && strings.Contains(n2, pair.A)) {
					conflicts = append(conflicts, Conflict{
						Kind:       "interaction",
						Medication: m1.Name,
						Against:    m2.Name,
						Detail:     pair.Detail,
					})
				}
			}
		}
	}

	return conflicts
}

// String renders a conflict for logs and CLI output.
func (c Conflict) String() string {
	return fmt.Sprintf("%s: %s vs %s (%s)", c.Kind, c.Medication, c.Against, c.Detail)
}

package model

// TimedValue is one observation at one instant. Date is the canonical
// "YYYY-MM-DD HH:mm" form produced by the date normalizer. Value is a number
// for quantitative tests and a string for qualitative ones; a nil Value marks
// a grid-fill placeholder so tabular views can render a complete grid.
type TimedValue struct {
	Date       string      `json:"date"`
	Value      any         `json:"value"`
	SubResults []SubResult `json:"sub_results,omitempty"`
}

// SubResult is a named component of a panel-style observation, such as a
// differential count inside a CBC.
type SubResult struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// LabSeries is a named, unit-tagged ordered sequence of observations for one
// test. Points are appended in insertion order; ordering by date is the
// renderer's concern so that same-date points keep their arrival order.
type LabSeries struct {
	Name   string       `json:"name"` // canonical series key
	Label  string       `json:"label,omitempty"`
	Unit   string       `json:"unit,omitempty"`
	Points []TimedValue `json:"points"`
}

// Clone returns a deep copy of the series.
func (s *LabSeries) Clone() *LabSeries {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Points = make([]TimedValue, len(s.Points))
	for i, p := range s.Points {
		cp.Points[i] = p
		cp.Points[i].SubResults = append([]SubResult(nil), p.SubResults...)
	}
	return &cp
}

// Placeholder reports whether the point is a grid-fill entry with no value.
func (v TimedValue) Placeholder() bool {
	return v.Value == nil
}

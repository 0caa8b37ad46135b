package model

// ProblemStatus tracks the clinical course of one problem.
type ProblemStatus string

const (
	ProblemActive    ProblemStatus = "active"
	ProblemStable    ProblemStatus = "stable"
	ProblemWorsening ProblemStatus = "worsening"
	ProblemImproved  ProblemStatus = "improved"
	ProblemResolved  ProblemStatus = "resolved"
)

// ValidProblemStatus reports whether s is one of the known statuses.
func ValidProblemStatus(s ProblemStatus) bool {
	switch s {
	case ProblemActive, ProblemStable, ProblemWorsening, ProblemImproved, ProblemResolved:
		return true
	}
	return false
}

// ProblemEntry is one line on the problem list.
type ProblemEntry struct {
	ID      string        `json:"id"`
	Problem string        `json:"problem"`
	Status  ProblemStatus `json:"status"`
	Plan    string        `json:"plan,omitempty"`
	System  string        `json:"system,omitempty"` // organ system, optional
}

// ProblemHistory is the versioned problem list. Every mutation pushes a new
// immutable snapshot; Undo and Redo move a cursor over the snapshots and never
// edit history in place.
type ProblemHistory struct {
	Versions [][]ProblemEntry `json:"versions"`
	Index    int              `json:"index"`
}

// Current returns the snapshot at the cursor, or nil for an empty history.
func (h ProblemHistory) Current() []ProblemEntry {
	if h.Index < 0 || h.Index >= len(h.Versions) {
		return nil
	}
	return h.Versions[h.Index]
}

// Push appends entries as a new snapshot and moves the cursor to it. Any
// redo branch past the cursor is discarded, matching editor undo semantics.
func (h ProblemHistory) Push(entries []ProblemEntry) ProblemHistory {
	snapshot := append([]ProblemEntry(nil), entries...)

	kept := h.Versions
	if h.Index+1 < len(kept) {
		kept = kept[:h.Index+1]
	}

	out := ProblemHistory{
		Versions: append(append([][]ProblemEntry(nil), kept...), snapshot),
	}
	out.Index = len(out.Versions) - 1
	return out
}

// Undo moves the cursor one snapshot back. At the oldest snapshot it is a
// no-op.
func (h ProblemHistory) Undo() ProblemHistory {
	if h.Index > 0 {
		h.Index--
	}
	return h
}

// Redo moves the cursor one snapshot forward. At the newest snapshot it is a
// no-op.
func (h ProblemHistory) Redo() ProblemHistory {
	if h.Index < len(h.Versions)-1 {
		h.Index++
	}
	return h
}

// Clone returns a deep copy of the history.
func (h ProblemHistory) Clone() ProblemHistory {
	cp := ProblemHistory{Index: h.Index}
	if h.Versions != nil {
		cp.Versions = make([][]ProblemEntry, len(h.Versions))
		for i, v := range h.Versions {
			cp.Versions[i] = append([]ProblemEntry(nil), v...)
		}
	}
	return cp
}

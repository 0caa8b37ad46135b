package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wardrounds/rounds-cli/internal/extract"
	"github.com/wardrounds/rounds-cli/pkg/anthropic"
)

type extractRequest struct {
	Text   string            `json:"text,omitempty"`
	Images []anthropic.Image `json:"images,omitempty"`
}

// handleExtract runs one extraction use-case and returns the structured
// records for review. Nothing is persisted here; the client posts reviewed
// records to a reconcile endpoint afterwards.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	kind := extract.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown extraction kind")
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" && len(req.Images) == 0 {
		writeError(w, http.StatusBadRequest, "text or images are required")
		return
	}

	ctx := r.Context()
	doc := extract.Document{Text: req.Text, Images: req.Images}

	var records any
	switch kind {
	case extract.KindLab:
		records = s.extractor.LabSheet(ctx, doc)
	case extract.KindMedication:
		records = s.extractor.MedicationList(ctx, doc)
	case extract.KindProblem:
		records = s.extractor.ProblemList(ctx, doc)
	case extract.KindCulture:
		records = s.extractor.CultureReport(ctx, doc)
	case extract.KindImaging:
		records = s.extractor.ImagingReport(ctx, doc)
	case extract.KindEcho:
		records = s.extractor.EchoReport(ctx, doc)
	case extract.KindMicroscopy:
		records = s.extractor.MicroscopyReport(ctx, doc)
	case extract.KindAppointment:
		records = s.extractor.AppointmentScreen(ctx, doc)
	case extract.KindHandoff:
		records = s.extractor.Handoff(ctx, req.Text)
	case extract.KindEKG:
		records = s.extractor.EKG(ctx, doc)
	case extract.KindAdmission:
		records = s.extractor.AdmissionNote(ctx, doc)
	case extract.KindDischarge:
		records = s.extractor.DischargeSummary(ctx, doc)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"kind":    kind,
		"records": records,
	})
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/wardrounds/rounds-cli/internal/export"
	"github.com/wardrounds/rounds-cli/internal/extract"
	"github.com/wardrounds/rounds-cli/internal/model"
	"github.com/wardrounds/rounds-cli/internal/reconcile"
	"github.com/wardrounds/rounds-cli/internal/store"
)

func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	filter := store.PatientFilter{Ward: r.URL.Query().Get("ward")}
	patients, err := s.store.ListPatients(r.Context(), filter)
	if err != nil {
		zap.L().Error("list patients failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if patients == nil {
		patients = []model.Patient{}
	}
	writeJSON(w, http.StatusOK, patients)
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var p model.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.HN == "" {
		writeError(w, http.StatusBadRequest, "hn is required")
		return
	}

	if err := s.store.CreatePatient(r.Context(), &p); err != nil {
		writeError(w, http.StatusConflict, "patient with that hn already exists")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPatient(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleReplacePatient(w http.ResponseWriter, r *http.Request) {
	var p model.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p.ID = chi.URLParam(r, "id")

	if err := s.store.ReplacePatient(r.Context(), &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "patient not found")
			return
		}
		zap.L().Error("replace patient failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeletePatient(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "patient not found")
			return
		}
		zap.L().Error("delete patient failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReconcile merges reviewed extraction records into the aggregate and
// persists the result. The request body shape depends on {kind}.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPatient(w, r)
	if !ok {
		return
	}

	kind := extract.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown extraction kind")
		return
	}

	merged, err := s.mergeForKind(p, kind, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.ReplacePatient(r.Context(), merged); err != nil {
		zap.L().Error("persist reconciled patient failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

func (s *Server) mergeForKind(p *model.Patient, kind extract.Kind, r *http.Request) (*model.Patient, error) {
	dec := json.NewDecoder(r.Body)
	badBody := errors.New("invalid request body")

	switch kind {
	case extract.KindLab:
		var records []extract.LabResult
		if err := dec.Decode(&records); err != nil {
			return nil, badBody
		}
		var opts []reconcile.LabOption
		if s.gridFill {
			opts = append(opts, reconcile.WithGridFill())
		}
		return reconcile.Labs(p, records, opts...), nil
	case extract.KindMedication:
		var records []extract.MedicationItem
		if err := dec.Decode(&records); err != nil {
			return nil, badBody
		}
		return reconcile.Medications(p, records), nil
	case extract.KindProblem:
		var records []extract.ProblemItem
		if err := dec.Decode(&records); err != nil {
			return nil, badBody
		}
		return reconcile.Problems(p, records), nil
	case extract.KindCulture:
		var records []extract.CultureItem
		if err := dec.Decode(&records); err != nil {
			return nil, badBody
		}
		return reconcile.Cultures(p, records), nil
	case extract.KindImaging, extract.KindEcho:
		var records []extract.ImagingItem
		if err := dec.Decode(&records); err != nil {
			return nil, badBody
		}
		return reconcile.Imaging(p, records), nil
	case extract.KindMicroscopy:
		var records []extract.MicroscopyItem
		if err := dec.Decode(&records); err != nil {
			return nil, badBody
		}
		return reconcile.Microscopy(p, records), nil
	case extract.KindAppointment:
		var records []extract.AppointmentItem
		if err := dec.Decode(&records); err != nil {
			return nil, badBody
		}
		return reconcile.Appointments(p, records), nil
	case extract.KindEKG:
		var fields extract.EKGFields
		if err := dec.Decode(&fields); err != nil {
			return nil, badBody
		}
		return reconcile.EKG(p, &fields), nil
	case extract.KindAdmission:
		var fields extract.AdmissionFields
		if err := dec.Decode(&fields); err != nil {
			return nil, badBody
		}
		return reconcile.Admission(p, &fields), nil
	default:
		return nil, errors.New("kind cannot be reconciled into a patient")
	}
}

func (s *Server) handleUpdateMedication(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPatient(w, r)
	if !ok {
		return
	}

	var med model.MedicationRecord
	if err := json.NewDecoder(r.Body).Decode(&med); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	med.ID = chi.URLParam(r, "medID")

	updated, err := reconcile.UpdateMedication(p, med)
	if err != nil {
		writeError(w, http.StatusNotFound, "medication not found")
		return
	}
	s.persistAndRespond(w, r, updated)
}

func (s *Server) handleUpdateCulture(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPatient(w, r)
	if !ok {
		return
	}

	var culture model.CultureResult
	if err := json.NewDecoder(r.Body).Decode(&culture); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	culture.ID = chi.URLParam(r, "cultureID")

	updated, err := reconcile.UpdateCulture(p, culture)
	if err != nil {
		if errors.Is(err, reconcile.ErrNoSuchRecord) {
			writeError(w, http.StatusNotFound, "culture not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.persistAndRespond(w, r, updated)
}

func (s *Server) handleUpdateImaging(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPatient(w, r)
	if !ok {
		return
	}

	var study model.ImagingStudy
	if err := json.NewDecoder(r.Body).Decode(&study); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	study.ID = chi.URLParam(r, "studyID")

	updated, err := reconcile.UpdateImaging(p, study)
	if err != nil {
		if errors.Is(err, reconcile.ErrNoSuchRecord) {
			writeError(w, http.StatusNotFound, "study not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.persistAndRespond(w, r, updated)
}

// handlePushProblems records a manually edited problem list as a new
// snapshot, preserving undo history.
func (s *Server) handlePushProblems(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPatient(w, r)
	if !ok {
		return
	}

	var entries []model.ProblemEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.persistAndRespond(w, r, reconcile.PushProblems(p, entries))
}

func (s *Server) handleProblemsUndo(w http.ResponseWriter, r *http.Request) {
	s.moveProblemCursor(w, r, func(h model.ProblemHistory) model.ProblemHistory { return h.Undo() })
}

func (s *Server) handleProblemsRedo(w http.ResponseWriter, r *http.Request) {
	s.moveProblemCursor(w, r, func(h model.ProblemHistory) model.ProblemHistory { return h.Redo() })
}

func (s *Server) moveProblemCursor(w http.ResponseWriter, r *http.Request, move func(model.ProblemHistory) model.ProblemHistory) {
	p, ok := s.loadPatient(w, r)
	if !ok {
		return
	}
	updated := p.Clone()
	updated.Problems = move(updated.Problems)
	s.persistAndRespond(w, r, updated)
}

func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPatient(w, r)
	if !ok {
		return
	}
	conflicts := reconcile.CheckInteractions(p)
	if conflicts == nil {
		conflicts = []reconcile.Conflict{}
	}
	writeJSON(w, http.StatusOK, conflicts)
}

func (s *Server) handleExportLabs(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPatient(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="labs-`+p.HN+`.xlsx"`)
	if err := export.WriteLabBook(w, p); err != nil {
		zap.L().Error("lab export failed", zap.String("patient", p.ID), zap.Error(err))
	}
}

// loadPatient fetches the patient named in the route, writing the error
// response itself when the lookup fails.
func (s *Server) loadPatient(w http.ResponseWriter, r *http.Request) (*model.Patient, bool) {
	id := chi.URLParam(r, "id")
	p, err := s.store.GetPatient(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "patient not found")
			return nil, false
		}
		zap.L().Error("get patient failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return p, true
}

func (s *Server) persistAndRespond(w http.ResponseWriter, r *http.Request, p *model.Patient) {
	if err := s.store.ReplacePatient(r.Context(), p); err != nil {
		zap.L().Error("persist patient failed", zap.String("id", p.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrounds/rounds-cli/internal/auth"
	"github.com/wardrounds/rounds-cli/internal/config"
	"github.com/wardrounds/rounds-cli/internal/extract"
	"github.com/wardrounds/rounds-cli/internal/model"
	"github.com/wardrounds/rounds-cli/internal/store"
)

// stubExtractor returns canned records without calling a provider.
type stubExtractor struct {
	labs []extract.LabResult
}

func (s *stubExtractor) LabSheet(context.Context, extract.Document) []extract.LabResult {
	return s.labs
}
func (s *stubExtractor) MedicationList(context.Context, extract.Document) []extract.MedicationItem {
	return nil
}
func (s *stubExtractor) ProblemList(context.Context, extract.Document) []extract.ProblemItem {
	return nil
}
func (s *stubExtractor) CultureReport(context.Context, extract.Document) []extract.CultureItem {
	return nil
}
func (s *stubExtractor) ImagingReport(context.Context, extract.Document) []extract.ImagingItem {
	return nil
}
func (s *stubExtractor) EchoReport(context.Context, extract.Document) []extract.ImagingItem {
	return nil
}
func (s *stubExtractor) MicroscopyReport(context.Context, extract.Document) []extract.MicroscopyItem {
	return nil
}
func (s *stubExtractor) AppointmentScreen(context.Context, extract.Document) []extract.AppointmentItem {
	return nil
}
func (s *stubExtractor) Handoff(context.Context, string) []extract.HandoffEntry { return nil }
func (s *stubExtractor) EKG(context.Context, extract.Document) *extract.EKGFields {
	return nil
}
func (s *stubExtractor) AdmissionNote(context.Context, extract.Document) *extract.AdmissionFields {
	return nil
}
func (s *stubExtractor) DischargeSummary(context.Context, extract.Document) *extract.DischargeFields {
	return nil
}

type testEnv struct {
	server *Server
	store  store.Store
	router http.Handler
	token  string
	admin  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	tokens := auth.NewTokens("test-secret", time.Hour)
	srv := New(st, tokens, &stubExtractor{}, config.ServerConfig{
		AllowedOrigins:  []string{"*"},
		RateLimitPerMin: 6000,
		RateLimitBurst:  1000,
	}, false)

	env := &testEnv{server: srv, store: st, router: srv.Router()}

	env.token = env.createUserToken(t, tokens, "resident1", model.RoleResident)
	env.admin = env.createUserToken(t, tokens, "chief", model.RoleAdmin)
	return env
}

func (e *testEnv) createUserToken(t *testing.T, tokens *auth.Tokens, username string, role model.Role) string {
	t.Helper()
	hash, err := auth.HashPassword("pass-" + username)
	require.NoError(t, err)
	u := &model.User{Username: username, Role: role, PasswordHash: hash}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	token, err := tokens.Issue(u)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/auth/login", "", loginRequest{Username: "resident1", Password: "pass-resident1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "resident1", resp.User.Username)

	rec = env.do(t, "POST", "/api/auth/login", "", loginRequest{Username: "resident1", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown user gets the same response as a bad password.
	rec = env.do(t, "POST", "/api/auth/login", "", loginRequest{Username: "ghost", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/patients/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, "GET", "/api/patients/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnlyRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/audit", env.token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, "GET", "/api/audit", env.admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPatientCRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/patients/", env.token, model.Patient{HN: "660012345", Ward: "MED-3"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = env.do(t, "GET", "/api/patients/"+created.ID+"/", env.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/patients/?ward=MED-3", env.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []model.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	rec = env.do(t, "DELETE", "/api/patients/"+created.ID+"/", env.token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, "GET", "/api/patients/"+created.ID+"/", env.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePatient_RequiresHN(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/patients/", env.token, model.Patient{Ward: "MED-3"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.server.extractor = &stubExtractor{labs: []extract.LabResult{
		{TestName: "Creatinine", Value: 1.4, DateTime: "2024-06-14 09:00"},
	}}
	env.router = env.server.Router()

	rec := env.do(t, "POST", "/api/extract/lab", env.token, extractRequest{Text: "cr 1.4"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Kind    string              `json:"kind"`
		Records []extract.LabResult `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "lab", resp.Kind)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Creatinine", resp.Records[0].TestName)
}

func TestExtractEndpoint_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/extract/tarot", env.token, extractRequest{Text: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "POST", "/api/extract/lab", env.token, extractRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconcileLabs(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/patients/", env.token, model.Patient{HN: "660012345"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var p model.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	records := []extract.LabResult{
		{TestName: "Creatinine", Value: 1.4, Unit: "mg/dL", DateTime: "2024-06-14 09:00"},
	}
	rec = env.do(t, "POST", "/api/patients/"+p.ID+"/reconcile/lab", env.token, records)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := env.store.GetPatient(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Labs["creatinine"])
	assert.Len(t, got.Labs["creatinine"].Points, 1)
}

func TestReconcile_UnknownKind(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/patients/", env.token, model.Patient{HN: "660012345"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var p model.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	rec = env.do(t, "POST", "/api/patients/"+p.ID+"/reconcile/tarot", env.token, []any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProblemUndoRedo(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/patients/", env.token, model.Patient{HN: "660012345"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var p model.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	rec = env.do(t, "POST", "/api/patients/"+p.ID+"/reconcile/problem", env.token,
		[]extract.ProblemItem{{Problem: "Sepsis", Status: "active"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "POST", "/api/patients/"+p.ID+"/reconcile/problem", env.token,
		[]extract.ProblemItem{{Problem: "Sepsis", Status: "improved"}, {Problem: "AKI", Status: "active"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "POST", "/api/patients/"+p.ID+"/problems/undo", env.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var afterUndo model.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &afterUndo))
	assert.Len(t, afterUndo.Problems.Current(), 1)

	rec = env.do(t, "POST", "/api/patients/"+p.ID+"/problems/redo", env.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var afterRedo model.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &afterRedo))
	assert.Len(t, afterRedo.Problems.Current(), 2)
}

func TestUpdateImagingEndpoint(t *testing.T) {
	env := newTestEnv(t)

	seed := model.Patient{
		HN: "660012345",
		Imaging: []model.ImagingStudy{
			{ID: "s1", Modality: "CXR", Impression: "infiltrate RLL", Status: model.StudyFinal},
			{ID: "s2", Modality: "CT", Status: model.StudyArchived},
		},
	}
	rec := env.do(t, "POST", "/api/patients/", env.token, seed)
	require.Equal(t, http.StatusCreated, rec.Code)
	var p model.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	amended := p.Imaging[0]
	amended.Impression = "resolving infiltrate"
	rec = env.do(t, "PUT", "/api/patients/"+p.ID+"/imaging/s1", env.token, amended)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "resolving infiltrate", updated.Imaging[0].Impression)

	rec = env.do(t, "PUT", "/api/patients/"+p.ID+"/imaging/s2", env.token, p.Imaging[1])
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, "PUT", "/api/patients/"+p.ID+"/imaging/missing", env.token, amended)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInteractionsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	p := model.Patient{
		HN:        "660012345",
		Allergies: []model.Allergy{{Substance: "penicillin", Reaction: "rash"}},
		Medications: []model.MedicationRecord{
			{ID: "m1", Name: "Penicillin V", IsActive: true},
		},
	}
	rec := env.do(t, "POST", "/api/patients/", env.token, p)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, "GET", "/api/patients/"+created.ID+"/interactions", env.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var conflicts []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflicts))
	require.Len(t, conflicts, 1)
	assert.Equal(t, "allergy", conflicts[0]["kind"])
}

func TestRateLimit(t *testing.T) {
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	tokens := auth.NewTokens("test-secret", time.Hour)
	srv := New(st, tokens, &stubExtractor{}, config.ServerConfig{
		RateLimitPerMin: 60,
		RateLimitBurst:  2,
	}, false)
	router := srv.Router()

	var last int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRedactBody(t *testing.T) {
	in := []byte(`{"username":"a","password":"secret","nested":{"pin":"1234","note":"ok"},"list":[{"token":"t"}]}`)
	out := redactBody(in)

	assert.NotContains(t, out, "secret")
	assert.NotContains(t, out, "1234")
	assert.NotContains(t, out, `"t"`)
	assert.Contains(t, out, `"ok"`)
	assert.Contains(t, out, "[redacted]")

	assert.Empty(t, redactBody([]byte("not json")))
	assert.Empty(t, redactBody(nil))
}

func TestRedactBody_OversizedStaysValidJSON(t *testing.T) {
	big := map[string]string{"note": strings.Repeat("x", maxAuditBody)}
	raw, err := json.Marshal(big)
	require.NoError(t, err)

	out := redactBody(raw)
	assert.LessOrEqual(t, len(out), maxAuditBody)
	assert.True(t, json.Valid([]byte(out)), "audit body must never hold truncated JSON")
}

func TestAuditRecordsMutations(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/patients/", env.token, model.Patient{HN: "660012345"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var p model.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	rec = env.do(t, "POST", "/api/patients/"+p.ID+"/reconcile/problem", env.token,
		[]extract.ProblemItem{{Problem: "Sepsis", Status: "active"}})
	require.Equal(t, http.StatusOK, rec.Code)

	// Audit writes are async; give the goroutines a moment.
	require.Eventually(t, func() bool {
		entries, err := env.store.ListAudit(context.Background(), 10)
		return err == nil && len(entries) == 2
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := env.store.ListAudit(context.Background(), 10)
	require.NoError(t, err)

	var reconcileEntry *model.AuditEntry
	for i := range entries {
		assert.Equal(t, "POST", entries[i].Action)
		assert.Contains(t, entries[i].Resource, "/api/patients")
		if strings.Contains(entries[i].Resource, "/reconcile/") {
			reconcileEntry = &entries[i]
		}
	}
	require.NotNil(t, reconcileEntry)
	assert.Equal(t, p.ID, reconcileEntry.ResourceID, "route param recorded as resource id")
}

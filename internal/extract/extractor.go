package extract

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wardrounds/rounds-cli/internal/dateparse"
	"github.com/wardrounds/rounds-cli/pkg/anthropic"
)

// Document is the raw input to a use-case: free text, inline images, or both.
type Document struct {
	Text   string
	Images []anthropic.Image
}

// Options configures the extractor.
type Options struct {
	TextModel   string // model for text-only documents
	VisionModel string // model for documents with images
	MaxTokens   int64
	Timeout     time.Duration // bound on each provider call
}

// Extractor runs one extraction use-case per document type. Every method
// degrades to an empty result on provider or parse failure — callers treat
// "nothing extracted" as an ordinary outcome and fall back to manual entry.
// Methods never touch a patient aggregate; the caller reviews the returned
// records and reconciles them separately.
type Extractor struct {
	client anthropic.Client
	opts   Options
	now    func() time.Time
}

// New creates an extractor. Zero option fields get working defaults.
func New(client anthropic.Client, opts Options) *Extractor {
	if opts.TextModel == "" {
		opts.TextModel = "claude-haiku-4-5-20251001"
	}
	if opts.VisionModel == "" {
		opts.VisionModel = "claude-sonnet-4-5-20250929"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Extractor{client: client, opts: opts, now: time.Now}
}

// call runs one provider round trip and sanitizes the response. The returned
// envelope's Sanitized field is "" when the call failed; that is the only
// failure signal — errors stop here.
func (e *Extractor) call(ctx context.Context, kind Kind, doc Document) Envelope {
	env := Envelope{Kind: kind}

	model := e.opts.TextModel
	if len(doc.Images) > 0 {
		model = e.opts.VisionModel
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     model,
		MaxTokens: e.opts.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(SystemPrompt(e.now().Year())),
		Messages: []anthropic.Message{
			{Role: "user", Content: BuildUserMessage(kind, doc.Text), Images: doc.Images},
		},
		JSONOnly: true,
	})
	if err != nil {
		zap.L().Warn("completion call failed",
			zap.String("kind", string(kind)),
			zap.Error(err))
		return env
	}

	resp.Usage.LogCost(model, string(kind))

	env.Raw = resp.Text()
	env.Sanitized = Sanitize(env.Raw)
	return env
}

// fallbackNow returns "now" in canonical form, the substitute instant for
// records whose date could not be read.
func (e *Extractor) fallbackNow() string {
	return dateparse.Now(e.now())
}

func (e *Extractor) refYear() int {
	return e.now().Year()
}

// LabSheet extracts lab results from a photographed or transcribed lab sheet.
// Unreadable dates fall back to the scan instant so the point still lands on
// the flowsheet.
func (e *Extractor) LabSheet(ctx context.Context, doc Document) []LabResult {
	env := e.call(ctx, KindLab, doc)
	if env.Sanitized == "" {
		return nil
	}
	results, dropped, err := CoerceLabs(env.Sanitized)
	logCoercion(env, len(results), dropped, err)
	if err != nil {
		return nil
	}
	for i := range results {
		results[i].DateTime = dateparse.NormalizeOr(results[i].DateTime, e.refYear(), e.fallbackNow())
	}
	return results
}

// MedicationList extracts the medication list from a MAR photo or text.
func (e *Extractor) MedicationList(ctx context.Context, doc Document) []MedicationItem {
	env := e.call(ctx, KindMedication, doc)
	if env.Sanitized == "" {
		return nil
	}
	items, dropped, err := CoerceMedications(env.Sanitized)
	logCoercion(env, len(items), dropped, err)
	if err != nil {
		return nil
	}
	for i := range items {
		if items[i].StartDate != "" {
			items[i].StartDate = dateparse.NormalizeOr(items[i].StartDate, e.refYear(), "")
		}
	}
	return items
}

// ProblemList extracts problem entries from a written problem list.
func (e *Extractor) ProblemList(ctx context.Context, doc Document) []ProblemItem {
	env := e.call(ctx, KindProblem, doc)
	if env.Sanitized == "" {
		return nil
	}
	items, dropped, err := CoerceProblems(env.Sanitized)
	logCoercion(env, len(items), dropped, err)
	if err != nil {
		return nil
	}
	return items
}

// CultureReport extracts cultures from a microbiology report.
func (e *Extractor) CultureReport(ctx context.Context, doc Document) []CultureItem {
	env := e.call(ctx, KindCulture, doc)
	if env.Sanitized == "" {
		return nil
	}
	items, dropped, err := CoerceCultures(env.Sanitized)
	logCoercion(env, len(items), dropped, err)
	if err != nil {
		return nil
	}
	for i := range items {
		items[i].CollectedDate = dateparse.NormalizeOr(items[i].CollectedDate, e.refYear(), e.fallbackNow())
	}
	return items
}

// ImagingReport extracts studies from a radiology report.
func (e *Extractor) ImagingReport(ctx context.Context, doc Document) []ImagingItem {
	return e.imaging(ctx, KindImaging, doc)
}

// EchoReport extracts an echocardiogram report. Same shape as imaging with
// the modality pinned.
func (e *Extractor) EchoReport(ctx context.Context, doc Document) []ImagingItem {
	items := e.imaging(ctx, KindEcho, doc)
	for i := range items {
		items[i].Modality = "echo"
	}
	return items
}

func (e *Extractor) imaging(ctx context.Context, kind Kind, doc Document) []ImagingItem {
	env := e.call(ctx, kind, doc)
	if env.Sanitized == "" {
		return nil
	}
	items, dropped, err := CoerceImaging(env.Sanitized)
	logCoercion(env, len(items), dropped, err)
	if err != nil {
		return nil
	}
	for i := range items {
		items[i].Date = dateparse.NormalizeOr(items[i].Date, e.refYear(), e.fallbackNow())
	}
	return items
}

// MicroscopyReport extracts urine/stool/CSF microscopy findings.
func (e *Extractor) MicroscopyReport(ctx context.Context, doc Document) []MicroscopyItem {
	env := e.call(ctx, KindMicroscopy, doc)
	if env.Sanitized == "" {
		return nil
	}
	items, dropped, err := CoerceMicroscopy(env.Sanitized)
	logCoercion(env, len(items), dropped, err)
	if err != nil {
		return nil
	}
	for i := range items {
		items[i].Date = dateparse.NormalizeOr(items[i].Date, e.refYear(), e.fallbackNow())
	}
	return items
}

// AppointmentScreen extracts follow-up slots from a scheduling screen photo.
// A slot whose date cannot be normalized is dropped; an appointment without a
// date is useless.
func (e *Extractor) AppointmentScreen(ctx context.Context, doc Document) []AppointmentItem {
	env := e.call(ctx, KindAppointment, doc)
	if env.Sanitized == "" {
		return nil
	}
	items, dropped, err := CoerceAppointments(env.Sanitized)
	logCoercion(env, len(items), dropped, err)
	if err != nil {
		return nil
	}
	kept := items[:0]
	for _, a := range items {
		d, ok := dateparse.Normalize(a.Date, e.refYear())
		if !ok {
			continue
		}
		a.Date = d
		kept = append(kept, a)
	}
	return kept
}

// Handoff splits a bulk handoff text blob into per-patient entries.
func (e *Extractor) Handoff(ctx context.Context, text string) []HandoffEntry {
	env := e.call(ctx, KindHandoff, Document{Text: text})
	if env.Sanitized == "" {
		return nil
	}
	items, dropped, err := CoerceHandoff(env.Sanitized)
	logCoercion(env, len(items), dropped, err)
	if err != nil {
		return nil
	}
	return items
}

// EKG reads an EKG strip photo into structured fields.
func (e *Extractor) EKG(ctx context.Context, doc Document) *EKGFields {
	env := e.call(ctx, KindEKG, doc)
	if env.Sanitized == "" {
		return nil
	}
	fields, err := CoerceEKG(env.Sanitized)
	logCoercion(env, 1, 0, err)
	if err != nil {
		return nil
	}
	fields.Date = dateparse.NormalizeOr(fields.Date, e.refYear(), e.fallbackNow())
	return fields
}

// AdmissionNote reads an admission note into structured fields.
func (e *Extractor) AdmissionNote(ctx context.Context, doc Document) *AdmissionFields {
	env := e.call(ctx, KindAdmission, doc)
	if env.Sanitized == "" {
		return nil
	}
	fields, err := CoerceAdmission(env.Sanitized)
	logCoercion(env, 1, 0, err)
	if err != nil {
		return nil
	}
	if fields.AdmitDate != "" {
		fields.AdmitDate = dateparse.NormalizeOr(fields.AdmitDate, e.refYear(), "")
	}
	return fields
}

// DischargeSummary drafts discharge summary fields from a chart excerpt.
func (e *Extractor) DischargeSummary(ctx context.Context, doc Document) *DischargeFields {
	env := e.call(ctx, KindDischarge, doc)
	if env.Sanitized == "" {
		return nil
	}
	fields, err := CoerceDischarge(env.Sanitized)
	logCoercion(env, 1, 0, err)
	if err != nil {
		return nil
	}
	return fields
}

func logCoercion(env Envelope, kept, dropped int, err error) {
	if err != nil {
		zap.L().Warn("extraction response rejected",
			zap.String("kind", string(env.Kind)),
			zap.Error(err))
		return
	}
	zap.L().Info("extraction coerced",
		zap.String("kind", string(env.Kind)),
		zap.Int("kept", kept),
		zap.Int("dropped", dropped))
}

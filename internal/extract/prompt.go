package extract

import "fmt"

// systemPrompt is the shared system instruction for all document kinds.
const systemPrompt = `You are a clinical documentation assistant for an internal-medicine ward in Thailand. You read photographed or transcribed hospital documents and return structured data.

Rules:
- Return valid JSON for every response, nothing else
- Transcribe exactly what the document says; never invent values
- Dates on Thai documents may use the Buddhist Era year; copy them verbatim, do not convert
- Use "" for text fields you cannot read and omit unreadable list entries entirely
- Numbers without units stay numbers; qualitative results (e.g. "positive") stay strings`

// SystemPrompt returns the shared system instruction with reference context.
// currentYear lets the model resolve dates written without a year.
func SystemPrompt(currentYear int) string {
	return fmt.Sprintf("%s\n\nThe current year is %d (Buddhist Era %d).", systemPrompt, currentYear, currentYear+543)
}

// kindInstructions maps each kind to the user-message instruction describing
// its target JSON shape.
var kindInstructions = map[Kind]string{
	KindLab: `Read the lab sheet and return a JSON array of results. Columnar sheets with several date headers produce one element per test per date column.
Each element: {"testName": "", "value": <number or string>, "unit": "", "dateTime": "", "subResults": [{"name": "", "value": <number or string>, "unit": ""}]}
Omit "subResults" unless the test is a panel (e.g. CBC differential).`,

	KindMedication: `Read the medication list and return a JSON array.
Each element: {"name": "", "dose": "", "route": "", "frequency": "", "startDate": ""}`,

	KindProblem: `Read the problem list and return a JSON array.
Each element: {"problem": "", "status": "active|stable|worsening|improved|resolved", "plan": "", "system": ""}`,

	KindCulture: `Read the culture report and return a JSON array.
Each element: {"collectedDate": "", "specimen": "", "organism": "", "susceptibility": "", "status": "pending|final", "notes": ""}`,

	KindImaging: `Read the imaging report and return a JSON array of studies.
Each element: {"date": "", "modality": "", "region": "", "findings": "", "impression": ""}`,

	KindEcho: `Read the echocardiogram report and return a JSON array with one element.
Element: {"date": "", "modality": "echo", "region": "", "findings": "", "impression": ""}
Put chamber sizes, EF and valve findings in "findings" and the conclusion in "impression".`,

	KindMicroscopy: `Read the microscopy report and return a JSON array.
Each element: {"date": "", "specimen": "", "findings": ""}`,

	KindAppointment: `Read the appointment screen and return a JSON array.
Each element: {"date": "", "clinic": "", "note": ""}`,

	KindHandoff: `Split the handoff text into one entry per patient and return a JSON array.
Each element: {"hn": "", "name": "", "bed": "", "diagnosis": "", "summary": "", "tasks": ""}`,

	KindEKG: `Read the EKG and return one JSON object:
{"date": "", "rhythm": "", "rate": "", "axis": "", "intervals": "", "interpretation": ""}`,

	KindAdmission: `Read the admission note and return one JSON object:
{"chiefComplaint": "", "hpi": "", "pastHistory": "", "homeMeds": "", "physicalExam": "", "assessment": "", "plan": "", "admitDate": ""}`,

	KindDischarge: `Draft a discharge summary from the chart excerpt and return one JSON object:
{"diagnosis": "", "hospitalCourse": "", "dischargeMeds": "", "followUp": "", "condition": ""}`,
}

// Instruction returns the user-message instruction for a kind.
func Instruction(kind Kind) string {
	return kindInstructions[kind]
}

// BuildUserMessage composes the instruction with optional free text from the
// caller (transcribed notes, pasted handoff text). Image payloads travel as
// separate content blocks, not in the text.
func BuildUserMessage(kind Kind, text string) string {
	instr := Instruction(kind)
	if text == "" {
		return instr
	}
	return fmt.Sprintf("%s\n\nDocument text:\n%s", instr, text)
}

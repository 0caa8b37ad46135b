// Package reconcile merges extracted records into a patient aggregate. Every
// operation works on a deep copy and returns it; a caller's aggregate is
// never mutated, so a human can review extracted data before anything is
// committed.
package reconcile

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/wardrounds/rounds-cli/internal/model"
)

// seriesRoute maps test-name keywords to one canonical series key. The table
// is consulted once, in order; the first matching entry wins. Keywords of
// three characters or fewer must match the whole normalized name ("cr" must
// not capture "crp"), longer keywords match as substrings.
type seriesRoute struct {
	Keywords []string
	Key      string
	Label    string
}

var seriesRoutes = []seriesRoute{
	{[]string{"crp", "c-reactive"}, "crp", "CRP"},
	{[]string{"creatinine", "cr"}, "creatinine", "Creatinine"},
	{[]string{"wbc", "white blood"}, "wbc", "WBC"},
	{[]string{"hemoglobin", "haemoglobin", "hgb", "hb"}, "hemoglobin", "Hemoglobin"},
	{[]string{"hematocrit", "hct"}, "hematocrit", "Hematocrit"},
	{[]string{"platelet", "plt"}, "platelets", "Platelets"},
	{[]string{"sodium", "na"}, "sodium", "Sodium"},
	{[]string{"potassium", "k"}, "potassium", "Potassium"},
	{[]string{"chloride", "cl"}, "chloride", "Chloride"},
	{[]string{"bicarbonate", "bicarb", "hco3", "co2"}, "bicarbonate", "Bicarbonate"},
	{[]string{"bun", "urea"}, "bun", "BUN"},
	{[]string{"glucose", "fbs", "dtx", "sugar"}, "glucose", "Glucose"},
	{[]string{"calcium", "ca"}, "calcium", "Calcium"},
	{[]string{"phosphate", "phosphorus", "po4"}, "phosphate", "Phosphate"},
	{[]string{"magnesium", "mg"}, "magnesium", "Magnesium"},
	{[]string{"albumin", "alb"}, "albumin", "Albumin"},
	{[]string{"total bilirubin", "bilirubin", "tb"}, "bilirubin", "Total bilirubin"},
	{[]string{"ast", "sgot"}, "ast", "AST"},
	{[]string{"alt", "sgpt"}, "alt", "ALT"},
	{[]string{"alkaline phosphatase", "alp"}, "alp", "ALP"},
	{[]string{"inr"}, "inr", "INR"},
	{[]string{"aptt", "ptt"}, "ptt", "aPTT"},
	{[]string{"prothrombin", "pt"}, "pt", "PT"},
	{[]string{"lactate"}, "lactate", "Lactate"},
	{[]string{"troponin"}, "troponin", "Troponin"},
	{[]string{"hba1c", "a1c"}, "hba1c", "HbA1c"},
	{[]string{"tsh"}, "tsh", "TSH"},
	{[]string{"esr"}, "esr", "ESR"},
}

// SeriesKey resolves a raw test name to its canonical series key and display
// label. Names matching no route become their own "other" series keyed by the
// normalized literal name.
func SeriesKey(testName string) (key, label string) {
	name := normalizeName(testName)
	for _, route := range seriesRoutes {
		for _, kw := range route.Keywords {
			if matchKeyword(name, kw) {
				return route.Key, route.Label
			}
		}
	}
	return name, strings.TrimSpace(testName)
}

func matchKeyword(name, kw string) bool {
	if len(kw) <= 3 {
		return name == kw
	}
	return strings.Contains(name, kw)
}

// normalizeName folds an OCR'd test name to a stable comparison form: NFKC
// (full-width characters off Thai lab printouts fold to ASCII), lower case,
// collapsed inner whitespace.
func normalizeName(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// ensureSeries returns the series for key, creating it if absent. At most one
// series exists per canonical key.
func ensureSeries(p *model.Patient, key, label, unit string) *model.LabSeries {
	if p.Labs == nil {
		p.Labs = make(map[string]*model.LabSeries)
	}
	s, ok := p.Labs[key]
	if !ok {
		s = &model.LabSeries{Name: key, Label: label, Unit: unit}
		p.Labs[key] = s
	}
	if s.Unit == "" && unit != "" {
		s.Unit = unit
	}
	return s
}

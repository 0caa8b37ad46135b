package extract

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "json fence",
			input: "```json\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "plain fence",
			input: "```\n[1,2]\n```",
			want:  `[1,2]`,
		},
		{
			name:  "prose before fence",
			input: "Here is the data:\n```json\n[{\"testName\":\"WBC\",\"value\":8.1}]\n```",
			want:  `[{"testName":"WBC","value":8.1}]`,
		},
		{
			name:  "prose both sides no fence",
			input: "Sure! {\"a\": 1} Hope that helps.",
			want:  `{"a": 1}`,
		},
		{
			name:  "array before object picks array",
			input: `results: [1,2,{"a":1}] trailing`,
			want:  `[1,2,{"a":1}]`,
		},
		{
			name:  "object before array picks object",
			input: `{"items":[1,2]} and [3,4]`,
			want:  `{"items":[1,2]}`,
		},
		{
			name:  "braces inside string literals",
			input: `{"note":"use } carefully [here]"}`,
			want:  `{"note":"use } carefully [here]"}`,
		},
		{
			name:  "escaped quotes inside strings",
			input: `prefix {"a":"he said \"}\" loudly"} suffix`,
			want:  `{"a":"he said \"}\" loudly"}`,
		},
		{
			name:  "truncated container best effort",
			input: `{"a":[1,2]`,
			want:  `{"a":[1,2]`,
		},
		{
			name:  "no json at all",
			input: "   no structured data here  ",
			want:  "no structured data here",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		`{"a":1}`,
		`[{"testName":"WBC","value":8.1}]`,
		"```json\n{\"a\":1}\n```",
		"prose {\"a\":1} prose",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestSanitize_NeverPanics(t *testing.T) {
	for _, in := range []string{"{{{{", "]]]]", "```json", `"unterminated`, "```\n```"} {
		_ = Sanitize(in) // must not panic
	}
}

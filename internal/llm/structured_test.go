package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type verdict struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

func TestDecodeJSON(t *testing.T) {
	fallback := verdict{Status: "APPROVED", Feedback: "fallback"}

	testCases := []struct {
		name   string
		raw    string
		wantOK bool
		want   verdict
	}{
		{
			name:   "bare object",
			raw:    `{"status":"REJECTED","feedback":"too technical"}`,
			wantOK: true,
			want:   verdict{Status: "REJECTED", Feedback: "too technical"},
		},
		{
			name:   "wrapped in prose",
			raw:    "Sure! Here is my analysis:\n{\"status\":\"APPROVED\",\"feedback\":\"\"}\nHope that helps.",
			wantOK: true,
			want:   verdict{Status: "APPROVED", Feedback: ""},
		},
		{
			name:   "markdown fence",
			raw:    "```json\n{\"status\": \"REJECTED\", \"feedback\": \"use simpler words\"}\n```",
			wantOK: true,
			want:   verdict{Status: "REJECTED", Feedback: "use simpler words"},
		},
		{
			name:   "nested braces",
			raw:    `{"status":"APPROVED","feedback":"object {inside} braces"}`,
			wantOK: true,
			want:   verdict{Status: "APPROVED", Feedback: "object {inside} braces"},
		},
		{
			name:   "escaped quote in string",
			raw:    `{"status":"APPROVED","feedback":"she said \"hi\" {not a brace}"}`,
			wantOK: true,
			want:   verdict{Status: "APPROVED", Feedback: `she said "hi" {not a brace}`},
		},
		{
			name:   "no object at all",
			raw:    "I cannot answer that in JSON form.",
			wantOK: false,
			want:   fallback,
		},
		{
			name:   "unbalanced braces",
			raw:    `{"status":"REJECTED"`,
			wantOK: false,
			want:   fallback,
		},
		{
			name:   "malformed json",
			raw:    `{"status": REJECTED}`,
			wantOK: false,
			want:   fallback,
		},
		{
			name:   "empty input",
			raw:    "",
			wantOK: false,
			want:   fallback,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := DecodeJSON(tc.raw, fallback)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeJSON_UnknownFieldsIgnored(t *testing.T) {
	got, ok := DecodeJSON(`{"status":"APPROVED","extra":42}`, verdict{})
	assert.True(t, ok)
	assert.Equal(t, "APPROVED", got.Status)
}

func TestDecodeJSON_FirstObjectWins(t *testing.T) {
	raw := `{"status":"FIRST"} and later {"status":"SECOND"}`
	got, ok := DecodeJSON(raw, verdict{})
	assert.True(t, ok)
	assert.Equal(t, "FIRST", got.Status)
}

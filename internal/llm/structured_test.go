package llm

import (
	"errors"
	"testing"
)

func TestDecodeStructured(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
		wantVal string
		wantErr bool
	}{
		{
			name:    "plain object",
			input:   `{"intention": "retrieve_new"}`,
			wantKey: "intention",
			wantVal: "retrieve_new",
		},
		{
			name:    "fenced object",
			input:   "```json\n{\"format\": \"raw\"}\n```",
			wantKey: "format",
			wantVal: "raw",
		},
		{
			name:    "fence without language tag",
			input:   "```\n{\"format\": \"figure\"}```",
			wantKey: "format",
			wantVal: "figure",
		},
		{name: "empty", input: "   ", wantErr: true},
		{name: "array", input: `["raw"]`, wantErr: true},
		{name: "null", input: `null`, wantErr: true},
		{name: "prose", input: `I think the patient is 032`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := DecodeStructured(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedOutput) {
					t.Errorf("Expected ErrMalformedOutput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got, _ := fields[tt.wantKey].(string); got != tt.wantVal {
				t.Errorf("fields[%q] = %q, want %q", tt.wantKey, got, tt.wantVal)
			}
		})
	}
}

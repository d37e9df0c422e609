package llm

import (
	"errors"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/m-mizutani/goerr/v2"
)

// ErrMalformedOutput is returned when a structured completion is not a JSON object
var ErrMalformedOutput = errors.New("malformed structured output")

// DecodeStructured parses a JSON object out of a completion. Markdown code
// fences around the object are tolerated.
func DecodeStructured(content string) (map[string]any, error) {
	raw := stripFence(content)
	if raw == "" {
		return nil, goerr.Wrap(ErrMalformedOutput, "empty completion")
	}

	var fields map[string]any
	if err := sonic.UnmarshalString(raw, &fields); err != nil {
		return nil, goerr.Wrap(ErrMalformedOutput, err.Error(), goerr.V("content", raw))
	}
	if fields == nil {
		return nil, goerr.Wrap(ErrMalformedOutput, "not an object", goerr.V("content", raw))
	}
	return fields, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ClassifyOutput is the classifier's raw result shape.
type ClassifyOutput struct {
	Action   *string `json:"action"`
	Response string  `json:"response"`
}

// ParseClassifyOutput validates and coerces the classifier's model output.
// A JSON "null" action or the literal string "null" both mean no action.
func ParseClassifyOutput(content string) (*ClassifyOutput, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no valid JSON found in classifier output")
	}

	var out ClassifyOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse classifier output: %w", err)
	}
	if out.Action != nil {
		v := strings.ToLower(strings.TrimSpace(*out.Action))
		if v == "" || v == "null" || v == "none" {
			out.Action = nil
		} else {
			out.Action = &v
		}
	}
	return &out, nil
}

// ComposeOutput is the composer's raw result shape.
type ComposeOutput struct {
	URL    string         `json:"url"`
	Method string         `json:"method"`
	Body   map[string]any `json:"body"`
}

// ParseComposeOutput validates the composer's model output. The body must
// be a JSON object; everything else is a composition failure.
func ParseComposeOutput(content string) (*ComposeOutput, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no valid JSON found in composer output")
	}

	var out ComposeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse composer output: %w", err)
	}
	if out.Body == nil {
		return nil, fmt.Errorf("composer output has no body object")
	}
	return &out, nil
}

// ParseProfilePatch parses a profile-extraction result into a flat map of
// non-empty string attributes. Non-string values are dropped.
func ParseProfilePatch(content string) (map[string]string, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no valid JSON found in extraction output")
	}

	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("failed to parse extraction output: %w", err)
	}

	patch := make(map[string]string)
	for k, v := range generic {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		patch[k] = s
	}
	return patch, nil
}

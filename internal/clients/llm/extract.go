package llm

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

var ErrNoJSON = errors.New("no JSON found in model output")

// ExtractObject decodes the outermost {...} span of raw into v. Models often
// wrap their JSON in prose or code fences.
func ExtractObject(raw string, v any) error {
	return extract(raw, "{", "}", v)
}

// ExtractArray decodes the outermost [...] span of raw into v.
func ExtractArray(raw string, v any) error {
	return extract(raw, "[", "]", v)
}

func extract(raw, open, closing string, v any) error {
	start := strings.Index(raw, open)
	end := strings.LastIndex(raw, closing)
	if start < 0 || end <= start {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

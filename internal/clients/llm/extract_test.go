package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject_FencedAndProse(t *testing.T) {
	raw := "Sure, here is the profile:\n```json\n{\"tone\": {\"intensity\": 7}}\n```\nLet me know!"

	var out struct {
		Tone struct {
			Intensity int `json:"intensity"`
		} `json:"tone"`
	}
	require.NoError(t, ExtractObject(raw, &out))
	assert.Equal(t, 7, out.Tone.Intensity)
}

func TestExtractArray(t *testing.T) {
	raw := "```\n[{\"text\":\"a\"},{\"text\":\"b\"}]\n```"

	var out []struct {
		Text string `json:"text"`
	}
	require.NoError(t, ExtractArray(raw, &out))
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[1].Text)
}

func TestExtract_NoJSON(t *testing.T) {
	var out map[string]any
	assert.True(t, errors.Is(ExtractObject("I cannot help with that.", &out), ErrNoJSON))

	var arr []any
	assert.True(t, errors.Is(ExtractArray("] backwards [", &arr), ErrNoJSON))
}

func TestExtract_MalformedJSON(t *testing.T) {
	var out map[string]any
	err := ExtractObject("{\"a\": }", &out)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoJSON))
}

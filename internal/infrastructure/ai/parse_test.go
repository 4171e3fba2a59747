package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONArray(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "plain array",
			input: `["a","b"]`,
			want:  []string{"a", "b"},
		},
		{
			name:  "json fenced block",
			input: "```json\n[\"a\",\"b\"]\n```",
			want:  []string{"a", "b"},
		},
		{
			name:  "prose around the array",
			input: "Here are the results:\n[\"a\"]\nLet me know if you need more.",
			want:  []string{"a"},
		},
		{
			name:    "no array at all",
			input:   "I could not process the request.",
			wantErr: true,
		},
		{
			name:    "malformed array",
			input:   `["a",`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			err := extractJSONArray(tt.input, &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONArrayNestedBrackets(t *testing.T) {
	t.Parallel()

	var got []struct {
		IDs []string `json:"ids"`
	}
	err := extractJSONArray("```\n[{\"ids\":[\"x\",\"y\"]}]\n```", &got)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"x", "y"}, got[0].IDs)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc", truncate("abcdef", 3))

	// Multi-byte text must stay valid UTF-8 after the cut.
	got := truncate("한국어 텍스트", 4)
	assert.Equal(t, "한", got)
}

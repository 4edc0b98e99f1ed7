package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgv(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"comment", "# disabled", nil},
		{"plain", "hark engine-worker", []string{"hark", "engine-worker"}},
		{"quoted", `whisper --model "base en"`, []string{"whisper", "--model", "base en"}},
		{"single quoted", `sh -c 'echo hi'`, []string{"sh", "-c", "echo hi"}},
		{"escaped space", `run my\ file`, []string{"run", "my file"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgv(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseArgvUnterminatedQuote(t *testing.T) {
	_, err := parseArgv(`run "half`)
	require.Error(t, err)
}

func TestParseArgvUnterminatedEscape(t *testing.T) {
	_, err := parseArgv(`run half\`)
	require.Error(t, err)
}

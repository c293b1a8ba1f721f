package cryptox

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]struct{})
	for range 200 {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		require.True(t, IsWellFormedCode(code), "code %q should be six digits", code)
		seen[code] = struct{}{}
	}
	// 200 draws from a million codes; a handful of collisions at most.
	require.Greater(t, len(seen), 190)
}

func TestGenerateCode_DigitDistribution(t *testing.T) {
	var counts [10]int
	for range 2000 {
		code, err := GenerateCode()
		require.NoError(t, err)
		for _, c := range code {
			counts[c-'0']++
		}
	}
	// 12000 digits, expected 1200 each.
	for d, n := range counts {
		require.Greater(t, n, 900, "digit %d underrepresented", d)
		require.Less(t, n, 1500, "digit %d overrepresented", d)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerateCode_ReaderError(t *testing.T) {
	code, err := generateCode(failingReader{})
	require.Error(t, err)
	require.Empty(t, code)
}

func TestGenerateCode_DeterministicReader(t *testing.T) {
	code, err := generateCode(bytes.NewReader(bytes.Repeat([]byte{0x03}, 64)))
	require.NoError(t, err)
	require.Equal(t, "333333", code)
}

func TestIsWellFormedCode(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"000000", true},
		{"123456", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{" 123456", false},
		{"", false},
		{"١٢٣٤٥٦", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, IsWellFormedCode(tt.in), "input %q", tt.in)
	}
}

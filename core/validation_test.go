package core

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain name", input: "docs", want: "docs"},
		{name: "surrounding whitespace is trimmed", input: "  docs\t", want: "docs"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: " \n\t ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateCollectionName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeText(t *testing.T) {
	// "\xed\xa0\x80" is U+D800 in generalized UTF-8, "\xed\xbf\xbf" is U+DFFF
	tests := []struct {
		name        string
		input       string
		want        string
		wantRemoved int
	}{
		{name: "clean ascii", input: "hello world", want: "hello world"},
		{name: "clean multibyte", input: "héllo 世界 🙂", want: "héllo 世界 🙂"},
		{name: "lone high surrogate", input: "a\xed\xa0\x80b", want: "ab", wantRemoved: 1},
		{name: "lone low surrogate", input: "a\xed\xbf\xbfb", want: "ab", wantRemoved: 1},
		{name: "surrogate pair", input: "x\xed\xa0\xbd\xed\xb8\x80y", want: "xy", wantRemoved: 2},
		{name: "stray invalid byte", input: "bad\xffbyte", want: "badbyte", wantRemoved: 1},
		{name: "only surrogates", input: "\xed\xa0\x80\xed\xa0\x81", want: "", wantRemoved: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed := SanitizeText(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRemoved, removed)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestSanitizeText_NoSurrogatesRemain(t *testing.T) {
	input := strings.Repeat("text \xed\xa0\x80 more \xed\xbf\xbf ", 50)
	got, removed := SanitizeText(input)

	assert.Equal(t, 100, removed)
	for _, r := range got {
		assert.False(t, r >= 0xD800 && r <= 0xDFFF, "surrogate %U survived", r)
	}
	assert.NotContains(t, got, "\xed\xa0")
	assert.NotContains(t, got, "\xed\xbf")
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("   \n\t"))
	assert.False(t, IsBlank(" a "))
}

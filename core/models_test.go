package core

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentID_Deterministic(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		source     string
		text       string
	}{
		{name: "simple content", collection: "docs", source: "chunk_0", text: "test content"},
		{name: "empty text", collection: "docs", source: "chunk_1", text: ""},
		{name: "long content", collection: "manuals", source: "chunk_42", text: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := ContentID(tt.collection, tt.source, tt.text)
			id2 := ContentID(tt.collection, tt.source, tt.text)
			assert.Equal(t, id1, id2)

			parsed, err := uuid.Parse(id1)
			require.NoError(t, err)
			assert.Equal(t, uuid.Version(4), parsed.Version())
			assert.Equal(t, uuid.RFC4122, parsed.Variant())
		})
	}
}

func TestContentID_Different(t *testing.T) {
	base := ContentID("docs", "chunk_0", "content")

	assert.NotEqual(t, base, ContentID("docs", "chunk_0", "content2"))
	assert.NotEqual(t, base, ContentID("docs", "chunk_1", "content"))
	assert.NotEqual(t, base, ContentID("other", "chunk_0", "content"))
	// Field boundaries are significant
	assert.NotEqual(t, ContentID("ab", "c", "d"), ContentID("a", "bc", "d"))
}

func TestNewPointID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewPointID()
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "chunk_0", SourceLabel(0))
	assert.Equal(t, "chunk_249", SourceLabel(249))
}

func TestParseSourceLabel(t *testing.T) {
	tests := []struct {
		label string
		want  int
		ok    bool
	}{
		{label: "chunk_0", want: 0, ok: true},
		{label: SourceLabel(42), want: 42, ok: true},
		{label: "chunk_", ok: false},
		{label: "chunk_-1", ok: false},
		{label: "page_3", ok: false},
		{label: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := ParseSourceLabel(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		input   string
		want    Distance
		wantErr bool
	}{
		{input: "", want: DistanceCosine},
		{input: "COSINE", want: DistanceCosine},
		{input: "euclid", want: DistanceEuclid},
		{input: "l2", want: DistanceEuclid},
		{input: "dot", want: DistanceDot},
		{input: "manhattan", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDistance(tt.input)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPartialFailure(t *testing.T) {
	cause := errors.New("throttled")
	pf := &PartialFailure{Failed: []int{1}, Total: 3, Causes: []error{cause}}

	assert.Contains(t, pf.Error(), "1 of 3 batches failed")
	assert.Contains(t, pf.Error(), "batch 1: throttled")
	assert.True(t, errors.Is(pf, cause))

	var target *PartialFailure
	wrapped := errors.Join(errors.New("context"), pf)
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, 3, target.Total)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrTransientTransport))
	assert.True(t, IsTransient(errors.Join(errors.New("upsert"), ErrTransientTransport)))
	assert.False(t, IsTransient(ErrInvalidArgument))
	assert.False(t, IsTransient(nil))
}

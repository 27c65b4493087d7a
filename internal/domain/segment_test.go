package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawSegment_Validate(t *testing.T) {
	tests := []struct {
		name    string
		seg     RawSegment
		wantErr bool
	}{
		{"valid", RawSegment{ID: "s1", Start: 1, End: 3}, false},
		{"zero length", RawSegment{ID: "s1", Start: 2, End: 2}, false},
		{"blank id", RawSegment{ID: "  ", Start: 0, End: 1}, true},
		{"ends before start", RawSegment{ID: "s1", Start: 3, End: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.seg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewFeaturizedSegment_CopiesFeatures(t *testing.T) {
	features := []float64{0.1, 0.2}
	seg, err := NewFeaturizedSegment(RawSegment{ID: "s1", End: 2}, features, "Am")
	require.NoError(t, err)

	features[0] = 9
	assert.Equal(t, []float64{0.1, 0.2}, seg.Features)
	assert.Equal(t, "Am", seg.Key)
	assert.Equal(t, 2.0, seg.Duration())
}

func TestNodesFromSegments(t *testing.T) {
	segments := make([]FeaturizedSegment, 3)
	for i := range segments {
		var err error
		segments[i], err = NewFeaturizedSegment(RawSegment{
			ID:          fmt.Sprintf("seg_%d", i),
			ParentGroup: "song_a",
			AudioRef:    fmt.Sprintf("seg_%d.wav", i),
		}, nil, "")
		require.NoError(t, err)
	}

	nodes, err := NodesFromSegments(segments)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	for i, node := range nodes {
		assert.Equal(t, i, node.Index)
		assert.Equal(t, segments[i].ID, node.SegmentID)
		assert.Equal(t, segments[i].AudioRef, node.AudioRef)
	}

	segments[2].ID = "seg_0"
	_, err = NodesFromSegments(segments)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestNewGraphNode_NegativeIndex(t *testing.T) {
	_, err := NewGraphNode(-1, FeaturizedSegment{RawSegment: RawSegment{ID: "s"}})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestIsValidation(t *testing.T) {
	for _, err := range []error{ErrShape, ErrAsymmetry, ErrDegenerateInput, ErrNonFinite, ErrInvalidParameter, ErrExhaustedTrajectory} {
		assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
	assert.False(t, IsValidation(ErrNotFound))
	assert.False(t, IsValidation(fmt.Errorf("disk: %w", assert.AnError)))
}

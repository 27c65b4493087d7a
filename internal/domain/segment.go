package domain

import (
	"fmt"
	"strings"
)

// RawSegment is a beat-aligned slice of a source track as produced by the
// slicing stage. It carries identity and timing only.
type RawSegment struct {
	ID          string  `json:"id"`
	ParentGroup string  `json:"parent_group"` // Source track the segment was cut from
	Start       float64 `json:"start"`        // Seconds
	End         float64 `json:"end"`          // Seconds
	AudioRef    string  `json:"audio_ref"`    // Location of the rendered segment audio
}

// Validate checks the identity and timing fields of a raw segment
func (s RawSegment) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: segment id is required", ErrInvalidParameter)
	}
	if s.End < s.Start {
		return fmt.Errorf("%w: segment %s ends before it starts", ErrInvalidParameter, s.ID)
	}
	return nil
}

// Duration returns the segment length in seconds
func (s RawSegment) Duration() float64 {
	return s.End - s.Start
}

// FeaturizedSegment is a RawSegment after feature extraction. The feature
// vector is copied on construction so the value stays immutable.
type FeaturizedSegment struct {
	RawSegment
	Features []float64 `json:"features,omitempty"`
	Key      string    `json:"key,omitempty"` // Musical key, empty when unknown
}

// NewFeaturizedSegment attaches features to a raw segment
func NewFeaturizedSegment(raw RawSegment, features []float64, key string) (FeaturizedSegment, error) {
	if err := raw.Validate(); err != nil {
		return FeaturizedSegment{}, err
	}
	f := make([]float64, len(features))
	copy(f, features)
	return FeaturizedSegment{RawSegment: raw, Features: f, Key: key}, nil
}

// GraphNode is a segment placed at a fixed row/column of the compatibility graph.
// Index is the node's position in the adjacency matrix.
type GraphNode struct {
	Index       int    `json:"index"`
	SegmentID   string `json:"segment_id"`
	ParentGroup string `json:"parent_group"`
	AudioRef    string `json:"audio_ref"`
	Key         string `json:"key,omitempty"`
}

// NewGraphNode places a featurized segment at the given graph index
func NewGraphNode(index int, seg FeaturizedSegment) (GraphNode, error) {
	if index < 0 {
		return GraphNode{}, fmt.Errorf("%w: negative node index %d", ErrInvalidParameter, index)
	}
	if err := seg.Validate(); err != nil {
		return GraphNode{}, err
	}
	return GraphNode{
		Index:       index,
		SegmentID:   seg.ID,
		ParentGroup: seg.ParentGroup,
		AudioRef:    seg.AudioRef,
		Key:         seg.Key,
	}, nil
}

// NodesFromSegments builds graph nodes in slice order (index i = segments[i]).
func NodesFromSegments(segments []FeaturizedSegment) ([]GraphNode, error) {
	nodes := make([]GraphNode, len(segments))
	seen := make(map[string]struct{}, len(segments))
	for i, seg := range segments {
		if _, dup := seen[seg.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate segment id %s", ErrInvalidParameter, seg.ID)
		}
		seen[seg.ID] = struct{}{}

		node, err := NewGraphNode(i, seg)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}
	return nodes, nil
}

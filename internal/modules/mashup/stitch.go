package mashup

import (
	"fmt"

	"github.com/epoch-iith/qmashup/internal/config"
	"github.com/epoch-iith/qmashup/internal/domain"
)

// StitchSegment is one entry of the playback order
type StitchSegment struct {
	Step        int    `json:"step"`
	Node        int    `json:"node"`
	SegmentID   string `json:"segment_id"`
	ParentGroup string `json:"parent_group"`
	AudioRef    string `json:"audio_ref"`
}

// StitchPlan tells the audio collaborator which segments to concatenate and
// how long each crossfade is. No audio is touched here.
type StitchPlan struct {
	SampleRate       int             `json:"sample_rate"`
	CrossfadeMS      int             `json:"crossfade_ms"`
	CrossfadeSamples int             `json:"crossfade_samples"`
	Segments         []StitchSegment `json:"segments"`
}

// BuildStitchPlan resolves a path against the graph nodes
func BuildStitchPlan(path []int, nodes []domain.GraphNode, audio config.AudioConfig) (StitchPlan, error) {
	plan := StitchPlan{
		SampleRate:       audio.SampleRate,
		CrossfadeMS:      audio.CrossfadeMS,
		CrossfadeSamples: audio.CrossfadeSamples(),
		Segments:         make([]StitchSegment, len(path)),
	}
	for step, idx := range path {
		if idx < 0 || idx >= len(nodes) {
			return StitchPlan{}, fmt.Errorf("%w: path step %d references node %d of %d", domain.ErrInvalidParameter, step, idx, len(nodes))
		}
		n := nodes[idx]
		plan.Segments[step] = StitchSegment{
			Step:        step,
			Node:        idx,
			SegmentID:   n.SegmentID,
			ParentGroup: n.ParentGroup,
			AudioRef:    n.AudioRef,
		}
	}
	return plan, nil
}

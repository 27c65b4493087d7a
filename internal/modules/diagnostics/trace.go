package diagnostics

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"

	"github.com/epoch-iith/qmashup/internal/domain"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

// DefaultTracePeriod is the EMA period used when none is requested
const DefaultTracePeriod = 10

// Trace is one node's probability over time
type Trace struct {
	Node     int       `json:"node"`
	Period   int       `json:"period"`
	Raw      []float64 `json:"raw"`
	Smoothed []float64 `json:"smoothed"`

	PeakStep        int     `json:"peak_step"`
	PeakProbability float64 `json:"peak_probability"`
	Mean            float64 `json:"mean"`
}

// NodeTrace extracts the probability column of node and smooths it with an
// exponential moving average. The first period-1 smoothed values, where the
// average has not warmed up yet, repeat the raw values. A period below 2 or
// longer than the trajectory leaves the series unsmoothed.
func NodeTrace(traj *quantum.Trajectory, node, period int) (*Trace, error) {
	if traj == nil {
		return nil, fmt.Errorf("%w: trajectory is nil", domain.ErrShape)
	}
	steps, nodes := traj.Dims()
	if node < 0 || node >= nodes {
		return nil, fmt.Errorf("%w: node %d outside [0,%d)", domain.ErrInvalidParameter, node, nodes)
	}
	if period < 0 {
		return nil, fmt.Errorf("%w: period must be >= 0, got %d", domain.ErrInvalidParameter, period)
	}
	if period == 0 {
		period = DefaultTracePeriod
	}

	raw := traj.Column(node)
	smoothed := make([]float64, steps)
	copy(smoothed, raw)

	if period >= 2 && period <= steps {
		ema := talib.Ema(raw, period)
		copy(smoothed[period-1:], ema[period-1:])
	}

	peak := floats.MaxIdx(raw)
	return &Trace{
		Node:            node,
		Period:          period,
		Raw:             raw,
		Smoothed:        smoothed,
		PeakStep:        peak,
		PeakProbability: raw[peak],
		Mean:            floats.Sum(raw) / float64(steps),
	}, nil
}

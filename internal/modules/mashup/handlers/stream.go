package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"github.com/epoch-iith/qmashup/internal/modules/mashup"
	"github.com/epoch-iith/qmashup/internal/modules/pathing"
)

// Replay pacing
const (
	DefaultStepDelay = 250 * time.Millisecond
	MinStepDelay     = 50 * time.Millisecond
	MaxStepDelay     = 600 * time.Millisecond

	writeWait = 5 * time.Second
)

// Stream message types
const (
	MessageStep = "step"
	MessageDone = "done"
)

// StreamMessage is one frame of a run replay
type StreamMessage struct {
	Type    string                `json:"type"`
	RunID   string                `json:"run_id"`
	Step    *pathing.Step         `json:"step,omitempty"`
	Segment *mashup.StitchSegment `json:"segment,omitempty"`
	Total   int                   `json:"total"`
}

// stepDelay reads the delay query parameter in milliseconds and clamps it to
// [MinStepDelay, MaxStepDelay]
func stepDelay(r *http.Request) (time.Duration, error) {
	v := r.URL.Query().Get("delay")
	if v == "" {
		return DefaultStepDelay, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("delay must be an integer number of milliseconds")
	}
	d := time.Duration(ms) * time.Millisecond
	return min(max(d, MinStepDelay), MaxStepDelay), nil
}

// HandleStream handles GET /api/mashup/runs/{id}/stream
//
// It replays a stored run over a websocket, one step per frame, pausing
// between frames like the live path animation. A final "done" frame closes
// the replay.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	delay, err := stepDelay(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	run, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "Failed to get run")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to accept websocket")
		return
	}
	defer conn.CloseNow()

	// Client frames are ignored; the context ends when the client goes away.
	// Request deadlines do not apply once the connection is upgraded.
	ctx := conn.CloseRead(context.WithoutCancel(r.Context()))

	if err := h.replay(ctx, conn, run, delay); err != nil {
		if ctx.Err() == nil {
			h.log.Warn().Err(err).Str("run_id", run.ID).Msg("Replay aborted")
		}
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) replay(ctx context.Context, conn *websocket.Conn, run *mashup.Run, delay time.Duration) error {
	total := len(run.Path.Steps)
	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for i := range run.Path.Steps {
		msg := StreamMessage{Type: MessageStep, RunID: run.ID, Step: &run.Path.Steps[i], Total: total}
		if i < len(run.Stitch.Segments) {
			msg.Segment = &run.Stitch.Segments[i]
		}
		if err := writeMessage(ctx, conn, msg); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return writeMessage(ctx, conn, StreamMessage{Type: MessageDone, RunID: run.ID, Total: total})
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

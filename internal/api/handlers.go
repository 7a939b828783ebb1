package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"grid-arena/internal/game"
	"grid-arena/internal/input"
	"grid-arena/internal/sfx"
)

// maxBodyBytes caps request bodies; every request here is a tiny JSON object
const maxBodyBytes = 4 << 10

// Handler methods for routerHandlers

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	// Clone so the response never aliases engine-owned slices
	writeJSON(w, h.engine.GetSnapshot().Clone())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetSnapshot()
	stats := map[string]interface{}{
		"tick":           h.engine.TickCount(),
		"sequence":       snap.Sequence,
		"state":          snap.State,
		"gridSize":       snap.GridSize,
		"activePatterns": len(snap.Patterns),
		"eventLog":       h.engine.GetEventLogStats(),
		"sfx":            h.sounds.Stats(),
		"rateLimit":      h.limiter.GetStats(),
	}
	if h.queue != nil {
		stats["queue"] = h.queue.Stats()
	}
	if h.sockets != nil {
		stats["sockets"] = h.sockets.GetStats()
	}
	writeJSON(w, stats)
}

type tagJSON struct {
	Pattern uint64 `json:"pattern"`
	Zone    string `json:"zone"`
}

func (h *routerHandlers) handleGetCell(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, "cell index must be an integer", http.StatusBadRequest)
		return
	}
	tags, err := h.engine.CellTags(index)
	if err != nil {
		writeGameError(w, err)
		return
	}

	size := h.engine.GridSize()
	out := make([]tagJSON, 0, len(tags))
	lethal, safe := false, false
	for _, t := range tags {
		out = append(out, tagJSON{Pattern: t.Pattern, Zone: t.Zone.String()})
		lethal = lethal || t.Zone.Lethal()
		safe = safe || t.Zone == game.ZoneSafe
	}
	writeJSON(w, map[string]interface{}{
		"index":  index,
		"x":      index % size,
		"y":      index / size,
		"tags":   out,
		"lethal": lethal && !safe,
	})
}

func (h *routerHandlers) handleGetHighScore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]int{"highScore": h.engine.HighScore()})
}

type waveJSON struct {
	Score   int      `json:"score"`
	Seconds int      `json:"durationSeconds"`
	Kinds   []string `json:"kinds"`
}

func (h *routerHandlers) handleGetWaves(w http.ResponseWriter, r *http.Request) {
	waves := h.engine.Waves()
	out := make([]waveJSON, 0, len(waves))
	for _, wv := range waves {
		kinds := make([]string, len(wv.Kinds))
		for i, k := range wv.Kinds {
			kinds[i] = k.String()
		}
		out = append(out, waveJSON{Score: wv.Score, Seconds: int(wv.Duration / time.Second), Kinds: kinds})
	}

	snap := h.engine.GetSnapshot().Clone()
	writeJSON(w, map[string]interface{}{
		"waves":  out,
		"active": snap.Wave,
	})
}

func (h *routerHandlers) handleGetPatterns(w http.ResponseWriter, r *http.Request) {
	kinds := make([]string, 0, 8)
	for k := game.PatternCross; k <= game.PatternGuardian; k++ {
		kinds = append(kinds, k.String())
	}
	snap := h.engine.GetSnapshot().Clone()
	writeJSON(w, map[string]interface{}{
		"kinds":  kinds,
		"active": snap.Patterns,
	})
}

func (h *routerHandlers) handleStart(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, input.Command{Type: input.CmdStart})
}

func (h *routerHandlers) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
		Dash      bool   `json:"dash"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	dir, err := game.ParseDirection(req.Direction)
	if err != nil {
		writeGameError(w, err)
		return
	}
	h.apply(w, r, input.Command{Type: input.CmdMove, Direction: dir, Dash: req.Dash})
}

func (h *routerHandlers) handleDash(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, input.Command{Type: input.CmdDash})
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var msg input.Message
	if !decodeJSON(w, r, &msg) {
		return
	}
	cmd, err := msg.ToCommand(GetClientIP(r))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.apply(w, r, cmd)
}

func (h *routerHandlers) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]int{
		"size":    h.engine.GridSize(),
		"minSize": game.MinGridSize,
		"maxSize": game.MaxGridSize,
	})
}

func (h *routerHandlers) handleSetGrid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Size  int `json:"size"`
		Delta int `json:"delta"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	switch {
	case req.Size != 0:
		h.apply(w, r, input.Command{Type: input.CmdResize, Size: req.Size})
	case req.Delta > 0:
		h.apply(w, r, input.Command{Type: input.CmdGrow})
	case req.Delta < 0:
		h.apply(w, r, input.Command{Type: input.CmdShrink})
	default:
		writeError(w, "size or delta is required", http.StatusBadRequest)
	}
}

func (h *routerHandlers) handleSpawn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
		Cell int    `json:"cell"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, err := game.ParsePatternKind(req.Kind)
	if err != nil {
		writeGameError(w, err)
		return
	}
	h.apply(w, r, input.Command{Type: input.CmdSpawn, Kind: kind, Cell: req.Cell})
}

func (h *routerHandlers) handleFrame(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	data, err := h.renderer.PNG(h.engine.GetSnapshot().Clone())
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	RecordRender(time.Since(start))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (h *routerHandlers) handleSound(w http.ResponseWriter, r *http.Request) {
	cue, err := sfx.ParseCue(chi.URLParam(r, "cue"))
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	data, err := h.sounds.WAV(cue)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

// apply runs cmd through the input handler and answers with the outcome
// and the resulting snapshot
func (h *routerHandlers) apply(w http.ResponseWriter, r *http.Request, cmd input.Command) {
	if cmd.Source == "" {
		cmd.Source = GetClientIP(r)
	}
	if cmd.ReceivedAt.IsZero() {
		cmd.ReceivedAt = time.Now()
	}

	res, err := h.input.Process(cmd)
	switch {
	case err != nil:
		writeGameError(w, err)
		return
	case res == input.RateLimited:
		writeError(w, "too many commands", http.StatusTooManyRequests)
		return
	}

	writeJSON(w, map[string]interface{}{
		"result":   res.String(),
		"snapshot": h.engine.GetSnapshot().Clone(),
	})
}

// Helper functions (package-level for reuse)

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

// writeGameError maps game sentinel errors to HTTP status codes
func writeGameError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrInvalidCell),
		errors.Is(err, game.ErrUnknownDirection),
		errors.Is(err, game.ErrUnknownPattern):
		code = http.StatusBadRequest
	case errors.Is(err, game.ErrNotRunning),
		errors.Is(err, game.ErrResizeWhileRunning):
		code = http.StatusConflict
	}
	writeError(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

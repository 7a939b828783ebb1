package sfx

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// Bank encodes cues to WAV on first use and keeps the bytes
type Bank struct {
	cfg Config

	mu    sync.RWMutex
	cache map[Cue][]byte
	hits  uint64
	miss  uint64
}

// NewBank creates an empty bank
func NewBank(cfg Config) *Bank {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	return &Bank{cfg: cfg, cache: make(map[Cue][]byte)}
}

// WAV returns the cue as a 16-bit stereo WAV file
func (b *Bank) WAV(c Cue) ([]byte, error) {
	b.mu.RLock()
	data, ok := b.cache[c]
	b.mu.RUnlock()
	if ok {
		b.mu.Lock()
		b.hits++
		b.mu.Unlock()
		return data, nil
	}

	data, err := EncodeWAV(c, b.cfg)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.miss++
	if cached, ok := b.cache[c]; ok {
		return cached, nil
	}
	b.cache[c] = data
	return data, nil
}

// Warm encodes every cue up front
func (b *Bank) Warm() error {
	for _, c := range Cues() {
		if _, err := b.WAV(c); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns cache statistics
func (b *Bank) Stats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]interface{}{
		"cached": len(b.cache),
		"hits":   b.hits,
		"misses": b.miss,
	}
}

// EncodeWAV synthesizes c and encodes it as WAV
func EncodeWAV(c Cue, cfg Config) ([]byte, error) {
	s, err := Streamer(c, cfg)
	if err != nil {
		return nil, err
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(cfg.SampleRate),
		NumChannels: 2,
		Precision:   2,
	}
	var buf writeSeeker
	if err := wav.Encode(&buf, s, format); err != nil {
		return nil, fmt.Errorf("encode %s: %w", c, err)
	}
	return buf.data, nil
}

// writeSeeker is an in-memory io.WriteSeeker for wav.Encode,
// which seeks back to patch the header sizes.
type writeSeeker struct {
	data []byte
	pos  int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > len(w.data) {
		w.data = append(w.data, make([]byte, end-len(w.data))...)
	}
	copy(w.data[w.pos:], p)
	w.pos = end
	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(w.pos) + offset
	case io.SeekEnd:
		next = int64(len(w.data)) + offset
	default:
		return 0, errors.New("seek: invalid whence")
	}
	if next < 0 {
		return 0, errors.New("seek: negative position")
	}
	w.pos = int(next)
	return next, nil
}

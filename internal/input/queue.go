package input

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Processor applies a dequeued command
type Processor interface {
	Process(cmd Command) (Result, error)
}

// CommandQueue provides a non-blocking queue for player commands.
// This decouples socket readers and HTTP handlers from the engine lock.
type CommandQueue struct {
	commands  chan Command
	processor Processor
	workers   int
	wg        sync.WaitGroup
	running   atomic.Bool
	stopChan  chan struct{}

	// Metrics
	enqueued    atomic.Uint64
	processed   atomic.Uint64
	dropped     atomic.Uint64
	failed      atomic.Uint64
	avgWaitTime atomic.Int64 // nanoseconds, exponential moving average
}

// QueueConfig holds configuration for the command queue
type QueueConfig struct {
	BufferSize int // Number of commands to buffer (default: 256)
	Workers    int // Number of worker goroutines (default: 1)
}

// DefaultQueueConfig returns defaults for a single-player board.
// One worker keeps inputs in arrival order.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		BufferSize: 256,
		Workers:    1,
	}
}

// NewCommandQueue creates a new command queue with worker pool
func NewCommandQueue(processor Processor, config QueueConfig) *CommandQueue {
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}

	return &CommandQueue{
		commands:  make(chan Command, config.BufferSize),
		processor: processor,
		workers:   config.Workers,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the worker pool
func (q *CommandQueue) Start() {
	if q.running.Swap(true) {
		return
	}

	log.Printf("🚀 CommandQueue starting with %d workers, buffer size %d", q.workers, cap(q.commands))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Stop shuts down the workers. Pending commands are discarded.
func (q *CommandQueue) Stop() {
	if !q.running.Swap(false) {
		return
	}

	close(q.stopChan)
	q.wg.Wait()

	log.Printf("📊 CommandQueue stopped - enqueued: %d, processed: %d, dropped: %d",
		q.enqueued.Load(), q.processed.Load(), q.dropped.Load())
}

// Enqueue adds a command to the queue (non-blocking)
// Returns true if enqueued, false if queue is full (command dropped)
func (q *CommandQueue) Enqueue(cmd Command) bool {
	if cmd.ReceivedAt.IsZero() {
		cmd.ReceivedAt = time.Now()
	}

	select {
	case q.commands <- cmd:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		if q.dropped.Load()%100 == 1 {
			log.Printf("⚠️ CommandQueue full, dropped %s from %s (total dropped: %d)",
				cmd.Type, cmd.Source, q.dropped.Load())
		}
		return false
	}
}

func (q *CommandQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopChan:
			return
		case cmd := <-q.commands:
			waitTime := time.Since(cmd.ReceivedAt)
			q.updateAvgWaitTime(waitTime)

			if waitTime > 100*time.Millisecond {
				log.Printf("⚠️ Command from %s waited %.1fms in queue",
					cmd.Source, float64(waitTime.Microseconds())/1000)
			}

			if _, err := q.processor.Process(cmd); err != nil {
				q.failed.Add(1)
				log.Printf("⚠️ %s from %s failed: %v", cmd.Type, cmd.Source, err)
			}
			q.processed.Add(1)
		}
	}
}

// updateAvgWaitTime updates exponential moving average
func (q *CommandQueue) updateAvgWaitTime(waitTime time.Duration) {
	current := q.avgWaitTime.Load()
	// alpha = 0.1
	newAvg := (current*9 + waitTime.Nanoseconds()) / 10
	q.avgWaitTime.Store(newAvg)
}

// Stats returns current queue statistics
func (q *CommandQueue) Stats() QueueStats {
	return QueueStats{
		Enqueued:       q.enqueued.Load(),
		Processed:      q.processed.Load(),
		Dropped:        q.dropped.Load(),
		Failed:         q.failed.Load(),
		Pending:        uint64(len(q.commands)),
		BufferSize:     uint64(cap(q.commands)),
		AvgWaitTimeMs:  float64(q.avgWaitTime.Load()) / 1e6,
		BufferUsagePct: float64(len(q.commands)) / float64(cap(q.commands)) * 100,
	}
}

// QueueStats holds queue metrics
type QueueStats struct {
	Enqueued       uint64  `json:"enqueued"`
	Processed      uint64  `json:"processed"`
	Dropped        uint64  `json:"dropped"`
	Failed         uint64  `json:"failed"`
	Pending        uint64  `json:"pending"`
	BufferSize     uint64  `json:"buffer_size"`
	AvgWaitTimeMs  float64 `json:"avg_wait_time_ms"`
	BufferUsagePct float64 `json:"buffer_usage_pct"`
}

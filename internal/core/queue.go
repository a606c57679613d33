package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ProcessingQueue serializes classification work: at most one message is
// being classified at any instant, regardless of arrival rate. A separate
// periodic task sheds memory pressure even while the queue is idle.
type ProcessingQueue struct {
	classifier Classifier
	store      MessageStore
	monitor    MemoryMonitor
	logger     *zap.Logger

	processingTimeout   time.Duration
	interItemDelay      time.Duration
	memoryCheckInterval time.Duration

	mu      sync.Mutex
	pending []*Message
	current *Message
	lastErr error

	running atomic.Bool

	subMu    sync.Mutex
	subs     []chan ProcessingState
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewProcessingQueue creates a new processing queue. Call StartMonitor to
// begin the periodic memory check and Stop to shut both loops down.
func NewProcessingQueue(
	classifier Classifier,
	store MessageStore,
	monitor MemoryMonitor,
	logger *zap.Logger,
	processingTimeout time.Duration,
	interItemDelay time.Duration,
	memoryCheckInterval time.Duration,
) *ProcessingQueue {
	return &ProcessingQueue{
		classifier:          classifier,
		store:               store,
		monitor:             monitor,
		logger:              logger,
		processingTimeout:   processingTimeout,
		interItemDelay:      interItemDelay,
		memoryCheckInterval: memoryCheckInterval,
		stopCh:              make(chan struct{}),
	}
}

// Enqueue appends a message to the pending list and starts the worker loop
// if it is idle. It returns immediately; processing happens in the background.
func (q *ProcessingQueue) Enqueue(msg *Message) {
	q.mu.Lock()
	q.pending = append(q.pending, msg)
	size := len(q.pending)
	q.mu.Unlock()

	q.logger.Debug("Message enqueued",
		zap.String("message_id", msg.ID),
		zap.String("sender", msg.Sender),
		zap.Int("queue_size", size))

	q.publish()
	q.startWorker()
}

// startWorker launches the worker loop unless one is already running.
// The atomic flag makes a second concurrent start a no-op.
func (q *ProcessingQueue) startWorker() {
	if q.running.CompareAndSwap(false, true) {
		go q.run()
	}
}

// run drains the pending list one message at a time. Any panic is caught at
// the loop boundary and recorded so a later enqueue can restart the loop; a
// single message's failure must never permanently wedge the queue.
func (q *ProcessingQueue) run() {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("worker loop panic: %v", r)
			q.logger.Error("Worker loop failed", zap.Error(err))
			q.mu.Lock()
			q.lastErr = err
			q.current = nil
			q.mu.Unlock()
			q.running.Store(false)
			q.publish()
		}
	}()

	q.logger.Debug("Worker loop started")

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.current = nil
			q.mu.Unlock()
			break
		}
		msg := q.pending[0]
		q.pending = q.pending[1:]
		q.current = msg
		q.mu.Unlock()

		q.publish()
		q.processOne(msg)

		// Fixed delay between items to smooth resource usage
		select {
		case <-time.After(q.interItemDelay):
		case <-q.stopCh:
			q.mu.Lock()
			q.current = nil
			q.mu.Unlock()
			q.running.Store(false)
			q.publish()
			return
		}
	}

	q.logger.Debug("Worker loop drained")
	q.running.Store(false)
	q.publish()

	// A message enqueued between the empty check and the flag clear would
	// otherwise wait for the next enqueue; restart the loop for it.
	q.mu.Lock()
	remaining := len(q.pending)
	q.mu.Unlock()
	if remaining > 0 {
		q.startWorker()
	}
}

// processOne runs the per-message protocol: pressure check, classification,
// explanation for smishing verdicts, then persistence.
func (q *ProcessingQueue) processOne(msg *Message) {
	q.logger.Info("Processing message",
		zap.String("message_id", msg.ID),
		zap.String("sender", msg.Sender))

	stats := q.monitor.Sample()
	q.logger.Debug("Memory before processing", zap.Int("percent_used", stats.PercentUsed))
	if q.monitor.IsPressured() {
		q.logger.Warn("High memory usage detected, relieving",
			zap.Int("percent_used", stats.PercentUsed))
		q.monitor.Relieve()
		// Advisory re-check only; relief never gates progress
		after := q.monitor.Sample()
		q.logger.Debug("Memory after relief", zap.Int("percent_used", after.PercentUsed))
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.processingTimeout)
	classification := q.classifier.ClassifySMS(ctx, msg.Body)
	cancel()

	explanation := ""
	if classification == ClassificationSmishing {
		ctx, cancel := context.WithTimeout(context.Background(), q.processingTimeout)
		explanation = q.classifier.GetExplanation(ctx, msg)
		cancel()
	}

	msg.Classification = classification
	msg.Explanation = explanation
	msg.Processed = true

	if err := q.store.Update(context.Background(), msg); err != nil {
		q.logger.Error("Failed to persist message",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		q.mu.Lock()
		q.lastErr = err
		q.mu.Unlock()
	}

	q.logger.Info("Message processed",
		zap.String("message_id", msg.ID),
		zap.String("classification", string(classification)))
}

// StartMonitor begins the periodic memory check. It runs independently of the
// worker loop so pressure is addressed even while the queue is idle.
func (q *ProcessingQueue) StartMonitor() {
	go func() {
		ticker := time.NewTicker(q.memoryCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if q.monitor.IsPressured() {
					q.logger.Warn("High memory usage detected during monitoring, relieving")
					q.monitor.Relieve()
				}
			case <-q.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the worker loop and the periodic monitor
func (q *ProcessingQueue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
	})
}

// State returns a read-only snapshot of the queue
func (q *ProcessingQueue) State() ProcessingState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stateLocked()
}

func (q *ProcessingQueue) stateLocked() ProcessingState {
	state := ProcessingState{
		IsProcessing: q.running.Load(),
		QueueSize:    len(q.pending),
	}
	if q.current != nil {
		state.CurrentID = q.current.ID
		state.CurrentSender = q.current.Sender
	}
	if q.lastErr != nil {
		state.Error = q.lastErr.Error()
	}
	return state
}

// Status returns a human-readable description of the queue
func (q *ProcessingQueue) Status() string {
	state := q.State()
	if state.IsProcessing && state.CurrentSender != "" {
		return fmt.Sprintf("Processing SMS from %s (%d in queue)", state.CurrentSender, state.QueueSize)
	}
	return fmt.Sprintf("Idle (%d in queue)", state.QueueSize)
}

// Subscribe returns a channel receiving state snapshots after each change.
// Sends never block the worker; a slow subscriber misses intermediate states.
func (q *ProcessingQueue) Subscribe() <-chan ProcessingState {
	ch := make(chan ProcessingState, 1)
	q.subMu.Lock()
	q.subs = append(q.subs, ch)
	q.subMu.Unlock()
	return ch
}

func (q *ProcessingQueue) publish() {
	state := q.State()

	q.subMu.Lock()
	subs := q.subs
	q.subMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- state:
		default:
			// Replace the stale snapshot with the current one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

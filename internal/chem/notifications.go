package chem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// StepEvent reports the state of a run after a completed time step.
type StepEvent struct {
	RunID     string           `json:"run_id"`
	Step      int              `json:"step"`
	Total     int              `json:"total"`
	Counts    map[string]int64 `json:"counts"`
	Entities  int              `json:"entities"`
	Final     bool             `json:"final,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// NewStepEvent builds an event stamped with the current wall-clock time.
// counts is copied.
func NewStepEvent(runID string, step, total int, counts map[string]int64, entities int) StepEvent {
	c := make(map[string]int64, len(counts))
	for k, v := range counts {
		c[k] = v
	}
	return StepEvent{
		RunID:     runID,
		Step:      step,
		Total:     total,
		Counts:    c,
		Entities:  entities,
		Timestamp: time.Now().Unix(),
	}
}

// JSON returns the event as JSON bytes
func (e StepEvent) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier is the interface that all notification channels must implement
type Notifier interface {
	// ID returns a unique identifier for this notifier
	ID() string

	// Type returns the type of notifier (e.g., "webhook", "websocket")
	Type() string

	// Notify sends a step event. The context can be used for cancellation
	// and timeout.
	Notify(ctx context.Context, event StepEvent) error

	// Close closes the notifier and releases any resources
	Close() error
}

// notificationJob represents a job to be processed by the notification queue
type notificationJob struct {
	Event       StepEvent
	NotifierIDs []string
}

const (
	notificationQueueSize = 1024
	maxNotifyRetries      = 3
	initialNotifyBackoff  = 100 * time.Millisecond
)

// NotificationManager routes step events to registered notifiers. Delivery
// happens on a background worker and never blocks the simulation loop.
type NotificationManager struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	jobs      chan notificationJob
	closed    bool
	wg        sync.WaitGroup
	logger    Logger
	dropped   atomic.Int64
}

// NewNotificationManager creates a manager with one delivery worker. A nil
// logger discards output.
func NewNotificationManager(logger Logger) *NotificationManager {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	mgr := &NotificationManager{
		notifiers: make(map[string]Notifier),
		jobs:      make(chan notificationJob, notificationQueueSize),
		logger:    logger,
	}
	mgr.startWorkers(1)
	return mgr
}

// RegisterNotifier registers a notifier with the manager
func (nm *NotificationManager) RegisterNotifier(notifier Notifier) error {
	if notifier == nil {
		return fmt.Errorf("notifier cannot be nil")
	}

	id := notifier.ID()
	if id == "" {
		return fmt.Errorf("notifier ID cannot be empty")
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()

	if _, exists := nm.notifiers[id]; exists {
		return fmt.Errorf("notifier with ID %s already exists", id)
	}

	nm.notifiers[id] = notifier
	return nil
}

// UnregisterNotifier closes and removes a notifier.
func (nm *NotificationManager) UnregisterNotifier(id string) error {
	nm.mu.Lock()
	notifier, exists := nm.notifiers[id]
	delete(nm.notifiers, id)
	nm.mu.Unlock()

	if !exists {
		return fmt.Errorf("notifier with ID %s not found", id)
	}
	if err := notifier.Close(); err != nil {
		return fmt.Errorf("error closing notifier %s: %w", id, err)
	}
	return nil
}

// GetNotifier retrieves a notifier by ID
func (nm *NotificationManager) GetNotifier(id string) (Notifier, bool) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	notifier, exists := nm.notifiers[id]
	return notifier, exists
}

// ListNotifiers returns the registered notifier IDs, sorted.
func (nm *NotificationManager) ListNotifiers() []string {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	ids := make([]string, 0, len(nm.notifiers))
	for id := range nm.notifiers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Dropped returns how many events were discarded because the queue was full.
func (nm *NotificationManager) Dropped() int64 {
	return nm.dropped.Load()
}

// Enqueue hands an event to the delivery worker. It never blocks: when the
// queue is full the event is dropped and logged.
func (nm *NotificationManager) Enqueue(event StepEvent, notifierIDs []string) {
	if len(notifierIDs) == 0 {
		return
	}

	nm.mu.RLock()
	defer nm.mu.RUnlock()
	if nm.closed {
		return
	}

	select {
	case nm.jobs <- notificationJob{Event: event, NotifierIDs: notifierIDs}:
	default:
		nm.dropped.Add(1)
		nm.logger.Warnf("notification queue full, dropping step event: run=%s step=%d", event.RunID, event.Step)
	}
}

// Broadcast enqueues event for every registered notifier.
func (nm *NotificationManager) Broadcast(event StepEvent) {
	nm.Enqueue(event, nm.ListNotifiers())
}

func (nm *NotificationManager) startWorkers(n int) {
	for range n {
		nm.wg.Add(1)
		go nm.worker()
	}
}

func (nm *NotificationManager) worker() {
	defer nm.wg.Done()
	for job := range nm.jobs {
		nm.dispatchJob(job)
	}
}

func (nm *NotificationManager) dispatchJob(job notificationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, id := range job.NotifierIDs {
		nm.notifyWithRetry(ctx, id, job.Event)
	}
}

// notifyWithRetry attempts delivery with exponential backoff.
func (nm *NotificationManager) notifyWithRetry(ctx context.Context, notifierID string, event StepEvent) {
	nm.mu.RLock()
	notifier, ok := nm.notifiers[notifierID]
	nm.mu.RUnlock()

	if !ok {
		nm.logger.Warnf("notification failed: notifier=%s error=notifier not found", notifierID)
		return
	}

	backoff := initialNotifyBackoff
	for attempt := 0; attempt <= maxNotifyRetries; attempt++ {
		err := notifier.Notify(ctx, event)
		if err == nil {
			return
		}

		nm.logger.Warnf("notification failed: notifier=%s attempt=%d error=%v", notifierID, attempt+1, err)
		if attempt == maxNotifyRetries {
			nm.logger.Errorf("notification failed after %d attempts: notifier=%s", maxNotifyRetries+1, notifierID)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// Notify delivers an event synchronously to the given notifiers and returns
// every failure joined together.
func (nm *NotificationManager) Notify(ctx context.Context, event StepEvent, notifierIDs []string) error {
	var errs []error
	for _, id := range notifierIDs {
		nm.mu.RLock()
		notifier, exists := nm.notifiers[id]
		nm.mu.RUnlock()

		if !exists {
			errs = append(errs, fmt.Errorf("notifier %s not found", id))
			continue
		}
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("notifier %s failed: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Close drains the queue, stops the worker and closes all notifiers.
func (nm *NotificationManager) Close() error {
	nm.mu.Lock()
	if nm.closed {
		nm.mu.Unlock()
		return nil
	}
	nm.closed = true
	close(nm.jobs)
	nm.mu.Unlock()

	nm.wg.Wait()

	nm.mu.Lock()
	var errs []error
	for id, notifier := range nm.notifiers {
		if err := notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing notifier %s: %w", id, err))
		}
	}
	nm.notifiers = make(map[string]Notifier)
	nm.mu.Unlock()

	return errors.Join(errs...)
}

package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/xpertbrdev/thermal-print-service/internal/config"
	"github.com/xpertbrdev/thermal-print-service/internal/printers"
)

var (
	ErrPrinterNotFound  = errors.New("printer not found")
	ErrDuplicateSession = errors.New("session id already exists")
	ErrMissingSession   = errors.New("session id is required")
)

const defaultCancelReason = "cancelled by user"

// Engine owns one ordered queue per printer plus a global job table keyed
// by session id. One ticker worker per printer drives execution; at most
// one job per printer is ever in flight.
//
// Cancellation of a printing job is logical only: the in-flight executor
// call is not interrupted, the worker's completion handler detects the
// cancelled status and leaves it in place.
type Engine struct {
	mu sync.RWMutex
	// emitMu serializes observer notification with state mutation: it is
	// acquired while mu is still held and released after the emit, so
	// observers always see events in the order the state changed.
	emitMu    sync.Mutex
	queues    map[string]*PrinterQueue
	jobs      map[string]*PrintJob
	workers   map[string]bool
	resolver  PrinterResolver
	executor  Executor
	observers []JobObserver
	cfg       config.QueueConfig
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
}

func NewEngine(resolver PrinterResolver, executor Executor, cfg config.QueueConfig, observers ...JobObserver) *Engine {
	if cfg.WorkerInterval <= 0 {
		cfg.WorkerInterval = 1 * time.Second
	}
	if cfg.JobRetention <= 0 {
		cfg.JobRetention = 60 * time.Second
	}
	if cfg.WaitTimePerJob <= 0 {
		cfg.WaitTimePerJob = 10 * time.Second
	}

	return &Engine{
		queues:    make(map[string]*PrinterQueue),
		jobs:      make(map[string]*PrintJob),
		workers:   make(map[string]bool),
		resolver:  resolver,
		executor:  executor,
		observers: observers,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
	}
}

// Start creates a queue and worker for every configured printer. Printers
// first seen later in AddJob get theirs lazily.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.mu.Unlock()

	list, err := e.resolver.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list configured printers: %w", err)
	}

	e.mu.Lock()
	for _, p := range list {
		e.ensureQueueLocked(p.ID)
	}
	e.mu.Unlock()

	log.Printf("[queue] engine started with %d printer queue(s)", len(list))
	return nil
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	close(e.stopCh)
	e.wg.Wait()
	log.Printf("[queue] engine stopped")
}

// AddJob validates the target printer, inserts the job at its priority
// position and records it in the job table. The returned job is a copy.
func (e *Engine) AddJob(ctx context.Context, printerID string, content []ContentItem, priority int, sessionID string) (*PrintJob, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	if priority < PriorityHigh || priority > PriorityLow {
		priority = PriorityNormal
	}

	if _, err := e.resolver.Get(ctx, printerID); err != nil {
		if errors.Is(err, printers.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPrinterNotFound, printerID)
		}
		return nil, fmt.Errorf("failed to resolve printer %s: %w", printerID, err)
	}

	job := &PrintJob{
		SessionID: sessionID,
		PrinterID: printerID,
		Content:   content,
		Status:    JobStatusQueued,
		Priority:  priority,
		CreatedAt: time.Now(),
	}

	e.mu.Lock()
	if _, exists := e.jobs[sessionID]; exists {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, sessionID)
	}

	q := e.ensureQueueLocked(printerID)
	insertByPriority(q, job)
	e.jobs[sessionID] = job
	q.LastActivity = time.Now()

	e.emitMu.Lock()
	e.mu.Unlock()
	e.emit(JobEvent{
		SessionID: job.SessionID,
		PrinterID: job.PrinterID,
		Status:    JobStatusQueued,
		Timestamp: job.CreatedAt,
	})
	e.emitMu.Unlock()

	log.Printf("[queue] job %s queued for printer %s (priority %d)", sessionID, printerID, priority)
	return job.clone(), nil
}

// insertByPriority inserts immediately before the first job with a
// numerically greater (less urgent) priority, or appends. This keeps FIFO
// order within a priority class and strict class order across classes.
func insertByPriority(q *PrinterQueue, job *PrintJob) {
	idx := len(q.Jobs)
	for i, existing := range q.Jobs {
		if existing.Priority > job.Priority {
			idx = i
			break
		}
	}

	q.Jobs = append(q.Jobs, nil)
	copy(q.Jobs[idx+1:], q.Jobs[idx:])
	q.Jobs[idx] = job
}

// ensureQueueLocked creates the printer's queue and worker on first use.
// Queues are never destroyed while the engine runs.
func (e *Engine) ensureQueueLocked(printerID string) *PrinterQueue {
	q, exists := e.queues[printerID]
	if !exists {
		q = &PrinterQueue{
			PrinterID:    printerID,
			LastActivity: time.Now(),
		}
		e.queues[printerID] = q
		log.Printf("[queue] initialized queue for printer %s", printerID)
	}

	if e.running && !e.workers[printerID] {
		e.workers[printerID] = true
		e.wg.Add(1)
		go e.worker(printerID)
	}

	return q
}

func (e *Engine) worker(printerID string) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.processNext(printerID)
		}
	}
}

// processNext runs one worker iteration: pick the head queued job, mark it
// printing, execute, record the outcome. All queue state is mutated under
// the lock; only the executor call itself runs outside it.
func (e *Engine) processNext(printerID string) {
	e.mu.Lock()
	q := e.queues[printerID]
	if q == nil || q.IsProcessing {
		e.mu.Unlock()
		return
	}

	var next *PrintJob
	for _, j := range q.Jobs {
		if j.Status == JobStatusQueued {
			next = j
			break
		}
	}
	if next == nil {
		e.mu.Unlock()
		return
	}

	q.IsProcessing = true
	q.CurrentJob = next
	q.LastActivity = time.Now()

	prev := next.Status
	startedAt := time.Now()
	next.Status = JobStatusPrinting
	next.StartedAt = &startedAt

	sessionID := next.SessionID
	content := next.Content

	e.emitMu.Lock()
	e.mu.Unlock()
	e.emit(JobEvent{
		SessionID:      sessionID,
		PrinterID:      printerID,
		Status:         JobStatusPrinting,
		PreviousStatus: prev,
		Timestamp:      startedAt,
	})
	e.emitMu.Unlock()
	log.Printf("[queue] job %s printing on %s", sessionID, printerID)

	err := e.executor.Print(context.Background(), printerID, content)

	completedAt := time.Now()
	e.mu.Lock()
	// A concurrent cancel wins; never overwrite a cancelled status.
	cancelled := next.Status == JobStatusCancelled
	if !cancelled {
		if err != nil {
			next.Status = JobStatusFailed
			next.Error = err.Error()
		} else {
			next.Status = JobStatusCompleted
		}
		next.CompletedAt = &completedAt
	}

	q.IsProcessing = false
	q.CurrentJob = nil
	q.LastActivity = completedAt

	if cancelled {
		e.mu.Unlock()
	} else {
		event := JobEvent{
			SessionID:      sessionID,
			PrinterID:      printerID,
			Status:         next.Status,
			PreviousStatus: JobStatusPrinting,
			Timestamp:      completedAt,
			Error:          next.Error,
		}
		e.emitMu.Lock()
		e.mu.Unlock()
		e.emit(event)
		e.emitMu.Unlock()

		if err != nil {
			log.Printf("[queue] job %s failed on %s: %v", sessionID, printerID, err)
		} else {
			log.Printf("[queue] job %s completed on %s", sessionID, printerID)
		}
	}

	// Keep the terminal job visible in the queue for a grace period so
	// position queries for jobs behind it stay meaningful; the job table
	// keeps it queryable forever.
	time.AfterFunc(e.cfg.JobRetention, func() {
		e.removeFromQueue(printerID, sessionID)
	})
}

func (e *Engine) removeFromQueue(printerID, sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q := e.queues[printerID]
	if q == nil {
		return
	}

	for i, j := range q.Jobs {
		if j.SessionID == sessionID {
			q.Jobs = append(q.Jobs[:i], q.Jobs[i+1:]...)
			return
		}
	}
}

// GetJob returns a copy of the job, found or not via the second value.
func (e *Engine) GetJob(sessionID string) (*PrintJob, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	job, ok := e.jobs[sessionID]
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

// JobStatus derives queue position and estimated wait fresh from current
// queue state; neither is stored. Position is 1-based among still-queued
// jobs, 0 for anything not queued.
func (e *Engine) JobStatus(ctx context.Context, sessionID string) *JobStatusResponse {
	e.mu.RLock()
	job, ok := e.jobs[sessionID]
	if !ok {
		e.mu.RUnlock()
		return nil
	}

	resp := &JobStatusResponse{
		SessionID:   job.SessionID,
		Status:      job.Status,
		PrinterID:   job.PrinterID,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		Error:       job.Error,
	}

	if job.Status == JobStatusQueued {
		if q := e.queues[job.PrinterID]; q != nil {
			ahead := 0
			for _, j := range q.Jobs {
				if j.SessionID == sessionID {
					break
				}
				if j.Status == JobStatusQueued {
					ahead++
				}
			}
			resp.QueuePosition = ahead + 1
			resp.EstimatedWaitTime = ahead * int(e.cfg.WaitTimePerJob/time.Second)
		}
	}
	printerID := job.PrinterID
	e.mu.RUnlock()

	resp.PrinterName = e.printerName(ctx, printerID)
	return resp
}

func (e *Engine) printerName(ctx context.Context, printerID string) string {
	p, err := e.resolver.Get(ctx, printerID)
	if err != nil {
		return "unknown"
	}
	return p.Name
}

// CancelJob cancels a session. Returns false when the session is unknown
// or already terminal. A queued job leaves the queue immediately; a
// printing job is only marked, the in-flight transmission finishes on its
// own and the worker respects the cancelled status afterwards.
func (e *Engine) CancelJob(sessionID, reason string) bool {
	if reason == "" {
		reason = defaultCancelReason
	}

	e.mu.Lock()
	job, ok := e.jobs[sessionID]
	if !ok || job.Status.Terminal() {
		e.mu.Unlock()
		return false
	}

	prev := job.Status
	if prev == JobStatusQueued {
		if q := e.queues[job.PrinterID]; q != nil {
			for i, j := range q.Jobs {
				if j.SessionID == sessionID {
					q.Jobs = append(q.Jobs[:i], q.Jobs[i+1:]...)
					break
				}
			}
			q.LastActivity = time.Now()
		}
	}

	now := time.Now()
	job.Status = JobStatusCancelled
	job.Error = reason
	job.CompletedAt = &now
	printerID := job.PrinterID

	e.emitMu.Lock()
	e.mu.Unlock()
	e.emit(JobEvent{
		SessionID:      sessionID,
		PrinterID:      printerID,
		Status:         JobStatusCancelled,
		PreviousStatus: prev,
		Timestamp:      now,
		Error:          reason,
	})
	e.emitMu.Unlock()

	if prev == JobStatusPrinting {
		log.Printf("[queue] job %s cancelled while printing: %s", sessionID, reason)
	} else {
		log.Printf("[queue] job %s cancelled: %s", sessionID, reason)
	}
	return true
}

// QueueSnapshot returns a read-only copy of one printer's queue, or nil
// when no queue exists for the id.
func (e *Engine) QueueSnapshot(printerID string) *PrinterQueue {
	e.mu.RLock()
	defer e.mu.RUnlock()

	q, ok := e.queues[printerID]
	if !ok {
		return nil
	}

	snap := &PrinterQueue{
		PrinterID:    q.PrinterID,
		Jobs:         make([]*PrintJob, 0, len(q.Jobs)),
		IsProcessing: q.IsProcessing,
		LastActivity: q.LastActivity,
	}
	for _, j := range q.Jobs {
		snap.Jobs = append(snap.Jobs, j.clone())
	}
	if q.CurrentJob != nil {
		snap.CurrentJob = q.CurrentJob.clone()
	}
	return snap
}

// ClearPrinterQueue cancels every queued (not printing) job for the
// printer and returns the count.
func (e *Engine) ClearPrinterQueue(printerID string) int {
	e.mu.Lock()
	q := e.queues[printerID]
	if q == nil {
		e.mu.Unlock()
		return 0
	}

	now := time.Now()
	var events []JobEvent
	remaining := q.Jobs[:0]
	for _, j := range q.Jobs {
		if j.Status != JobStatusQueued {
			remaining = append(remaining, j)
			continue
		}
		j.Status = JobStatusCancelled
		j.Error = "queue cleared by administrator"
		j.CompletedAt = &now
		events = append(events, JobEvent{
			SessionID:      j.SessionID,
			PrinterID:      printerID,
			Status:         JobStatusCancelled,
			PreviousStatus: JobStatusQueued,
			Timestamp:      now,
			Error:          j.Error,
		})
	}
	q.Jobs = remaining
	q.LastActivity = now

	e.emitMu.Lock()
	e.mu.Unlock()
	for _, ev := range events {
		e.emit(ev)
	}
	e.emitMu.Unlock()

	if len(events) > 0 {
		log.Printf("[queue] cleared queue for printer %s: %d job(s) cancelled", printerID, len(events))
	}
	return len(events)
}

type PrinterQueueStats struct {
	PrinterID    string    `json:"printerId"`
	QueueLength  int       `json:"queueLength"`
	IsProcessing bool      `json:"isProcessing"`
	CurrentJob   string    `json:"currentJob,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
}

type QueueStats struct {
	TotalQueues  int                 `json:"totalQueues"`
	TotalJobs    int                 `json:"totalJobs"`
	JobsByStatus map[JobStatus]int   `json:"jobsByStatus"`
	PrinterStats []PrinterQueueStats `json:"printerStats"`
}

// Stats scans the job table and queue map on demand; nothing is cached.
func (e *Engine) Stats() *QueueStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := &QueueStats{
		TotalQueues: len(e.queues),
		TotalJobs:   len(e.jobs),
		JobsByStatus: map[JobStatus]int{
			JobStatusQueued:    0,
			JobStatusPrinting:  0,
			JobStatusCompleted: 0,
			JobStatusFailed:    0,
			JobStatusCancelled: 0,
		},
		PrinterStats: make([]PrinterQueueStats, 0, len(e.queues)),
	}

	for _, job := range e.jobs {
		stats.JobsByStatus[job.Status]++
	}

	for printerID, q := range e.queues {
		ps := PrinterQueueStats{
			PrinterID:    printerID,
			QueueLength:  len(q.Jobs),
			IsProcessing: q.IsProcessing,
			LastActivity: q.LastActivity,
		}
		if q.CurrentJob != nil {
			ps.CurrentJob = q.CurrentJob.SessionID
		}
		stats.PrinterStats = append(stats.PrinterStats, ps)
	}

	sort.Slice(stats.PrinterStats, func(i, j int) bool {
		return stats.PrinterStats[i].PrinterID < stats.PrinterStats[j].PrinterID
	})

	return stats
}

// Sessions lists the active sessions currently held in the queue lists,
// newest first, optionally filtered by status and printer.
func (e *Engine) Sessions(ctx context.Context, statusFilter []JobStatus, printerID string, limit int) []*JobStatusResponse {
	if limit <= 0 {
		limit = 100
	}

	allowed := make(map[JobStatus]bool, len(statusFilter))
	for _, s := range statusFilter {
		allowed[s] = true
	}

	e.mu.RLock()
	var ids []string
	for qPrinterID, q := range e.queues {
		if printerID != "" && qPrinterID != printerID {
			continue
		}
		for _, j := range q.Jobs {
			if len(allowed) > 0 && !allowed[j.Status] {
				continue
			}
			ids = append(ids, j.SessionID)
		}
	}
	e.mu.RUnlock()

	sessions := make([]*JobStatusResponse, 0, len(ids))
	for _, id := range ids {
		if resp := e.JobStatus(ctx, id); resp != nil {
			sessions = append(sessions, resp)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions
}

// emit notifies every observer. Callers hold emitMu across the call.
func (e *Engine) emit(event JobEvent) {
	for _, o := range e.observers {
		o.OnJobEvent(event)
	}
}

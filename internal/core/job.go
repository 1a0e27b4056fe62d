package core

import (
	"context"
	"time"

	"github.com/xpertbrdev/thermal-print-service/internal/printers"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusPrinting  JobStatus = "printing"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is final. A job never leaves a
// terminal status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

const (
	PriorityHigh   = 1
	PriorityNormal = 2
	PriorityLow    = 3
)

type PrintJob struct {
	SessionID   string        `json:"sessionId"`
	PrinterID   string        `json:"printerId"`
	Content     []ContentItem `json:"content"`
	Status      JobStatus     `json:"status"`
	Priority    int           `json:"priority"`
	CreatedAt   time.Time     `json:"createdAt"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	Error       string        `json:"error,omitempty"`
}

func (j *PrintJob) clone() *PrintJob {
	c := *j
	return &c
}

// PrinterQueue holds the ordered non-terminal jobs of one printer. Jobs are
// kept ordered by priority class, FIFO within a class; ordering is
// established at insertion and never changed afterwards.
type PrinterQueue struct {
	PrinterID    string
	Jobs         []*PrintJob
	IsProcessing bool
	CurrentJob   *PrintJob
	LastActivity time.Time
}

// JobEvent is an immutable record of one status transition, delivered to
// observers synchronously after each mutation.
type JobEvent struct {
	SessionID      string    `json:"sessionId"`
	PrinterID      string    `json:"printerId"`
	Status         JobStatus `json:"status"`
	PreviousStatus JobStatus `json:"previousStatus,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Error          string    `json:"error,omitempty"`
}

type JobObserver interface {
	OnJobEvent(event JobEvent)
}

// Executor renders a job's content into printer commands and transmits
// them. Calls may block for the duration of the transmission and may fail
// at the transport level; the engine converts failures into job state.
type Executor interface {
	Print(ctx context.Context, printerID string, content []ContentItem) error
}

// PrinterResolver is the read side of the printer configuration store.
type PrinterResolver interface {
	Get(ctx context.Context, id string) (*printers.Printer, error)
	List(ctx context.Context) ([]*printers.Printer, error)
}

type JobStatusResponse struct {
	SessionID         string     `json:"sessionId"`
	Status            JobStatus  `json:"status"`
	PrinterID         string     `json:"printerId"`
	PrinterName       string     `json:"printerName"`
	CreatedAt         time.Time  `json:"createdAt"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	Error             string     `json:"error,omitempty"`
	QueuePosition     int        `json:"queuePosition"`
	EstimatedWaitTime int        `json:"estimatedWaitTime"`
}

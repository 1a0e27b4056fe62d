// Package webhook delivers job lifecycle events to registered HTTP
// endpoints. Subscriptions live in the webhooks table; payloads are
// signed with HMAC-SHA256 when the subscription carries a secret.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xpertbrdev/thermal-print-service/internal/config"
	"github.com/xpertbrdev/thermal-print-service/internal/core"
	"github.com/xpertbrdev/thermal-print-service/internal/db"
)

type Event string

const (
	EventJobQueued    Event = "job_queued"
	EventJobPrinting  Event = "job_printing"
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventJobCancelled Event = "job_cancelled"
)

var statusEvents = map[core.JobStatus]Event{
	core.JobStatusQueued:    EventJobQueued,
	core.JobStatusPrinting:  EventJobPrinting,
	core.JobStatusCompleted: EventJobCompleted,
	core.JobStatusFailed:    EventJobFailed,
	core.JobStatusCancelled: EventJobCancelled,
}

type Payload struct {
	Event     string        `json:"event"`
	Timestamp time.Time     `json:"timestamp"`
	Data      core.JobEvent `json:"data"`
	Signature string        `json:"signature,omitempty"`
}

type task struct {
	webhookID  int64
	deliveryID string
	event      Event
	payload    *Payload
	attempt    int
}

// Sender implements core.JobObserver. Deliveries are queued to a bounded
// channel and drained by a worker pool; a full queue drops the delivery
// rather than blocking the queue engine.
type Sender struct {
	db         *sql.DB
	httpClient *http.Client
	retryCount int
	retryDelay time.Duration
	workers    int
	queue      chan *task
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewSender(database *sql.DB, cfg config.WebhookConfig) *Sender {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}

	return &Sender{
		db: database,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
		workers:    cfg.WorkerCount,
		queue:      make(chan *task, cfg.QueueSize),
		stopCh:     make(chan struct{}),
	}
}

func (s *Sender) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *Sender) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// OnJobEvent implements core.JobObserver.
func (s *Sender) OnJobEvent(event core.JobEvent) {
	webhookEvent, ok := statusEvents[event.Status]
	if !ok {
		return
	}
	s.enqueue(webhookEvent, event)
}

func (s *Sender) enqueue(event Event, data core.JobEvent) {
	webhooks, err := s.activeWebhooksForEvent(event)
	if err != nil {
		log.Printf("[webhook] failed to get webhooks for event %s: %v", event, err)
		return
	}

	for _, webhook := range webhooks {
		t := &task{
			webhookID:  webhook.ID,
			deliveryID: uuid.NewString(),
			event:      event,
			payload: &Payload{
				Event:     string(event),
				Timestamp: time.Now(),
				Data:      data,
			},
		}

		select {
		case s.queue <- t:
		default:
			log.Printf("[webhook] queue full, dropping delivery to webhook %d for event %s", webhook.ID, event)
		}
	}
}

func (s *Sender) activeWebhooksForEvent(event Event) ([]*db.Webhook, error) {
	query := `SELECT id, name, url, secret, events_json, enabled, created_at FROM webhooks WHERE enabled = 1 AND events_json LIKE ?`
	eventPattern := fmt.Sprintf("%%\"%s\"%%", event)

	rows, err := s.db.Query(query, eventPattern)
	if err != nil {
		return nil, fmt.Errorf("query webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*db.Webhook
	for rows.Next() {
		w := &db.Webhook{}
		var enabled int
		err := rows.Scan(&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &enabled, &w.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		w.Enabled = enabled == 1
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func (s *Sender) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case t := <-s.queue:
			if err := s.sendWithRetry(t); err != nil {
				log.Printf("[webhook worker %d] delivery %s for event %s failed after %d attempt(s): %v",
					id, t.deliveryID, t.event, t.attempt, err)
			}
		}
	}
}

func (s *Sender) sendWithRetry(t *task) error {
	webhook, err := db.GetWebhookByID(s.db, t.webhookID)
	if err != nil {
		return fmt.Errorf("get webhook: %w", err)
	}

	var lastErr error
	for t.attempt < s.retryCount {
		t.attempt++

		err := s.sendRequest(webhook, t)
		if err == nil {
			return nil
		}

		lastErr = err

		if isClientError(err) {
			log.Printf("[webhook] client error for webhook %d, not retrying: %v", webhook.ID, err)
			return err
		}

		if t.attempt < s.retryCount {
			backoff := s.retryDelay * time.Duration(1<<(t.attempt-1))
			log.Printf("[webhook] retry %d/%d for webhook %d in %v: %v",
				t.attempt, s.retryCount, webhook.ID, backoff, err)

			select {
			case <-s.stopCh:
				return fmt.Errorf("shutdown requested")
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *Sender) sendRequest(webhook *db.Webhook, t *task) error {
	dataBytes, err := json.Marshal(t.payload.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	if webhook.Secret != "" {
		t.payload.Signature = signPayload(dataBytes, webhook.Secret)
	}

	fullPayload, err := json.Marshal(t.payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, webhook.URL, bytes.NewReader(fullPayload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", t.payload.Signature)
	req.Header.Set("X-Webhook-Event", t.payload.Event)
	req.Header.Set("X-Webhook-Delivery", t.deliveryID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("http error: %d", resp.StatusCode)
	}

	return nil
}

func signPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func isClientError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "http error: 4")
}

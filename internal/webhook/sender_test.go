package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpertbrdev/thermal-print-service/internal/config"
	"github.com/xpertbrdev/thermal-print-service/internal/core"
	"github.com/xpertbrdev/thermal-print-service/internal/db"
	"github.com/xpertbrdev/thermal-print-service/internal/webhook"
)

type capturedDelivery struct {
	headers http.Header
	body    []byte
}

type deliverySink struct {
	mu         sync.Mutex
	deliveries []capturedDelivery
	failFirst  int
}

func (s *deliverySink) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failFirst > 0 {
		s.failFirst--
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.deliveries = append(s.deliveries, capturedDelivery{
		headers: r.Header.Clone(),
		body:    body,
	})
	w.WriteHeader(http.StatusOK)
}

func (s *deliverySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deliveries)
}

func (s *deliverySink) first() capturedDelivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deliveries[0]
}

func setup(t *testing.T, url, secret, events string) (*webhook.Sender, func()) {
	t.Helper()

	database, err := db.Open(":memory:")
	require.NoError(t, err)

	require.NoError(t, db.CreateWebhook(database, &db.Webhook{
		Name:       "test hook",
		URL:        url,
		Secret:     secret,
		EventsJSON: events,
		Enabled:    true,
	}))

	sender := webhook.NewSender(database, config.WebhookConfig{
		RetryCount: 3,
		RetryDelay: 10 * time.Millisecond,
		Timeout:    time.Second,
	})
	sender.Start()

	return sender, func() {
		sender.Stop()
		database.Close()
	}
}

func completedEvent() core.JobEvent {
	return core.JobEvent{
		SessionID:      "sess_20250101_120000_AABBCCDD",
		PrinterID:      "counter",
		Status:         core.JobStatusCompleted,
		PreviousStatus: core.JobStatusPrinting,
		Timestamp:      time.Now(),
	}
}

func TestDeliversSubscribedEvent(t *testing.T) {
	sink := &deliverySink{}
	server := httptest.NewServer(http.HandlerFunc(sink.handler))
	defer server.Close()

	sender, teardown := setup(t, server.URL, "", `["job_completed"]`)
	defer teardown()

	sender.OnJobEvent(completedEvent())

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	d := sink.first()
	assert.Equal(t, "job_completed", d.headers.Get("X-Webhook-Event"))
	assert.NotEmpty(t, d.headers.Get("X-Webhook-Delivery"))

	var payload webhook.Payload
	require.NoError(t, json.Unmarshal(d.body, &payload))
	assert.Equal(t, "job_completed", payload.Event)
	assert.Equal(t, "sess_20250101_120000_AABBCCDD", payload.Data.SessionID)
}

func TestSkipsUnsubscribedEvent(t *testing.T) {
	sink := &deliverySink{}
	server := httptest.NewServer(http.HandlerFunc(sink.handler))
	defer server.Close()

	sender, teardown := setup(t, server.URL, "", `["job_failed"]`)
	defer teardown()

	sender.OnJobEvent(completedEvent())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, sink.count())
}

func TestSignsPayload(t *testing.T) {
	sink := &deliverySink{}
	server := httptest.NewServer(http.HandlerFunc(sink.handler))
	defer server.Close()

	secret := "shhh"
	sender, teardown := setup(t, server.URL, secret, `["job_completed"]`)
	defer teardown()

	sender.OnJobEvent(completedEvent())
	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	d := sink.first()
	signature := d.headers.Get("X-Webhook-Signature")
	require.NotEmpty(t, signature)

	var payload webhook.Payload
	require.NoError(t, json.Unmarshal(d.body, &payload))

	dataBytes, err := json.Marshal(payload.Data)
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(dataBytes)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), signature)
	assert.Equal(t, signature, payload.Signature)
}

func TestRetriesServerErrors(t *testing.T) {
	sink := &deliverySink{failFirst: 2}
	server := httptest.NewServer(http.HandlerFunc(sink.handler))
	defer server.Close()

	sender, teardown := setup(t, server.URL, "", `["job_completed"]`)
	defer teardown()

	sender.OnJobEvent(completedEvent())

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/crimson-sun/patrolaudit/internal/engine/compactor"
	"github.com/crimson-sun/patrolaudit/internal/model"
	"github.com/crimson-sun/patrolaudit/internal/output"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testReport(source string) output.Report {
	ts := time.Date(2025, 3, 14, 22, 30, 0, 0, time.UTC)
	return output.Report{
		Source: source,
		AnalysisResult: model.AnalysisResult{
			NonConformities: []model.NonConformity{{
				ID:        "nc-" + source,
				Timestamp: ts,
				Guard:     "CARLOS",
				Kind:      model.RoundNotStarted,
				Details:   "checkpoint #3 recorded outside an active round",
				AssociatedEvents: []model.ClassifiedEvent{
					{RawEvent: model.RawEvent{Timestamp: ts, Text: "LOCAL 3", Line: 1}, Kind: model.Checkpoint},
				},
			}},
			HasRounds: true,
		},
	}
}

type reportEntry struct {
	Source          string            `json:"source"`
	NonConformities []json.RawMessage `json:"non_conformities"`
}

type batchEntry struct {
	ID              string        `json:"batch_id"`
	SentAt          time.Time     `json:"sent_at"`
	NonConformities int           `json:"non_conformities"`
	Reports         []reportEntry `json:"reports"`
}

// recorder is a test server that collects every posted batch.
type recorder struct {
	mu       sync.Mutex
	received []batchEntry
	headers  []http.Header
	raw      []string
}

func (rc *recorder) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var batch batchEntry
	json.Unmarshal(body, &batch)
	rc.mu.Lock()
	rc.received = append(rc.received, batch)
	rc.headers = append(rc.headers, r.Header.Clone())
	rc.raw = append(rc.raw, string(body))
	rc.mu.Unlock()
	w.WriteHeader(200)
}

func (rc *recorder) batches() []batchEntry {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]batchEntry(nil), rc.received...)
}

// firstNonConformity digs the first non-conformity out of a raw batch body.
func firstNonConformity(t *testing.T, raw string) map[string]any {
	t.Helper()
	var batch struct {
		Reports []map[string]any `json:"reports"`
	}
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		t.Fatalf("invalid batch JSON: %v", err)
	}
	return batch.Reports[0]["non_conformities"].([]any)[0].(map[string]any)
}

func TestBatchFlushAtBatchSize(t *testing.T) {
	rc := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rc.handler))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(3), WithFlushInterval(10*time.Second))
	defer out.Close()

	for _, src := range []string{"a", "b", "c"} {
		if err := out.Write(context.Background(), testReport(src)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	got := rc.batches()
	if len(got) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(got))
	}
	if len(got[0].Reports) != 3 {
		t.Errorf("batch size = %d, want 3", len(got[0].Reports))
	}
	if got[0].Reports[2].Source != "c" {
		t.Errorf("batch order not preserved: %+v", got[0])
	}
	if got[0].NonConformities != 3 {
		t.Errorf("non_conformities = %d, want 3", got[0].NonConformities)
	}
	if got[0].ID == "" || got[0].SentAt.IsZero() {
		t.Errorf("batch envelope incomplete: %+v", got[0])
	}
}

func TestTimerFlushBeforeBatchSize(t *testing.T) {
	rc := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rc.handler))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(100), WithFlushInterval(100*time.Millisecond))
	defer out.Close()

	out.Write(context.Background(), testReport("timer"))

	// Wait for the timer to fire.
	time.Sleep(400 * time.Millisecond)

	got := rc.batches()
	if len(got) != 1 {
		t.Fatalf("expected 1 timer-flushed batch, got %d", len(got))
	}
	if len(got[0].Reports) != 1 || got[0].Reports[0].Source != "timer" {
		t.Errorf("unexpected batch: %+v", got[0])
	}
}

func TestDefaultVerbosityDropsEvents(t *testing.T) {
	rc := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rc.handler))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(1))
	out.Write(context.Background(), testReport("min"))
	out.Close()

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.raw) != 1 {
		t.Fatalf("expected 1 post, got %d", len(rc.raw))
	}
	nc := firstNonConformity(t, rc.raw[0])
	if _, ok := nc["associated_events"]; ok {
		t.Error("default webhook verbosity should drop associated events")
	}
}

func TestFullVerbosityKeepsEvents(t *testing.T) {
	rc := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rc.handler))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(1), WithVerbosity(compactor.Full))
	out.Write(context.Background(), testReport("full"))
	out.Close()

	rc.mu.Lock()
	defer rc.mu.Unlock()
	nc := firstNonConformity(t, rc.raw[0])
	if _, ok := nc["associated_events"]; !ok {
		t.Error("Full verbosity should keep associated events")
	}
}

func TestRetryOn5xx(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(500)
			return
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(1))
	defer out.Close()

	// Two retries wait 1s then 2s before the third attempt succeeds.
	if err := out.Write(context.Background(), testReport("retry")); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(503)
	}))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(1))
	defer out.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := out.Write(ctx, testReport("cancel"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt before cancel, got %d", attempts.Load())
	}
}

func TestNoRetryOn4xx(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(400)
	}))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(1))
	defer out.Close()
	err := out.Write(context.Background(), testReport("client-error"))

	if err == nil {
		t.Error("expected error for 400 response")
	}
	if attempts.Load() != 1 {
		t.Errorf("expected exactly 1 attempt for 4xx, got %d", attempts.Load())
	}
}

func TestCustomHeaders(t *testing.T) {
	var mu sync.Mutex
	var gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotAuth = r.Header.Get("X-Custom-Auth")
		gotType = r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(200)
	}))
	defer srv.Close()

	out := New(srv.URL,
		WithBatchSize(1),
		WithHeaders(map[string]string{"X-Custom-Auth": "secret123"}),
	)
	defer out.Close()

	out.Write(context.Background(), testReport("headers"))

	mu.Lock()
	defer mu.Unlock()
	if gotAuth != "secret123" {
		t.Errorf("custom header = %q, want secret123", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("content type = %q, want application/json", gotType)
	}
}

func TestTimerFlushErrorCallbackInvoked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
	}))
	defer srv.Close()

	var errCount atomic.Int64
	out := New(srv.URL,
		WithBatchSize(100),
		WithFlushInterval(50*time.Millisecond),
		WithOnError(func(err error) { errCount.Add(1) }),
	)

	out.Write(context.Background(), testReport("timer-error"))

	// Wait for timer-triggered flush + HTTP round-trip.
	time.Sleep(300 * time.Millisecond)

	if errCount.Load() != 1 {
		t.Errorf("expected error callback called 1 time, got %d", errCount.Load())
	}

	out.Close()
}

func TestCloseFlushesRemaining(t *testing.T) {
	rc := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rc.handler))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(100), WithFlushInterval(10*time.Second))

	out.Write(context.Background(), testReport("close-1"))
	out.Write(context.Background(), testReport("close-2"))

	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := rc.batches()
	if len(got) != 1 {
		t.Fatalf("expected 1 batch on Close, got %d", len(got))
	}
	if len(got[0].Reports) != 2 {
		t.Errorf("batch size = %d, want 2", len(got[0].Reports))
	}
}

func TestCloseWithNothingPending(t *testing.T) {
	out := New("http://127.0.0.1:0")
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestBatchIDStableAcrossDeliveries(t *testing.T) {
	rc := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rc.handler))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(1))
	out.Write(context.Background(), testReport("same"))
	out.Write(context.Background(), testReport("same"))
	out.Write(context.Background(), testReport("other"))
	out.Close()

	got := rc.batches()
	if len(got) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(got))
	}
	if got[0].ID != got[1].ID {
		t.Errorf("identical reports got different batch IDs %s and %s", got[0].ID, got[1].ID)
	}
	if got[0].ID == got[2].ID {
		t.Error("different reports share a batch ID")
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if h := rc.headers[0].Get(BatchHeader); h != got[0].ID {
		t.Errorf("%s = %q, want %q", BatchHeader, h, got[0].ID)
	}
	if h := rc.headers[0].Get(SignatureHeader); h != "" {
		t.Errorf("unsigned delivery carried %s = %q", SignatureHeader, h)
	}
}

func TestSignedDelivery(t *testing.T) {
	rc := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rc.handler))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(1), WithSecret("gatehouse"))
	out.Write(context.Background(), testReport("signed"))
	out.Close()

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.raw) != 1 {
		t.Fatalf("expected 1 post, got %d", len(rc.raw))
	}
	mac := hmac.New(sha256.New, []byte("gatehouse"))
	mac.Write([]byte(rc.raw[0]))
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if got := rc.headers[0].Get(SignatureHeader); got != want {
		t.Errorf("%s = %q, want %q", SignatureHeader, got, want)
	}
}

func TestRetryOn429HonoursRetryAfter(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	out := New(srv.URL, WithBatchSize(1))
	defer out.Close()

	start := time.Now()
	if err := out.Write(context.Background(), testReport("throttled")); err != nil {
		t.Fatalf("expected success after 429, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Errorf("Retry-After: 0 should retry at once, took %v", elapsed)
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt    int
		retryAfter string
		want       time.Duration
	}{
		{0, "", time.Second},
		{1, "", 2 * time.Second},
		{2, "soon", 4 * time.Second},
		{0, "7", 7 * time.Second},
		{2, "0", 0},
	}
	for _, tt := range tests {
		if got := backoff(tt.attempt, tt.retryAfter); got != tt.want {
			t.Errorf("backoff(%d, %q) = %v, want %v", tt.attempt, tt.retryAfter, got, tt.want)
		}
	}
}

// Package webhook delivers batches of audit reports to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/patrolaudit/internal/engine/compactor"
	"github.com/crimson-sun/patrolaudit/internal/output"
)

const (
	defaultBatchSize     = 10
	defaultFlushInterval = 5 * time.Second
	defaultTimeout       = 10 * time.Second
	maxRetries           = 3

	// BatchHeader carries the batch ID so receivers can drop redelivered batches.
	BatchHeader = "X-Patrol-Batch"
	// SignatureHeader carries "sha256=<hex HMAC of the body>" when a secret is set.
	SignatureHeader = "X-Patrol-Signature"
)

var batchNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("patrolaudit/webhook-batch"))

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets extra HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithBatchSize sets how many reports are held before a flush. Default: 10.
func WithBatchSize(n int) Option {
	return func(o *Output) { o.batchSize = n }
}

// WithFlushInterval sets the longest a report waits in the batch. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *Output) { o.flushInterval = d }
}

// WithTimeout sets the per-request timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.client.Timeout = d }
}

// WithVerbosity sets how much evidence each report carries. Default: Minimal.
func WithVerbosity(v compactor.Verbosity) Option {
	return func(o *Output) { o.verbosity = v }
}

// WithSecret signs every body with HMAC-SHA256 under secret.
func WithSecret(secret string) Option {
	return func(o *Output) { o.secret = []byte(secret) }
}

// WithOnError sets the callback for failed timer-driven flushes.
// Default: a slog warning.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// Batch is the JSON body of one delivery.
type Batch struct {
	ID              string          `json:"batch_id"` // derived from the reports, so a retry reuses it
	SentAt          time.Time       `json:"sent_at"`
	NonConformities int             `json:"non_conformities"` // summed over reports
	Reports         []output.Report `json:"reports"`
}

// Output batches reports and POSTs each batch once it reaches batchSize,
// once flushInterval passes, or on Close. 429 and 5xx responses are retried
// with backoff, honouring Retry-After.
type Output struct {
	client        *http.Client
	url           string
	headers       map[string]string
	secret        []byte
	batchSize     int
	flushInterval time.Duration
	verbosity     compactor.Verbosity
	errFunc       func(error)
	now           func() time.Time

	mu      sync.Mutex
	pending []output.Report
	timer   *time.Timer
}

// New creates a webhook output targeting url.
func New(url string, opts ...Option) *Output {
	o := &Output{
		client:        &http.Client{Timeout: defaultTimeout},
		url:           url,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		verbosity:     compactor.Minimal,
		errFunc:       func(err error) { slog.Warn("webhook flush error", "error", err) },
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Write adds rep to the batch, flushing when the batch is full. The first
// report of a batch arms the flush timer.
func (o *Output) Write(ctx context.Context, rep output.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, output.FormatReport(rep, o.verbosity))
	if len(o.pending) >= o.batchSize {
		return o.flushLocked(ctx)
	}
	if o.timer == nil {
		o.timer = time.AfterFunc(o.flushInterval, o.flushOnTimer)
	}
	return nil
}

func (o *Output) flushOnTimer() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.flushLocked(context.Background()); err != nil {
		o.errFunc(err)
	}
}

// Close delivers whatever is still pending and releases idle connections.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.client.CloseIdleConnections()
	return o.flushLocked(context.Background())
}

// flushLocked sends the pending reports. Caller must hold o.mu.
func (o *Output) flushLocked(ctx context.Context) error {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if len(o.pending) == 0 {
		return nil
	}
	reports := o.pending
	o.pending = nil

	batch := Batch{ID: batchID(reports), SentAt: o.now().UTC(), Reports: reports}
	for _, rep := range reports {
		batch.NonConformities += len(rep.NonConformities)
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}
	return o.deliver(ctx, batch.ID, body)
}

// batchID hashes the reports' sources and non-conformity IDs.
func batchID(reports []output.Report) string {
	var b bytes.Buffer
	for _, rep := range reports {
		b.WriteString(rep.Source)
		for _, nc := range rep.NonConformities {
			b.WriteByte('|')
			b.WriteString(nc.ID)
		}
		b.WriteByte('\n')
	}
	return uuid.NewSHA1(batchNamespace, b.Bytes()).String()
}

func (o *Output) deliver(ctx context.Context, id string, body []byte) error {
	var signature string
	if len(o.secret) > 0 {
		mac := hmac.New(sha256.New, o.secret)
		mac.Write(body)
		signature = "sha256=" + hex.EncodeToString(mac.Sum(nil))
	}

	var lastErr error
	wait := time.Duration(0)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("webhook: %w", ctx.Err())
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		for k, v := range o.headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(BatchHeader, id)
		if signature != "" {
			req.Header.Set(SignatureHeader, signature)
		}

		resp, err := o.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook: HTTP %d", resp.StatusCode)
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return lastErr
		}
		wait = backoff(attempt, resp.Header.Get("Retry-After"))
	}
	return lastErr
}

// backoff is 1s, 2s, 4s, unless the server named a delay in seconds.
func backoff(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Duration(1<<attempt) * time.Second
}

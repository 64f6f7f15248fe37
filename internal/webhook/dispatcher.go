package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"judgeworker/internal/judgment"
)

const defaultRequestTimeout = 10 * time.Second

// Config holds the receiver endpoints, one per event family.
type Config struct {
	VerdictURL          string `yaml:"verdictUrl"`
	SubmissionResultURL string `yaml:"submissionResultUrl"`
	ErrorURL            string `yaml:"errorUrl"`

	// RequestTimeout bounds each POST end to end. Zero means 10s.
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// Dispatcher posts typed events to the configured receiver. One dispatcher
// is created per job invocation and released with Shutdown.
type Dispatcher struct {
	cfg    Config
	client *http.Client
}

// NewDispatcher creates a dispatcher with a dedicated HTTP client.
func NewDispatcher(cfg Config) *Dispatcher {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Dispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Dispatch serializes the event, posts it to the endpoint for its kind and
// returns the HTTP status. Any transport failure maps to 500; retrying is
// the caller's decision.
func (d *Dispatcher) Dispatch(ctx context.Context, event judgment.Event) int {
	body, err := json.Marshal(event)
	if err != nil {
		logx.WithContext(ctx).Errorf("webhook: marshal %s event failed: %v", event.Kind(), err)
		return http.StatusInternalServerError
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpointFor(event.Kind()), bytes.NewReader(body))
	if err != nil {
		logx.WithContext(ctx).Errorf("webhook: build %s request failed: %v", event.Kind(), err)
		return http.StatusInternalServerError
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		logx.WithContext(ctx).Errorf("webhook: post %s event failed: %v", event.Kind(), err)
		return http.StatusInternalServerError
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func (d *Dispatcher) endpointFor(kind judgment.EventKind) string {
	switch kind {
	case judgment.KindTestCaseResult:
		return d.cfg.VerdictURL
	case judgment.KindPassedJudgment, judgment.KindUnpassedJudgment:
		return d.cfg.SubmissionResultURL
	default:
		// Error, JobCancellation and anything unrecognized go to the
		// error endpoint.
		return d.cfg.ErrorURL
	}
}

// Shutdown releases the underlying connection pool.
func (d *Dispatcher) Shutdown() {
	d.client.CloseIdleConnections()
}

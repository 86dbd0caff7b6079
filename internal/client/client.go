package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/wildfire-risk-console/internal/circuitbreaker"
	"github.com/kjstillabower/wildfire-risk-console/internal/models"
	"github.com/kjstillabower/wildfire-risk-console/internal/observability"
)

// Submitter is what the controller needs from the prediction client.
type Submitter interface {
	Submit(ctx context.Context, req models.PredictionRequest) (models.PredictionResult, error)
	Busy() bool
}

var (
	// ErrBusy is returned when a submission is already outstanding. Nothing was sent.
	ErrBusy = errors.New("submission already in flight")
	// ErrRateLimited is returned when the submit limiter has no token. Nothing was sent.
	ErrRateLimited = errors.New("submit rate limit exceeded")

	ErrServiceStatus     = errors.New("prediction service returned an error status")
	ErrTransport         = errors.New("prediction service unreachable")
	ErrMalformedResponse = errors.New("malformed prediction response")
)

// DefaultFailureMessage is shown when an error response carries no message.
const DefaultFailureMessage = "Prediction failed"

const (
	DefaultHealthPath = "/api/wildfire/health"
	maxBodyBytes      = 1 << 20
)

// ServiceError is any failed exchange with the prediction service. Error returns the message
// meant for the user: the service's own message, the fallback, or the transport failure.
type ServiceError struct {
	Message    string
	StatusCode int // 0 when no response was received
	kind       error
	cause      error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() []error {
	errs := []error{e.kind}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Trigger is the submit affordance the client disables while a submission is outstanding.
type Trigger interface {
	SetBusy(busy bool)
}

// PredictionClient sends one submission at a time to the prediction service.
type PredictionClient struct {
	baseURL    string
	healthPath string
	client     *http.Client
	busy       atomic.Bool
	trigger    Trigger
	breaker    *circuitbreaker.CircuitBreaker
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewPredictionClient returns a client for the service at baseURL. timeout bounds each
// exchange at the transport; zero means no limit.
func NewPredictionClient(baseURL string, timeout time.Duration) (*PredictionClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid prediction API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid prediction API URL %q: scheme must be http or https", baseURL)
	}
	return &PredictionClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		healthPath: DefaultHealthPath,
		client:     &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}, nil
}

// SetTrigger sets the affordance toggled around each submission.
func (c *PredictionClient) SetTrigger(t Trigger) { c.trigger = t }

// SetCircuitBreaker makes submissions fail fast while the breaker is open.
func (c *PredictionClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) { c.breaker = cb }

// SetRateLimiter suppresses submissions beyond the limiter's rate. Nil disables it.
func (c *PredictionClient) SetRateLimiter(l *rate.Limiter) { c.limiter = l }

func (c *PredictionClient) SetLogger(l *zap.Logger) {
	if l != nil {
		c.logger = l
	}
}

// SetHealthPath overrides DefaultHealthPath.
func (c *PredictionClient) SetHealthPath(p string) {
	if p != "" {
		c.healthPath = p
	}
}

// Busy reports whether a submission is outstanding.
func (c *PredictionClient) Busy() bool {
	return c.busy.Load()
}

// acquire takes the busy flag and disables the trigger. The returned release undoes both
// and must run on every exit path.
func (c *PredictionClient) acquire() (release func(), ok bool) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	observability.PredictionInFlight.Set(1)
	if c.trigger != nil {
		c.trigger.SetBusy(true)
	}
	return func() {
		if c.trigger != nil {
			c.trigger.SetBusy(false)
		}
		observability.PredictionInFlight.Set(0)
		c.busy.Store(false)
	}, true
}

// Submit performs exactly one exchange for req. A call made while another is outstanding
// returns ErrBusy without touching the network.
func (c *PredictionClient) Submit(ctx context.Context, req models.PredictionRequest) (models.PredictionResult, error) {
	if c.Busy() {
		observability.SubmitSuppressedTotal.WithLabelValues("busy").Inc()
		return models.PredictionResult{}, ErrBusy
	}
	if c.limiter != nil && !c.limiter.Allow() {
		observability.SubmitSuppressedTotal.WithLabelValues("rate_limited").Inc()
		return models.PredictionResult{}, ErrRateLimited
	}
	release, ok := c.acquire()
	if !ok {
		observability.SubmitSuppressedTotal.WithLabelValues("busy").Inc()
		return models.PredictionResult{}, ErrBusy
	}
	defer release()

	var result models.PredictionResult
	call := func() error {
		var err error
		result, err = c.exchange(ctx, req)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
		if errors.Is(err, circuitbreaker.ErrOpen) {
			err = &ServiceError{
				Message: "Prediction service is unavailable, try again shortly",
				kind:    ErrTransport,
				cause:   err,
			}
		}
	} else {
		err = call()
	}
	if err != nil {
		observability.PredictionErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return models.PredictionResult{}, err
	}
	return result, nil
}

func (c *PredictionClient) exchange(ctx context.Context, req models.PredictionRequest) (models.PredictionResult, error) {
	start := time.Now()
	corrID := uuid.New().String()
	logger := c.logger.With(zap.String("correlation_id", corrID), zap.String("endpoint", req.Endpoint))

	httpReq, err := c.buildRequest(ctx, req, corrID)
	if err != nil {
		return models.PredictionResult{}, &ServiceError{Message: err.Error(), kind: ErrTransport, cause: err}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		observability.PredictionCallsTotal.WithLabelValues(req.Endpoint, "error").Inc()
		observability.PredictionDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		logger.Warn("prediction request failed", zap.Error(err))
		return models.PredictionResult{}, &ServiceError{Message: err.Error(), kind: ErrTransport, cause: err}
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.PredictionCallsTotal.WithLabelValues(req.Endpoint, status).Inc()
	observability.PredictionDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.PredictionResult{}, &ServiceError{
			Message:    fmt.Sprintf("read response body: %v", err),
			StatusCode: resp.StatusCode,
			kind:       ErrTransport,
			cause:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		svcErr := errorResponse(resp.StatusCode, body)
		logger.Warn("prediction rejected", zap.Int("status", resp.StatusCode), zap.String("message", svcErr.Message))
		return models.PredictionResult{}, svcErr
	}

	var result models.PredictionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return models.PredictionResult{}, &ServiceError{
			Message:    fmt.Sprintf("parse response: %v", err),
			StatusCode: resp.StatusCode,
			kind:       ErrMalformedResponse,
			cause:      err,
		}
	}
	logger.Info("prediction received", zap.Duration("duration", time.Since(start)))
	return result, nil
}

func (c *PredictionClient) buildRequest(ctx context.Context, req models.PredictionRequest, corrID string) (*http.Request, error) {
	target, err := url.JoinPath(c.baseURL, req.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", req.Endpoint, err)
	}
	payload, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Correlation-ID", corrID)
	return httpReq, nil
}

// errorResponse maps a non-2xx response to a ServiceError. A body without an error message,
// or one that is not JSON, yields DefaultFailureMessage.
func errorResponse(statusCode int, body []byte) *ServiceError {
	msg := DefaultFailureMessage
	var eb models.ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && strings.TrimSpace(eb.Error) != "" {
		msg = eb.Error
	}
	return &ServiceError{Message: msg, StatusCode: statusCode, kind: ErrServiceStatus}
}

// CheckHealth probes the service health endpoint. It does not take the busy flag.
func (c *PredictionClient) CheckHealth(ctx context.Context) (models.HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	target, err := url.JoinPath(c.baseURL, c.healthPath)
	if err != nil {
		return models.HealthStatus{}, fmt.Errorf("build health request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return models.HealthStatus{}, fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.HealthStatus{}, &ServiceError{Message: err.Error(), kind: ErrTransport, cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.HealthStatus{}, &ServiceError{Message: err.Error(), StatusCode: resp.StatusCode, kind: ErrTransport, cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return models.HealthStatus{}, errorResponse(resp.StatusCode, body)
	}
	var hs models.HealthStatus
	if err := json.Unmarshal(body, &hs); err != nil {
		return models.HealthStatus{}, &ServiceError{Message: fmt.Sprintf("parse health response: %v", err), StatusCode: resp.StatusCode, kind: ErrMalformedResponse, cause: err}
	}
	return hs, nil
}

// WaitIdle blocks until no submission is outstanding or ctx is done.
func (c *PredictionClient) WaitIdle(ctx context.Context, checkInterval time.Duration) error {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		if !c.Busy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == http.StatusTooManyRequests {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// Package controller runs the input and submission workflow: mode toggles, map selection,
// validation, the prediction exchange and rendering of its outcome.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/wildfire-risk-console/internal/client"
	"github.com/kjstillabower/wildfire-risk-console/internal/lifecycle"
	"github.com/kjstillabower/wildfire-risk-console/internal/mode"
	"github.com/kjstillabower/wildfire-risk-console/internal/observability"
	"github.com/kjstillabower/wildfire-risk-console/internal/render"
	"github.com/kjstillabower/wildfire-risk-console/internal/request"
	"github.com/kjstillabower/wildfire-risk-console/internal/traffic"
	"github.com/kjstillabower/wildfire-risk-console/internal/ui"
	"github.com/kjstillabower/wildfire-risk-console/internal/validation"
)

// Outcome is what a Submit call ended in.
type Outcome int

const (
	// OutcomeSuppressed: a submission was already in flight, the limiter was empty or the
	// process is shutting down. Nothing changed on the page.
	OutcomeSuppressed Outcome = iota
	// OutcomeInvalid: input validation failed; the error surface shows why.
	OutcomeInvalid
	// OutcomeFailed: the service, transport or renderer failed; the error surface shows why.
	OutcomeFailed
	// OutcomeRendered: the results surface shows the prediction.
	OutcomeRendered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeFailed:
		return "failed"
	case OutcomeRendered:
		return "rendered"
	default:
		return "unknown"
	}
}

// Controller owns one session. The page and map are driven only through it.
type Controller struct {
	page     ui.Page
	state    *mode.State
	builder  *request.Builder
	client   client.Submitter
	renderer *render.Renderer
	logger   *zap.Logger
}

// New wires a controller and subscribes the state to map clicks.
func New(
	page ui.Page,
	widget ui.Map,
	state *mode.State,
	builder *request.Builder,
	submitter client.Submitter,
	renderer *render.Renderer,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	widget.OnClick(state.OnMapClick)
	return &Controller{
		page:     page,
		state:    state,
		builder:  builder,
		client:   submitter,
		renderer: renderer,
		logger:   logger,
	}
}

func (c *Controller) SetLocationMode(m mode.LocationMode) {
	c.state.SetLocationMode(m)
	observability.ModeChangesTotal.WithLabelValues("location", m.String()).Inc()
}

func (c *Controller) SetDataMode(m mode.DataMode) {
	c.state.SetDataMode(m)
	observability.ModeChangesTotal.WithLabelValues("data", m.String()).Inc()
}

// SetField writes a raw value into a form field.
func (c *Controller) SetField(id ui.ElementID, value string) {
	c.page.SetValue(id, value)
}

// Selection returns the current session state.
func (c *Controller) Selection() mode.Selection {
	return c.state.Snapshot()
}

// Busy reports whether a submission is outstanding.
func (c *Controller) Busy() bool {
	return c.client.Busy()
}

// Submit validates the form for the current selection, sends it and renders the outcome.
// It blocks until the exchange completes; callers that must stay responsive run it on
// their own goroutine. A call made while another is outstanding returns OutcomeSuppressed
// without touching the page or the network.
func (c *Controller) Submit(ctx context.Context) Outcome {
	if lifecycle.IsShuttingDown() {
		c.logger.Debug("submit ignored while shutting down")
		return OutcomeSuppressed
	}
	if c.client.Busy() {
		observability.SubmitSuppressedTotal.WithLabelValues("busy").Inc()
		traffic.RecordSuppressed()
		return OutcomeSuppressed
	}

	sel := c.state.Snapshot()
	req, err := c.builder.Build(sel, c.page)
	if err != nil {
		observability.ValidationFailuresTotal.WithLabelValues(validationKind(err)).Inc()
		c.logger.Debug("submission rejected by validation", zap.Error(err))
		c.renderer.ShowError(err.Error())
		return OutcomeInvalid
	}

	start := time.Now()
	result, err := c.client.Submit(ctx, req)
	switch {
	case errors.Is(err, client.ErrBusy), errors.Is(err, client.ErrRateLimited):
		traffic.RecordSuppressed()
		c.logger.Debug("submission suppressed", zap.Error(err))
		return OutcomeSuppressed
	case err != nil:
		traffic.RecordError()
		c.logger.Warn("prediction failed",
			zap.String("endpoint", req.Endpoint),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		c.renderer.ShowError(err.Error())
		return OutcomeFailed
	}

	if err := c.renderer.ShowResult(result); err != nil {
		traffic.RecordError()
		return OutcomeFailed
	}
	traffic.RecordSuccess()
	c.logger.Info("prediction rendered",
		zap.String("endpoint", req.Endpoint),
		zap.String("location_mode", sel.Location.String()),
		zap.String("data_mode", sel.Data.String()),
		zap.Duration("duration", time.Since(start)))
	return OutcomeRendered
}

func validationKind(err error) string {
	switch {
	case errors.Is(err, validation.ErrInvalidNumber):
		return "parse"
	case errors.Is(err, validation.ErrOutOfRange):
		return "range"
	default:
		return "other"
	}
}

// Example is a preset location offered to the user.
type Example struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Examples are the preset locations, numbered from 1 in the console.
var Examples = []Example{
	{"Los Angeles, CA", 34.0522, -118.2437},
	{"Phoenix, AZ", 33.4484, -112.0740},
	{"Denver, CO", 39.7392, -104.9903},
	{"Portland, OR", 45.5152, -122.6784},
	{"Austin, TX", 30.2672, -97.7431},
}

// UseExample fills the coordinate fields from Examples[n-1]. The map marker is left alone.
func (c *Controller) UseExample(n int) (Example, error) {
	if n < 1 || n > len(Examples) {
		return Example{}, fmt.Errorf("example %d out of range 1-%d", n, len(Examples))
	}
	ex := Examples[n-1]
	c.page.SetValue(ui.LatitudeField, strconv.FormatFloat(ex.Latitude, 'f', -1, 64))
	c.page.SetValue(ui.LongitudeField, strconv.FormatFloat(ex.Longitude, 'f', -1, 64))
	return ex, nil
}

// Trigger is the page's submit affordance. While busy it is disabled, shows the busy label
// and spinner, and both result surfaces are cleared.
type Trigger struct {
	page ui.Page
}

func NewTrigger(page ui.Page) *Trigger {
	return &Trigger{page: page}
}

func (t *Trigger) SetBusy(busy bool) {
	t.page.SetDisabled(ui.PredictButton, busy)
	t.page.SetHidden(ui.BusySpinner, !busy)
	if busy {
		t.page.SetText(ui.PredictButton, ui.BusyLabel)
		t.page.SetHidden(ui.ResultsSurface, true)
		t.page.SetHidden(ui.ErrorSurface, true)
		return
	}
	t.page.SetText(ui.PredictButton, ui.PredictLabel)
}

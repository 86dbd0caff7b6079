package render

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/wildfire-risk-console/internal/models"
	"github.com/kjstillabower/wildfire-risk-console/internal/observability"
	"github.com/kjstillabower/wildfire-risk-console/internal/ui"
)

// ErrIncompleteResponse is wrapped by every RenderError.
var ErrIncompleteResponse = errors.New("incomplete prediction response")

// RenderError reports a successful response that lacks a field the results surface needs.
type RenderError struct {
	Field string
}

func (e *RenderError) Error() string {
	return "Incomplete prediction response: missing " + e.Field
}

func (e *RenderError) Unwrap() error { return ErrIncompleteResponse }

// DefaultTimeLayout mirrors the en-US locale date/time format.
const DefaultTimeLayout = "1/2/2006, 3:04:05 PM"

// Timestamps without an offset are read in the viewer's zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// View holds the display text of one successful prediction.
type View struct {
	RiskLevel     string
	RiskColor     string
	Probability   string
	FirePredicted string // empty when the service did not say
	Coordinates   string
	Time          string
	Temperature   string
	Humidity      string
	Wind          string
	Precipitation string
	NDVI          string
	Elevation     string
	Slope         string
}

// Format maps a result to display text. The timestamp is shown in loc using layout.
func Format(result models.PredictionResult, loc *time.Location, layout string) (View, error) {
	p := result.Prediction
	if p == nil {
		return View{}, &RenderError{Field: "prediction"}
	}
	if strings.TrimSpace(p.RiskLevel) == "" {
		return View{}, &RenderError{Field: "prediction.risk_level"}
	}
	if strings.TrimSpace(p.RiskColor) == "" {
		return View{}, &RenderError{Field: "prediction.risk_color"}
	}
	if p.FireRiskProbability == nil {
		return View{}, &RenderError{Field: "prediction.fire_risk_probability"}
	}

	f := result.InputFeatures
	if f == nil {
		return View{}, &RenderError{Field: "input_features"}
	}
	features := []struct {
		name  string
		value *float64
	}{
		{"temperature", f.Temperature},
		{"humidity", f.Humidity},
		{"wind_speed", f.WindSpeed},
		{"precipitation", f.Precipitation},
		{"ndvi", f.NDVI},
		{"elevation", f.Elevation},
		{"slope", f.Slope},
	}
	for _, ft := range features {
		if ft.value == nil {
			return View{}, &RenderError{Field: "input_features." + ft.name}
		}
	}

	l := result.Location
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return View{}, &RenderError{Field: "location"}
	}

	ts, err := parseTimestamp(result.Timestamp, loc)
	if err != nil {
		return View{}, &RenderError{Field: "timestamp"}
	}
	if layout == "" {
		layout = DefaultTimeLayout
	}

	v := View{
		RiskLevel:     p.RiskLevel,
		RiskColor:     p.RiskColor,
		Probability:   fmt.Sprintf("%.1f%%", *p.FireRiskProbability*100),
		Coordinates:   fmt.Sprintf("%.4f, %.4f", *l.Latitude, *l.Longitude),
		Time:          ts.In(loc).Format(layout),
		Temperature:   fmt.Sprintf("%.1f°C", *f.Temperature),
		Humidity:      fmt.Sprintf("%.1f%%", *f.Humidity),
		Wind:          fmt.Sprintf("%.1f km/h", *f.WindSpeed),
		Precipitation: fmt.Sprintf("%.1f mm", *f.Precipitation),
		NDVI:          fmt.Sprintf("%.3f", *f.NDVI),
		Elevation:     fmt.Sprintf("%.0f m", *f.Elevation),
		Slope:         fmt.Sprintf("%.1f°", *f.Slope),
	}
	if p.FirePredicted != nil {
		v.FirePredicted = "No"
		if *p.FirePredicted {
			v.FirePredicted = "Yes"
		}
	}
	return v, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Renderer writes results and errors to the page. Exactly one of the two surfaces is
// visible after either call.
type Renderer struct {
	page   ui.Page
	loc    *time.Location
	layout string
	logger *zap.Logger
}

// NewRenderer returns a Renderer that shows timestamps in loc (time.Local when nil).
func NewRenderer(page ui.Page, loc *time.Location, layout string, logger *zap.Logger) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	if layout == "" {
		layout = DefaultTimeLayout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{page: page, loc: loc, layout: layout, logger: logger}
}

// ShowResult renders a successful response. A response missing expected fields is shown
// through ShowError instead and the RenderError is returned.
func (r *Renderer) ShowResult(result models.PredictionResult) error {
	v, err := Format(result, r.loc, r.layout)
	if err != nil {
		observability.RenderFailuresTotal.Inc()
		r.logger.Warn("prediction response not renderable", zap.Error(err))
		r.ShowError(err.Error())
		return err
	}

	r.page.SetText(ui.RiskLevel, v.RiskLevel)
	r.page.SetColor(ui.RiskLevel, v.RiskColor)
	r.page.SetColor(ui.RiskIndicator, v.RiskColor)
	r.page.SetText(ui.RiskProbability, v.Probability)
	r.page.SetText(ui.FirePredicted, v.FirePredicted)
	r.page.SetHidden(ui.FirePredicted, v.FirePredicted == "")
	r.page.SetText(ui.ResultCoords, v.Coordinates)
	r.page.SetText(ui.PredictionTime, v.Time)
	r.page.SetText(ui.DataTemperature, v.Temperature)
	r.page.SetText(ui.DataHumidity, v.Humidity)
	r.page.SetText(ui.DataWind, v.Wind)
	r.page.SetText(ui.DataPrecipitation, v.Precipitation)
	r.page.SetText(ui.DataNDVI, v.NDVI)
	r.page.SetText(ui.DataElevation, v.Elevation)
	r.page.SetText(ui.DataSlope, v.Slope)

	r.page.SetHidden(ui.ErrorSurface, true)
	r.page.SetHidden(ui.ResultsSurface, false)
	r.page.ScrollIntoView(ui.ResultsSurface)
	return nil
}

// ShowError renders message verbatim in the error surface and hides the results.
func (r *Renderer) ShowError(message string) {
	r.page.SetText(ui.ErrorMessage, message)
	r.page.SetHidden(ui.ResultsSurface, true)
	r.page.SetHidden(ui.ErrorSurface, false)
	r.page.ScrollIntoView(ui.ErrorSurface)
}

// Clear hides both surfaces.
func (r *Renderer) Clear() {
	r.page.SetHidden(ui.ResultsSurface, true)
	r.page.SetHidden(ui.ErrorSurface, true)
}

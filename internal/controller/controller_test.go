package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/wildfire-risk-console/internal/client"
	"github.com/kjstillabower/wildfire-risk-console/internal/lifecycle"
	"github.com/kjstillabower/wildfire-risk-console/internal/mode"
	"github.com/kjstillabower/wildfire-risk-console/internal/models"
	"github.com/kjstillabower/wildfire-risk-console/internal/render"
	"github.com/kjstillabower/wildfire-risk-console/internal/request"
	"github.com/kjstillabower/wildfire-risk-console/internal/traffic"
	"github.com/kjstillabower/wildfire-risk-console/internal/ui"
)

const successBody = `{
	"prediction": {"risk_level": "Very High", "risk_color": "#dc2626", "fire_risk_probability": 0.873},
	"input_features": {"temperature": 35.0, "humidity": 12.0, "wind_speed": 22.0, "precipitation": 0.0, "ndvi": 0.21, "elevation": 120.0, "slope": 4.0},
	"location": {"latitude": 34.0522, "longitude": -118.2437},
	"timestamp": "2024-07-01T14:30:00"
}`

// spyPage counts how often the results surface is revealed.
type spyPage struct {
	*ui.Document
	resultsShown atomic.Int32
}

func (p *spyPage) SetHidden(id ui.ElementID, hidden bool) {
	if id == ui.ResultsSurface && !hidden {
		p.resultsShown.Add(1)
	}
	p.Document.SetHidden(id, hidden)
}

type session struct {
	ctrl   *Controller
	doc    *ui.Document
	page   *spyPage
	widget *ui.MarkerMap
	client *client.PredictionClient
}

func newSession(t *testing.T, serverURL string) *session {
	t.Helper()
	doc := ui.NewDocument()
	page := &spyPage{Document: doc}
	widget := ui.NewMarkerMap(models.Coordinate{Latitude: 39.8283, Longitude: -98.5795}, 4)
	state := mode.New(page, widget, time.Millisecond, nil)
	t.Cleanup(state.Stop)

	pc, err := client.NewPredictionClient(serverURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewPredictionClient() error = %v", err)
	}
	pc.SetTrigger(NewTrigger(page))

	renderer := render.NewRenderer(page, time.UTC, "", nil)
	ctrl := New(page, widget, state, request.NewBuilder(request.Endpoints{}), pc, renderer, nil)
	return &session{ctrl: ctrl, doc: doc, page: page, widget: widget, client: pc}
}

func (s *session) setCoordinate(lat, lon string) {
	s.ctrl.SetField(ui.LatitudeField, lat)
	s.ctrl.SetField(ui.LongitudeField, lon)
}

func (s *session) setFeatures(values map[ui.ElementID]string) {
	for id, v := range values {
		s.ctrl.SetField(id, v)
	}
}

func validFeatures() map[ui.ElementID]string {
	return map[ui.ElementID]string{
		ui.TemperatureField:   "35",
		ui.HumidityField:      "12",
		ui.WindSpeedField:     "22",
		ui.PrecipitationField: "0",
		ui.NDVIField:          "0.21",
		ui.ElevationField:     "120",
		ui.SlopeField:         "4",
	}
}

// countingServer answers every request with status and body and counts hits.
func countingServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestSubmit_CoordinateOutOfRange_NoNetwork(t *testing.T) {
	tests := []struct {
		name    string
		lat     string
		lon     string
		wantMsg string
	}{
		{"latitude above", "95", "0", "Latitude must be between -90 and 90"},
		{"latitude below", "-91", "0", "Latitude must be between -90 and 90"},
		{"longitude above", "0", "200", "Longitude must be between -180 and 180"},
		{"not a number", "abc", "0", "Please enter valid latitude and longitude values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, hits := countingServer(t, http.StatusOK, successBody)
			s := newSession(t, server.URL)
			s.setCoordinate(tt.lat, tt.lon)

			if got := s.ctrl.Submit(context.Background()); got != OutcomeInvalid {
				t.Fatalf("Submit() = %v, want invalid", got)
			}
			if n := hits.Load(); n != 0 {
				t.Errorf("server hits = %d, want 0", n)
			}
			if got := s.doc.Text(ui.ErrorMessage); got != tt.wantMsg {
				t.Errorf("error message = %q, want %q", got, tt.wantMsg)
			}
			if s.doc.Hidden(ui.ErrorSurface) || !s.doc.Hidden(ui.ResultsSurface) {
				t.Error("want error surface only")
			}
		})
	}
}

func TestSubmit_FeatureOutOfRange_NoNetwork(t *testing.T) {
	tests := []struct {
		field   ui.ElementID
		value   string
		wantMsg string
	}{
		{ui.HumidityField, "150", "Humidity must be between 0 and 100"},
		{ui.NDVIField, "1.5", "NDVI must be between 0 and 1"},
		{ui.WindSpeedField, "fast", "Please enter a valid value for wind speed"},
	}
	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			server, hits := countingServer(t, http.StatusOK, successBody)
			s := newSession(t, server.URL)
			s.ctrl.SetDataMode(mode.DataManual)
			s.setCoordinate("34.0522", "-118.2437")
			s.setFeatures(validFeatures())
			s.ctrl.SetField(tt.field, tt.value)

			if got := s.ctrl.Submit(context.Background()); got != OutcomeInvalid {
				t.Fatalf("Submit() = %v, want invalid", got)
			}
			if hits.Load() != 0 {
				t.Error("request sent despite invalid features")
			}
			if got := s.doc.Text(ui.ErrorMessage); got != tt.wantMsg {
				t.Errorf("error message = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestSubmit_AutoMode_SendsCoordinateOnly(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, successBody)
	}))
	defer server.Close()

	s := newSession(t, server.URL)
	s.setCoordinate("34.0522", "-118.2437")
	if got := s.ctrl.Submit(context.Background()); got != OutcomeRendered {
		t.Fatalf("Submit() = %v, want rendered", got)
	}
	if gotPath != request.DefaultPredictPath {
		t.Errorf("path = %q, want %q", gotPath, request.DefaultPredictPath)
	}
	if len(gotBody) != 2 || gotBody["latitude"] != 34.0522 || gotBody["longitude"] != -118.2437 {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSubmit_ManualMode_SendsFlatBody(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, successBody)
	}))
	defer server.Close()

	s := newSession(t, server.URL)
	s.ctrl.SetDataMode(mode.DataManual)
	s.setCoordinate("34.0522", "-118.2437")
	s.setFeatures(validFeatures())

	if got := s.ctrl.Submit(context.Background()); got != OutcomeRendered {
		t.Fatalf("Submit() = %v, want rendered", got)
	}
	if gotPath != request.DefaultManualPath {
		t.Errorf("path = %q, want %q", gotPath, request.DefaultManualPath)
	}
	want := []string{"latitude", "longitude", "temperature", "humidity", "wind_speed", "precipitation", "ndvi", "elevation", "slope"}
	if len(gotBody) != len(want) {
		t.Fatalf("body has %d keys, want %d: %v", len(gotBody), len(want), gotBody)
	}
	for _, k := range want {
		if _, ok := gotBody[k].(float64); !ok {
			t.Errorf("body[%q] = %v, want a number", k, gotBody[k])
		}
	}
}

func TestSubmit_RendersProbability(t *testing.T) {
	server, _ := countingServer(t, http.StatusOK, successBody)
	s := newSession(t, server.URL)
	s.setCoordinate("34.0522", "-118.2437")

	if got := s.ctrl.Submit(context.Background()); got != OutcomeRendered {
		t.Fatalf("Submit() = %v, want rendered", got)
	}
	if got := s.doc.Text(ui.RiskProbability); got != "87.3%" {
		t.Errorf("probability = %q, want 87.3%%", got)
	}
	if got := s.doc.Text(ui.RiskLevel); got != "Very High" {
		t.Errorf("risk level = %q", got)
	}
	if s.doc.Hidden(ui.ResultsSurface) || !s.doc.Hidden(ui.ErrorSurface) {
		t.Error("want results surface only")
	}
	if s.doc.Element(ui.PredictButton).Disabled {
		t.Error("trigger left disabled")
	}
	if got := s.doc.Text(ui.PredictButton); got != ui.PredictLabel {
		t.Errorf("trigger label = %q", got)
	}
}

func TestSubmit_ServiceError_ShowsMessage(t *testing.T) {
	server, _ := countingServer(t, http.StatusServiceUnavailable, `{"error": "model unavailable"}`)
	s := newSession(t, server.URL)
	s.setCoordinate("34.0522", "-118.2437")

	if got := s.ctrl.Submit(context.Background()); got != OutcomeFailed {
		t.Fatalf("Submit() = %v, want failed", got)
	}
	if got := s.doc.Text(ui.ErrorMessage); got != "model unavailable" {
		t.Errorf("error message = %q, want model unavailable", got)
	}
	if !s.doc.Hidden(ui.ResultsSurface) || s.page.resultsShown.Load() > 0 {
		t.Error("results surface shown for an error response")
	}
	if s.doc.Element(ui.PredictButton).Disabled {
		t.Error("trigger left disabled after service error")
	}
}

func TestSubmit_IncompleteResponse_ShowsError(t *testing.T) {
	server, _ := countingServer(t, http.StatusOK, `{"prediction": {"risk_level": "Low"}}`)
	s := newSession(t, server.URL)
	s.setCoordinate("34.0522", "-118.2437")

	if got := s.ctrl.Submit(context.Background()); got != OutcomeFailed {
		t.Fatalf("Submit() = %v, want failed", got)
	}
	if got := s.doc.Text(ui.ErrorMessage); got != "Incomplete prediction response: missing prediction.risk_color" {
		t.Errorf("error message = %q", got)
	}
}

func TestSubmit_SecondSubmitWhileBusy_IsNoOp(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		entered <- struct{}{}
		<-release
		_, _ = io.WriteString(w, successBody)
	}))
	defer server.Close()

	s := newSession(t, server.URL)
	s.setCoordinate("34.0522", "-118.2437")

	var wg sync.WaitGroup
	var first Outcome
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = s.ctrl.Submit(context.Background())
	}()
	<-entered

	if !s.doc.Element(ui.PredictButton).Disabled {
		t.Error("trigger not disabled while busy")
	}
	if got := s.doc.Text(ui.PredictButton); got != ui.BusyLabel {
		t.Errorf("trigger label = %q, want %q", got, ui.BusyLabel)
	}
	if got := s.ctrl.Submit(context.Background()); got != OutcomeSuppressed {
		t.Errorf("second Submit() = %v, want suppressed", got)
	}

	close(release)
	wg.Wait()
	if first != OutcomeRendered {
		t.Errorf("first Submit() = %v, want rendered", first)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
	if s.ctrl.Busy() {
		t.Error("still busy after completion")
	}
}

func TestSubmit_ShuttingDown_Suppressed(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, successBody)
	s := newSession(t, server.URL)
	s.setCoordinate("34.0522", "-118.2437")

	lifecycle.SetShuttingDown(lifecycle.ReasonSignal)
	defer lifecycle.SetShuttingDown("")
	if got := s.ctrl.Submit(context.Background()); got != OutcomeSuppressed {
		t.Errorf("Submit() = %v, want suppressed", got)
	}
	if hits.Load() != 0 {
		t.Error("request sent while shutting down")
	}
}

func TestSubmit_RecordsTraffic(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()

	ok, _ := countingServer(t, http.StatusOK, successBody)
	s := newSession(t, ok.URL)
	s.setCoordinate("34.0522", "-118.2437")
	s.ctrl.Submit(context.Background())

	bad, _ := countingServer(t, http.StatusInternalServerError, `{}`)
	s = newSession(t, bad.URL)
	s.setCoordinate("34.0522", "-118.2437")
	s.ctrl.Submit(context.Background())

	errs, total := traffic.ErrorRate(time.Minute)
	if errs != 1 || total != 2 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 2)", errs, total)
	}
	if got := s.doc.Text(ui.ErrorMessage); got != client.DefaultFailureMessage {
		t.Errorf("error message = %q, want fallback", got)
	}
}

func TestMapClick_WritesFieldsAndSingleMarker(t *testing.T) {
	server, _ := countingServer(t, http.StatusOK, successBody)
	s := newSession(t, server.URL)
	s.ctrl.SetLocationMode(mode.LocationMap)

	s.widget.Click(10, 20)
	s.widget.Click(34.0522, -118.2437)

	if got := s.doc.Value(ui.LatitudeField); got != "34.052200" {
		t.Errorf("latitude field = %q, want 34.052200", got)
	}
	if got := s.doc.Value(ui.LongitudeField); got != "-118.243700" {
		t.Errorf("longitude field = %q, want -118.243700", got)
	}
	marker, ok := s.widget.Marker()
	if !ok || marker.Latitude != 34.0522 || marker.Longitude != -118.2437 {
		t.Errorf("marker = %+v (present %v)", marker, ok)
	}
	sel := s.ctrl.Selection()
	if sel.SelectedPoint == nil || sel.SelectedPoint.Latitude != 34.0522 {
		t.Errorf("selected point = %+v", sel.SelectedPoint)
	}
}

func TestModeToggles_UpdatePage(t *testing.T) {
	server, _ := countingServer(t, http.StatusOK, successBody)
	s := newSession(t, server.URL)

	s.ctrl.SetLocationMode(mode.LocationMap)
	s.ctrl.SetDataMode(mode.DataManual)
	if s.doc.Hidden(ui.MapPanel) || !s.doc.Hidden(ui.CoordsPanel) {
		t.Error("map panel not shown")
	}
	if !s.doc.Element(ui.MapButton).Active || s.doc.Element(ui.CoordsButton).Active {
		t.Error("map toggle not active")
	}
	if s.doc.Hidden(ui.ManualDataPanel) {
		t.Error("manual panel hidden in manual mode")
	}

	s.ctrl.SetDataMode(mode.DataAuto)
	if !s.doc.Hidden(ui.ManualDataPanel) {
		t.Error("manual panel shown in auto mode")
	}
	sel := s.ctrl.Selection()
	if sel.Location != mode.LocationMap || sel.Data != mode.DataAuto {
		t.Errorf("selection = %+v", sel)
	}
}

func TestUseExample(t *testing.T) {
	server, _ := countingServer(t, http.StatusOK, successBody)
	s := newSession(t, server.URL)

	ex, err := s.ctrl.UseExample(2)
	if err != nil {
		t.Fatalf("UseExample() error = %v", err)
	}
	if ex.Name != "Phoenix, AZ" {
		t.Errorf("example = %q", ex.Name)
	}
	if got := s.doc.Value(ui.LatitudeField); got != "33.4484" {
		t.Errorf("latitude field = %q", got)
	}
	if got := s.doc.Value(ui.LongitudeField); got != "-112.074" {
		t.Errorf("longitude field = %q", got)
	}
	if _, ok := s.widget.Marker(); ok {
		t.Error("example placed a marker")
	}

	for _, n := range []int{0, len(Examples) + 1} {
		if _, err := s.ctrl.UseExample(n); err == nil {
			t.Errorf("UseExample(%d) error = nil, want error", n)
		}
	}
}

func TestOutcome_String(t *testing.T) {
	tests := map[Outcome]string{
		OutcomeSuppressed: "suppressed",
		OutcomeInvalid:    "invalid",
		OutcomeFailed:     "failed",
		OutcomeRendered:   "rendered",
		Outcome(42):       "unknown",
	}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}

package mode

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/wildfire-risk-console/internal/models"
	"github.com/kjstillabower/wildfire-risk-console/internal/ui"
)

// LocationMode selects how the location is entered.
type LocationMode int

const (
	LocationCoordinates LocationMode = iota
	LocationMap
)

func (m LocationMode) String() string {
	switch m {
	case LocationCoordinates:
		return "coordinates"
	case LocationMap:
		return "map"
	default:
		return "unknown"
	}
}

// ParseLocationMode accepts "coordinates" (or "coords") and "map".
func ParseLocationMode(s string) (LocationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coordinates", "coords":
		return LocationCoordinates, nil
	case "map":
		return LocationMap, nil
	}
	return 0, fmt.Errorf("unknown location mode %q", s)
}

// DataMode selects whether environmental data is derived by the service or entered by hand.
type DataMode int

const (
	DataAuto DataMode = iota
	DataManual
)

func (m DataMode) String() string {
	switch m {
	case DataAuto:
		return "auto"
	case DataManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParseDataMode accepts "auto" and "manual".
func ParseDataMode(s string) (DataMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "automatic":
		return DataAuto, nil
	case "manual":
		return DataManual, nil
	}
	return 0, fmt.Errorf("unknown data mode %q", s)
}

// Selection is a point-in-time copy of the session state.
type Selection struct {
	Location      LocationMode
	Data          DataMode
	SelectedPoint *models.Coordinate
}

// DefaultResizeDelay lets the surrounding layout settle before the map re-measures itself.
const DefaultResizeDelay = 100 * time.Millisecond

// State owns the selection for one session and keeps the page and map in step with it.
// It starts in coordinate entry with automatic data.
type State struct {
	mu          sync.Mutex
	sel         Selection
	page        ui.Page
	widget      ui.Map
	resizeDelay time.Duration
	resizeTimer *time.Timer
	logger      *zap.Logger
}

// New returns a State bound to page and widget. A non-positive resizeDelay uses DefaultResizeDelay.
func New(page ui.Page, widget ui.Map, resizeDelay time.Duration, logger *zap.Logger) *State {
	if resizeDelay <= 0 {
		resizeDelay = DefaultResizeDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &State{
		sel:         Selection{Location: LocationCoordinates, Data: DataAuto},
		page:        page,
		widget:      widget,
		resizeDelay: resizeDelay,
		logger:      logger,
	}
	s.applyLocation()
	s.applyData()
	return s
}

// SetLocationMode switches between coordinate entry and map selection. Entering map mode
// schedules one resize of the map after the resize delay, since the hidden map may have
// been laid out at zero size.
func (s *State) SetLocationMode(m LocationMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.sel.Location
	s.sel.Location = m
	s.applyLocation()
	if prev == m {
		return
	}
	s.logger.Debug("location mode changed", zap.Stringer("from", prev), zap.Stringer("to", m))
	if m == LocationMap {
		if s.resizeTimer != nil {
			s.resizeTimer.Stop()
		}
		s.resizeTimer = time.AfterFunc(s.resizeDelay, s.widget.RequestResize)
	}
}

// SetDataMode switches between automatic and manual environmental data.
func (s *State) SetDataMode(m DataMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.sel.Data
	s.sel.Data = m
	s.applyData()
	if prev != m {
		s.logger.Debug("data mode changed", zap.Stringer("from", prev), zap.Stringer("to", m))
	}
}

// OnMapClick replaces the selected point and its marker, and mirrors the point into the
// coordinate fields with six decimals so both location modes read the same values.
func (s *State) OnMapClick(lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sel.SelectedPoint != nil {
		s.widget.ClearMarker()
	}
	s.sel.SelectedPoint = &models.Coordinate{Latitude: lat, Longitude: lon}
	s.widget.PlaceMarker(lat, lon)
	s.page.SetValue(ui.LatitudeField, strconv.FormatFloat(lat, 'f', 6, 64))
	s.page.SetValue(ui.LongitudeField, strconv.FormatFloat(lon, 'f', 6, 64))
}

// Snapshot returns a copy of the current selection.
func (s *State) Snapshot() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sel
	if s.sel.SelectedPoint != nil {
		p := *s.sel.SelectedPoint
		out.SelectedPoint = &p
	}
	return out
}

// Stop cancels a pending map resize.
func (s *State) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resizeTimer != nil {
		s.resizeTimer.Stop()
		s.resizeTimer = nil
	}
}

func (s *State) applyLocation() {
	onMap := s.sel.Location == LocationMap
	s.page.SetActive(ui.CoordsButton, !onMap)
	s.page.SetActive(ui.MapButton, onMap)
	s.page.SetHidden(ui.CoordsPanel, onMap)
	s.page.SetHidden(ui.MapPanel, !onMap)
}

func (s *State) applyData() {
	manual := s.sel.Data == DataManual
	s.page.SetActive(ui.AutoDataButton, !manual)
	s.page.SetActive(ui.ManualDataButton, manual)
	s.page.SetHidden(ui.ManualDataPanel, !manual)
}

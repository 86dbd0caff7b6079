package ui

import (
	"sync"

	"github.com/kjstillabower/wildfire-risk-console/internal/models"
)

// MarkerMap is a Map without tiles: it keeps the single marker and the click subscribers.
// Click simulates a user click and is what the console calls.
type MarkerMap struct {
	mu       sync.Mutex
	center   models.Coordinate
	zoom     int
	marker   *models.Coordinate
	handlers []func(lat, lon float64)
	resizes  int
	onResize func()
}

// NewMarkerMap returns a map centred on center at the given zoom level.
func NewMarkerMap(center models.Coordinate, zoom int) *MarkerMap {
	return &MarkerMap{center: center, zoom: zoom}
}

func (m *MarkerMap) OnClick(fn func(lat, lon float64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// Click dispatches a click at (lat, lon) to every subscriber.
func (m *MarkerMap) Click(lat, lon float64) {
	m.mu.Lock()
	handlers := append([]func(lat, lon float64){}, m.handlers...)
	m.mu.Unlock()
	for _, fn := range handlers {
		fn(lat, lon)
	}
}

func (m *MarkerMap) PlaceMarker(lat, lon float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker = &models.Coordinate{Latitude: lat, Longitude: lon}
}

func (m *MarkerMap) ClearMarker() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker = nil
}

// Marker returns the current marker, if any.
func (m *MarkerMap) Marker() (models.Coordinate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marker == nil {
		return models.Coordinate{}, false
	}
	return *m.marker, true
}

// SetResizeHook registers fn to run after every resize request.
func (m *MarkerMap) SetResizeHook(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onResize = fn
}

func (m *MarkerMap) RequestResize() {
	m.mu.Lock()
	m.resizes++
	hook := m.onResize
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// Resizes returns how many resize requests the map has received.
func (m *MarkerMap) Resizes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resizes
}

// View returns the centre and zoom the map was created with.
func (m *MarkerMap) View() (models.Coordinate, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.center, m.zoom
}

// Package ui defines the collaborators the controller drives: a page of named elements and
// a map widget. Document and MarkerMap are the in-process implementations used by the console.
package ui

// ElementID is the stable identifier of a page element.
type ElementID string

// Input fields.
const (
	LatitudeField      ElementID = "latitude"
	LongitudeField     ElementID = "longitude"
	TemperatureField   ElementID = "temperature"
	HumidityField      ElementID = "humidity"
	WindSpeedField     ElementID = "windSpeed"
	PrecipitationField ElementID = "precipitation"
	NDVIField          ElementID = "ndvi"
	ElevationField     ElementID = "elevation"
	SlopeField         ElementID = "slope"
)

// Toggles, panels and the submit trigger.
const (
	CoordsButton     ElementID = "coordsBtn"
	MapButton        ElementID = "mapBtn"
	AutoDataButton   ElementID = "autoDataBtn"
	ManualDataButton ElementID = "manualDataBtn"
	CoordsPanel      ElementID = "coordsInput"
	MapPanel         ElementID = "mapInput"
	ManualDataPanel  ElementID = "manualDataInput"
	PredictButton    ElementID = "predictBtn"
	BusySpinner      ElementID = "loadingSpinner"
)

// Result and error surfaces.
const (
	ResultsSurface    ElementID = "resultsContainer"
	ErrorSurface      ElementID = "errorContainer"
	ErrorMessage      ElementID = "errorMessage"
	RiskLevel         ElementID = "riskLevel"
	RiskIndicator     ElementID = "riskIndicator"
	RiskProbability   ElementID = "riskProbability"
	FirePredicted     ElementID = "firePredicted"
	ResultCoords      ElementID = "resultCoords"
	PredictionTime    ElementID = "predictionTime"
	DataTemperature   ElementID = "dataTemp"
	DataHumidity      ElementID = "dataHumidity"
	DataWind          ElementID = "dataWind"
	DataPrecipitation ElementID = "dataPrecip"
	DataNDVI          ElementID = "dataNdvi"
	DataElevation     ElementID = "dataElevation"
	DataSlope         ElementID = "dataSlope"
)

// Trigger labels.
const (
	PredictLabel = "Predict Wildfire Risk"
	BusyLabel    = "Predicting..."
)

// Page is the host surface. Implementations must be safe for use from multiple goroutines.
type Page interface {
	Value(id ElementID) string
	SetValue(id ElementID, v string)
	SetText(id ElementID, text string)
	SetColor(id ElementID, css string)
	SetHidden(id ElementID, hidden bool)
	SetActive(id ElementID, active bool)
	SetDisabled(id ElementID, disabled bool)
	ScrollIntoView(id ElementID)
}

// Map is the map widget. The controller subscribes to clicks and keeps at most one marker.
type Map interface {
	OnClick(fn func(lat, lon float64))
	PlaceMarker(lat, lon float64)
	ClearMarker()
	RequestResize()
}

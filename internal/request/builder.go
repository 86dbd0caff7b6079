package request

import (
	"github.com/kjstillabower/wildfire-risk-console/internal/mode"
	"github.com/kjstillabower/wildfire-risk-console/internal/models"
	"github.com/kjstillabower/wildfire-risk-console/internal/ui"
	"github.com/kjstillabower/wildfire-risk-console/internal/validation"
)

// Default endpoint paths of the prediction service.
const (
	DefaultPredictPath = "/api/wildfire/predict"
	DefaultManualPath  = "/api/wildfire/predict-manual"
)

// Form is the read side of the page.
type Form interface {
	Value(id ui.ElementID) string
}

// Endpoints are the submission targets, one per data mode.
type Endpoints struct {
	Standard string
	Manual   string
}

// featureField maps one form identifier to its wire key. Every environmental field appears
// exactly once; windSpeed -> wind_speed is the only entry whose names differ.
type featureField struct {
	form  ui.ElementID
	wire  string
	value func(models.EnvironmentalFeatures) float64
}

var featureFields = []featureField{
	{ui.TemperatureField, "temperature", func(f models.EnvironmentalFeatures) float64 { return f.Temperature }},
	{ui.HumidityField, "humidity", func(f models.EnvironmentalFeatures) float64 { return f.Humidity }},
	{ui.WindSpeedField, "wind_speed", func(f models.EnvironmentalFeatures) float64 { return f.WindSpeed }},
	{ui.PrecipitationField, "precipitation", func(f models.EnvironmentalFeatures) float64 { return f.Precipitation }},
	{ui.NDVIField, "ndvi", func(f models.EnvironmentalFeatures) float64 { return f.NDVI }},
	{ui.ElevationField, "elevation", func(f models.EnvironmentalFeatures) float64 { return f.Elevation }},
	{ui.SlopeField, "slope", func(f models.EnvironmentalFeatures) float64 { return f.Slope }},
}

// Builder shapes submissions for a fixed pair of endpoints.
type Builder struct {
	endpoints Endpoints
}

// NewBuilder returns a Builder. Empty endpoint paths fall back to the service defaults.
func NewBuilder(endpoints Endpoints) *Builder {
	if endpoints.Standard == "" {
		endpoints.Standard = DefaultPredictPath
	}
	if endpoints.Manual == "" {
		endpoints.Manual = DefaultManualPath
	}
	return &Builder{endpoints: endpoints}
}

// Build validates the form for the selection and returns the request to send. The coordinate
// always comes from the latitude/longitude fields, which map clicks also write. In manual
// mode the seven features are merged into the body next to the coordinate. Any validation
// error is returned before an endpoint is chosen.
func (b *Builder) Build(sel mode.Selection, form Form) (models.PredictionRequest, error) {
	coord, err := validation.ValidateCoordinate(form.Value(ui.LatitudeField), form.Value(ui.LongitudeField))
	if err != nil {
		return models.PredictionRequest{}, err
	}

	body := map[string]float64{
		"latitude":  coord.Latitude,
		"longitude": coord.Longitude,
	}

	if sel.Data != mode.DataManual {
		return models.PredictionRequest{Endpoint: b.endpoints.Standard, Body: body}, nil
	}

	raw := make(map[string]string, len(featureFields))
	for _, f := range featureFields {
		raw[string(f.form)] = form.Value(f.form)
	}
	features, err := validation.ValidateFeatures(raw)
	if err != nil {
		return models.PredictionRequest{}, err
	}
	for _, f := range featureFields {
		body[f.wire] = f.value(features)
	}
	return models.PredictionRequest{Endpoint: b.endpoints.Manual, Body: body}, nil
}

// WireName returns the wire key for a form identifier, and false if the field is not an
// environmental feature.
func WireName(form ui.ElementID) (string, bool) {
	for _, f := range featureFields {
		if f.form == form {
			return f.wire, true
		}
	}
	return "", false
}

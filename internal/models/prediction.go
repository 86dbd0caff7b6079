package models

// Coordinate is a validated geographic point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EnvironmentalFeatures are the seven measurements a manual-data submission carries.
type EnvironmentalFeatures struct {
	Temperature   float64 `json:"temperature"`   // Celsius
	Humidity      float64 `json:"humidity"`      // percent, 0-100
	WindSpeed     float64 `json:"wind_speed"`    // km/h
	Precipitation float64 `json:"precipitation"` // mm
	NDVI          float64 `json:"ndvi"`          // 0-1
	Elevation     float64 `json:"elevation"`     // meters
	Slope         float64 `json:"slope"`         // degrees, 0-90
}

// PredictionRequest is one shaped submission: the endpoint path and the flat JSON body.
type PredictionRequest struct {
	Endpoint string
	Body     map[string]float64
}

// PredictionResult is the 200 response of the prediction service. Pointer fields let the
// renderer tell a missing value from a zero one.
type PredictionResult struct {
	Prediction    *Prediction    `json:"prediction"`
	InputFeatures *InputFeatures `json:"input_features"`
	Location      *Location      `json:"location"`
	Timestamp     string         `json:"timestamp"`
}

type Prediction struct {
	RiskLevel           string   `json:"risk_level"`
	RiskColor           string   `json:"risk_color"`
	FireRiskProbability *float64 `json:"fire_risk_probability"`
	FirePredicted       *bool    `json:"fire_predicted,omitempty"`
}

type InputFeatures struct {
	Temperature   *float64 `json:"temperature"`
	Humidity      *float64 `json:"humidity"`
	WindSpeed     *float64 `json:"wind_speed"`
	Precipitation *float64 `json:"precipitation"`
	NDVI          *float64 `json:"ndvi"`
	Elevation     *float64 `json:"elevation"`
	Slope         *float64 `json:"slope"`
}

type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// ErrorBody is the JSON body of a non-2xx response.
type ErrorBody struct {
	Error string `json:"error,omitempty"`
}

// HealthStatus is the body of the service health probe.
type HealthStatus struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

package validation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/kjstillabower/wildfire-risk-console/internal/models"
)

// ErrInvalidNumber is wrapped by every ParseError.
var ErrInvalidNumber = errors.New("invalid number")

// ErrOutOfRange is wrapped by every RangeError.
var ErrOutOfRange = errors.New("value out of range")

// Form identifiers of the seven environmental fields, in parse order.
const (
	FieldTemperature   = "temperature"
	FieldHumidity      = "humidity"
	FieldWindSpeed     = "windSpeed"
	FieldPrecipitation = "precipitation"
	FieldNDVI          = "ndvi"
	FieldElevation     = "elevation"
	FieldSlope         = "slope"
)

// FeatureFields lists the form identifiers ValidateFeatures reads, in the order they are parsed.
var FeatureFields = []string{
	FieldTemperature,
	FieldHumidity,
	FieldWindSpeed,
	FieldPrecipitation,
	FieldNDVI,
	FieldElevation,
	FieldSlope,
}

// ParseError reports input that is not a finite number. Field is empty for the coordinate pair.
type ParseError struct {
	Field string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return "Please enter valid latitude and longitude values"
	}
	return "Please enter a valid value for " + e.Field
}

func (e *ParseError) Unwrap() error { return ErrInvalidNumber }

// RangeError reports a number outside its domain bounds. Max is +Inf for fields that only
// have a lower bound.
type RangeError struct {
	Field    string
	Min, Max float64
	message  string
}

func (e *RangeError) Error() string {
	if e.message != "" {
		return e.message
	}
	if math.IsInf(e.Max, 1) {
		return fmt.Sprintf("%s cannot be negative", capitalize(e.Field))
	}
	return fmt.Sprintf("%s must be between %g and %g", capitalize(e.Field), e.Min, e.Max)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// ValidateCoordinate parses the raw latitude and longitude and checks them against
// [-90,90] and [-180,180]. Latitude is checked first.
func ValidateCoordinate(rawLat, rawLon string) (models.Coordinate, error) {
	lat, latOK := parseFinite(rawLat)
	lon, lonOK := parseFinite(rawLon)
	if !latOK || !lonOK {
		return models.Coordinate{}, &ParseError{}
	}
	if lat < -90 || lat > 90 {
		return models.Coordinate{}, &RangeError{Field: "latitude", Min: -90, Max: 90}
	}
	if lon < -180 || lon > 180 {
		return models.Coordinate{}, &RangeError{Field: "longitude", Min: -180, Max: 180}
	}
	return models.Coordinate{Latitude: lat, Longitude: lon}, nil
}

// ValidateFeatures parses the seven environmental fields of raw, keyed by form identifier,
// then applies range checks in a fixed order and reports only the first violation.
func ValidateFeatures(raw map[string]string) (models.EnvironmentalFeatures, error) {
	values := make(map[string]float64, len(FeatureFields))
	for _, field := range FeatureFields {
		v, ok := parseFinite(raw[field])
		if !ok {
			return models.EnvironmentalFeatures{}, &ParseError{Field: FieldLabel(field)}
		}
		values[field] = v
	}

	f := models.EnvironmentalFeatures{
		Temperature:   values[FieldTemperature],
		Humidity:      values[FieldHumidity],
		WindSpeed:     values[FieldWindSpeed],
		Precipitation: values[FieldPrecipitation],
		NDVI:          values[FieldNDVI],
		Elevation:     values[FieldElevation],
		Slope:         values[FieldSlope],
	}

	checks := []struct {
		value float64
		err   *RangeError
	}{
		{f.Humidity, &RangeError{Field: "humidity", Min: 0, Max: 100}},
		{f.NDVI, &RangeError{Field: "ndvi", Min: 0, Max: 1, message: "NDVI must be between 0 and 1"}},
		{f.WindSpeed, &RangeError{Field: "wind speed", Min: 0, Max: math.Inf(1)}},
		{f.Precipitation, &RangeError{Field: "precipitation", Min: 0, Max: math.Inf(1)}},
		{f.Elevation, &RangeError{Field: "elevation", Min: 0, Max: math.Inf(1)}},
		{f.Slope, &RangeError{Field: "slope", Min: 0, Max: 90, message: "Slope must be between 0 and 90 degrees"}},
	}
	for _, c := range checks {
		if c.value < c.err.Min || c.value > c.err.Max {
			return models.EnvironmentalFeatures{}, c.err
		}
	}
	return f, nil
}

// FieldLabel turns a form identifier into the name shown to the user: a space is inserted
// before every upper-case letter and the result is lower-cased ("windSpeed" -> "wind speed").
func FieldLabel(field string) string {
	var b strings.Builder
	for _, r := range field {
		if unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// parseFinite accepts a trimmed decimal number and rejects NaN, infinities and hex floats.
func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if hasBasePrefix(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// hasBasePrefix reports a Go literal prefix such as 0x, which ParseFloat accepts (with
// underscores) but a number field does not.
func hasBasePrefix(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && strings.ContainsRune("xXbBoO", rune(s[1]))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

package validation

import (
	"errors"
	"testing"
)

func validFeatures() map[string]string {
	return map[string]string{
		FieldTemperature:   "31.5",
		FieldHumidity:      "22",
		FieldWindSpeed:     "14.2",
		FieldPrecipitation: "0",
		FieldNDVI:          "0.31",
		FieldElevation:     "480",
		FieldSlope:         "12.5",
	}
}

func TestValidateCoordinate_Valid(t *testing.T) {
	tests := []struct {
		name           string
		lat, lon       string
		wantLat, wantL float64
	}{
		{"los angeles", "34.0522", "-118.2437", 34.0522, -118.2437},
		{"trimmed", "  45.5 ", " -122.6 ", 45.5, -122.6},
		{"north pole", "90", "180", 90, 180},
		{"south bound", "-90", "-180", -90, -180},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateCoordinate(tc.lat, tc.lon)
			if err != nil {
				t.Fatalf("ValidateCoordinate() err = %v", err)
			}
			if got.Latitude != tc.wantLat || got.Longitude != tc.wantL {
				t.Errorf("ValidateCoordinate() = %+v, want (%v, %v)", got, tc.wantLat, tc.wantL)
			}
		})
	}
}

func TestValidateCoordinate_ParseError(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon string
	}{
		{"empty lat", "", "10"},
		{"empty lon", "10", ""},
		{"text", "north", "10"},
		{"nan", "NaN", "10"},
		{"inf", "10", "Inf"},
		{"hex float", "0x1p3", "10"},
		{"hex with underscore", "10", "0x_1p3"},
		{"signed hex", "-0X10", "10"},
		{"digit separators", "1_0", "10"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateCoordinate(tc.lat, tc.lon)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if !errors.Is(err, ErrInvalidNumber) {
				t.Errorf("err = %v, want wrapping ErrInvalidNumber", err)
			}
			if err.Error() != "Please enter valid latitude and longitude values" {
				t.Errorf("message = %q", err.Error())
			}
		})
	}
}

func TestValidateCoordinate_RangeError(t *testing.T) {
	tests := []struct {
		name      string
		lat, lon  string
		wantField string
		wantMsg   string
	}{
		{"lat 95", "95", "0", "latitude", "Latitude must be between -90 and 90"},
		{"lat -91", "-91", "0", "latitude", "Latitude must be between -90 and 90"},
		{"lon 200", "0", "200", "longitude", "Longitude must be between -180 and 180"},
		{"lon -180.5", "0", "-180.5", "longitude", "Longitude must be between -180 and 180"},
		{"both bad reports latitude", "100", "200", "latitude", "Latitude must be between -90 and 90"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateCoordinate(tc.lat, tc.lon)
			var re *RangeError
			if !errors.As(err, &re) {
				t.Fatalf("err = %v, want *RangeError", err)
			}
			if re.Field != tc.wantField {
				t.Errorf("Field = %q, want %q", re.Field, tc.wantField)
			}
			if err.Error() != tc.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tc.wantMsg)
			}
			if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("err = %v, want wrapping ErrOutOfRange", err)
			}
		})
	}
}

func TestValidateFeatures_Valid(t *testing.T) {
	got, err := ValidateFeatures(validFeatures())
	if err != nil {
		t.Fatalf("ValidateFeatures() err = %v", err)
	}
	if got.WindSpeed != 14.2 {
		t.Errorf("WindSpeed = %v, want 14.2", got.WindSpeed)
	}
	if got.Temperature != 31.5 || got.Humidity != 22 || got.NDVI != 0.31 || got.Elevation != 480 || got.Slope != 12.5 {
		t.Errorf("ValidateFeatures() = %+v", got)
	}
}

func TestValidateFeatures_ParseError(t *testing.T) {
	tests := []struct {
		field     string
		wantLabel string
	}{
		{FieldTemperature, "temperature"},
		{FieldWindSpeed, "wind speed"},
		{FieldNDVI, "ndvi"},
		{FieldSlope, "slope"},
	}
	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			raw := validFeatures()
			raw[tc.field] = "abc"
			_, err := ValidateFeatures(raw)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if pe.Field != tc.wantLabel {
				t.Errorf("Field = %q, want %q", pe.Field, tc.wantLabel)
			}
			if err.Error() != "Please enter a valid value for "+tc.wantLabel {
				t.Errorf("message = %q", err.Error())
			}
		})
	}
}

func TestValidateFeatures_RejectsHexFloat(t *testing.T) {
	raw := validFeatures()
	raw[FieldElevation] = "0x1p8"
	_, err := ValidateFeatures(raw)
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Field != "elevation" {
		t.Fatalf("err = %v, want *ParseError for elevation", err)
	}
}

func TestValidateFeatures_ParseBeforeRange(t *testing.T) {
	raw := validFeatures()
	raw[FieldHumidity] = "150"
	raw[FieldSlope] = ""
	_, err := ValidateFeatures(raw)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError for slope", err)
	}
}

func TestValidateFeatures_RangeError(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		value     string
		wantField string
		wantMsg   string
	}{
		{"humidity 150", FieldHumidity, "150", "humidity", "Humidity must be between 0 and 100"},
		{"humidity negative", FieldHumidity, "-1", "humidity", "Humidity must be between 0 and 100"},
		{"ndvi 1.5", FieldNDVI, "1.5", "ndvi", "NDVI must be between 0 and 1"},
		{"wind negative", FieldWindSpeed, "-3", "wind speed", "Wind speed cannot be negative"},
		{"precipitation negative", FieldPrecipitation, "-0.1", "precipitation", "Precipitation cannot be negative"},
		{"elevation negative", FieldElevation, "-10", "elevation", "Elevation cannot be negative"},
		{"slope 91", FieldSlope, "91", "slope", "Slope must be between 0 and 90 degrees"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := validFeatures()
			raw[tc.field] = tc.value
			_, err := ValidateFeatures(raw)
			var re *RangeError
			if !errors.As(err, &re) {
				t.Fatalf("err = %v, want *RangeError", err)
			}
			if re.Field != tc.wantField {
				t.Errorf("Field = %q, want %q", re.Field, tc.wantField)
			}
			if err.Error() != tc.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestValidateFeatures_FirstViolationOnly(t *testing.T) {
	raw := validFeatures()
	raw[FieldSlope] = "120"
	raw[FieldNDVI] = "2"
	raw[FieldHumidity] = "101"
	_, err := ValidateFeatures(raw)
	var re *RangeError
	if !errors.As(err, &re) || re.Field != "humidity" {
		t.Fatalf("err = %v, want humidity range error", err)
	}

	raw[FieldHumidity] = "50"
	_, err = ValidateFeatures(raw)
	if !errors.As(err, &re) || re.Field != "ndvi" {
		t.Fatalf("err = %v, want ndvi range error", err)
	}
}

func TestFieldLabel(t *testing.T) {
	tests := map[string]string{
		"windSpeed":     "wind speed",
		"temperature":   "temperature",
		"ndvi":          "ndvi",
		"soilMoistureX": "soil moisture x",
	}
	for in, want := range tests {
		if got := FieldLabel(in); got != want {
			t.Errorf("FieldLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

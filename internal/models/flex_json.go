package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexFloat is an optional float that accepts native JSON numbers as well as
// string-encoded numbers. Stat providers are not consistent about quoting
// numeric values and sometimes send null or "" for unknown values; anything
// that does not parse to a finite number decodes to an invalid (absent) value
// instead of failing the whole payload.
type FlexFloat struct {
	Value float64
	Valid bool
}

// Float returns a valid FlexFloat holding v.
func Float(v float64) FlexFloat {
	return FlexFloat{Value: v, Valid: true}
}

// Or returns the value, or fallback when the value is absent.
func (f FlexFloat) Or(fallback float64) float64 {
	if !f.Valid {
		return fallback
	}
	return f.Value
}

// UnmarshalJSON implements flexible decoding. It never returns an error.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	// Value is a JSON string: coerce
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f.set(n)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		// bools, objects and arrays are not numbers
		return nil
	}
	f.set(n)
	return nil
}

func (f *FlexFloat) set(n float64) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return
	}
	f.Value = n
	f.Valid = true
}

// MarshalJSON writes null for absent values.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

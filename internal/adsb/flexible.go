package adsb

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleField can hold either a string or a number
type FlexibleField struct {
	value any
}

// NewNumberField wraps a number
func NewNumberField(v float64) *FlexibleField {
	return &FlexibleField{value: v}
}

// UnmarshalJSON implements custom JSON unmarshaling for FlexibleField
func (f *FlexibleField) UnmarshalJSON(data []byte) error {
	// Try to unmarshal as a number first
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		f.value = num
		return nil
	}

	// If that fails, try to unmarshal as a string
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		f.value = str
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleField", data)
}

// MarshalJSON writes the value back in its original form
func (f FlexibleField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.value)
}

// Number returns the value when it is a JSON number. Strings such as "ground" are not numbers.
func (f *FlexibleField) Number() (float64, bool) {
	if f == nil {
		return 0, false
	}
	v, ok := f.value.(float64)
	return v, ok
}

// String returns the value as a string
func (f *FlexibleField) String() string {
	if f == nil {
		return ""
	}
	switch v := f.value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return ""
	}
}

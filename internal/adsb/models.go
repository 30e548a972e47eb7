package adsb

// RawAircraftData represents the aircraft.json document written by readsb / dump1090
type RawAircraftData struct {
	Now      float64      `json:"now"`
	Messages int          `json:"messages"`
	Aircraft []ADSBTarget `json:"aircraft"`
}

// ADSBTarget represents a single aircraft in the raw ADS-B data.
// Optional fields are pointers so a missing value is distinguishable from zero.
type ADSBTarget struct {
	Hex          string         `json:"hex"`
	Type         string         `json:"type,omitempty"`
	Flight       string         `json:"flight,omitempty"`
	Registration string         `json:"r,omitempty"` // tar1090 database field, when enabled
	AircraftType string         `json:"t,omitempty"`
	AltBaro      *FlexibleField `json:"alt_baro,omitempty"` // feet, or "ground"
	AltGeom      *float64       `json:"alt_geom,omitempty"`
	GS           *float64       `json:"gs,omitempty"`
	Track        *float64       `json:"track,omitempty"`
	BaroRate     *float64       `json:"baro_rate,omitempty"`
	Squawk       string         `json:"squawk,omitempty"`
	Category     string         `json:"category,omitempty"`
	Lat          *float64       `json:"lat,omitempty"`
	Lon          *float64       `json:"lon,omitempty"`
	SeenPos      float64        `json:"seen_pos,omitempty"`
	Seen         float64        `json:"seen,omitempty"`
	Messages     int            `json:"messages,omitempty"`
	RSSI         float64        `json:"rssi,omitempty"`
}

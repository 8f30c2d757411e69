package weather

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Reading is one normalized weather observation. Optional numeric fields are nil
// when the upstream did not report them.
type Reading struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	ObservedAt      time.Time  `json:"observed_at" gorm:"index;not null" validate:"required"`
	Location        string     `json:"location,omitempty" gorm:"index;size:128"`
	Temperature     *float64   `json:"temperature"`
	Humidity        *float64   `json:"humidity" validate:"omitempty,gte=0,lte=100"`
	WindSpeed       *float64   `json:"wind_speed" validate:"omitempty,gte=0"`
	RainProbability *float64   `json:"rain_probability" validate:"omitempty,gte=0,lte=100"`
	Condition       *string    `json:"condition" gorm:"size:255"`
	Source          string     `json:"source" gorm:"size:100;not null;default:'open-meteo'" validate:"required"`
	RawPayload      RawPayload `json:"raw_payload,omitempty" gorm:"type:text"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TableName pins the readings table name.
func (Reading) TableName() string {
	return "weather_readings"
}

// Insight is one generated narrative snapshot. The window and location used to
// produce it are not persisted.
type Insight struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	GeneratedAt time.Time `json:"generated_at" gorm:"index;not null"`
	Text        string    `json:"text" gorm:"type:text;not null"`
}

// TableName pins the insights table name.
func (Insight) TableName() string {
	return "weather_insights"
}

// Site is a resolved place the fetcher can ask the upstream about.
type Site struct {
	Name      string  `json:"name"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is a place name with an optional country hint, as configured or requested.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// RawPayload is the verbatim upstream response body.
type RawPayload []byte

// MarshalJSON emits the payload as embedded JSON.
func (p RawPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	if !json.Valid(p) {
		return json.Marshal(string(p))
	}
	return p, nil
}

// UnmarshalJSON stores the embedded JSON as-is.
func (p *RawPayload) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*p = nil
		return nil
	}
	*p = append((*p)[:0], b...)
	return nil
}

// Value implements driver.Valuer.
func (p RawPayload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return string(p), nil
}

// Scan implements sql.Scanner.
func (p *RawPayload) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
	case []byte:
		*p = append(RawPayload(nil), v...)
	case string:
		*p = RawPayload(v)
	default:
		return fmt.Errorf("unsupported raw payload type %T", src)
	}
	return nil
}

// Float returns a pointer to v. Handy for optional numeric fields.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

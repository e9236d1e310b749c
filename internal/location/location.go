package location

import (
	"fmt"
	"time"
)

// UnavailableAddress marks a location whose capture or lookup failed.
const UnavailableAddress = "Location unavailable"

type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
}

// Unavailable is the sentinel stored when no usable position was captured.
func Unavailable() Location {
	return Location{Address: UnavailableAddress}
}

func (l Location) HasCoordinates() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

func (l Location) IsUnavailable() bool {
	return !l.HasCoordinates() && (l.Address == "" || l.Address == UnavailableAddress)
}

// Coordinates renders "lat, lon" with six decimals, or "" when there are none.
func (l Location) Coordinates() string {
	if !l.HasCoordinates() {
		return ""
	}
	return fmt.Sprintf("%.6f, %.6f", l.Latitude, l.Longitude)
}

func (l Location) valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

package geo

import "time"

// AcquireTimeout bounds how long a client waits for a position fix before
// reporting ErrCodeTimeout.
const AcquireTimeout = 10 * time.Second

// Reading is a position fix reported by the technician's device.
type Reading struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Location acquisition error codes, mirroring the platform geolocation API.
// Each one is user-visible and retryable; none aborts a check-in/out.
const (
	ErrCodePermissionDenied    = "permission_denied"
	ErrCodePositionUnavailable = "position_unavailable"
	ErrCodeTimeout             = "timeout"
	ErrCodeUnknown             = "unknown"
)

// LocationError is a failed location acquisition reported by the client
// alongside a check-in/out attempt.
type LocationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e LocationError) Error() string { return e.Message }

// ClassifyLocationError maps a raw error code to a LocationError with the
// message shown to the technician. Unrecognized codes collapse to unknown.
func ClassifyLocationError(code string) LocationError {
	switch code {
	case ErrCodePermissionDenied:
		return LocationError{Code: code, Message: "location permission denied, enable location access and refresh"}
	case ErrCodePositionUnavailable:
		return LocationError{Code: code, Message: "position unavailable, move to open sky and refresh location"}
	case ErrCodeTimeout:
		return LocationError{Code: code, Message: "location request timed out, refresh location to retry"}
	default:
		return LocationError{Code: ErrCodeUnknown, Message: "could not determine location, refresh to retry"}
	}
}

package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckGeofenceSamePoint(t *testing.T) {
	result := CheckGeofence(-7.2575, 112.7521, -7.2575, 112.7521, 0)
	assert.Equal(t, 0.0, result.DistanceM)
	assert.True(t, result.Valid)
}

func TestCheckGeofenceOutsideThreshold(t *testing.T) {
	// Roughly 150 m north of the service point: 1 degree latitude is about
	// 111.32 km, so 150 m is about 0.001348 degrees.
	result := CheckGeofence(-7.2575+0.001348, 112.7521, -7.2575, 112.7521, 100)
	assert.InDelta(t, 150.0, result.DistanceM, 2.0)
	assert.False(t, result.Valid)
}

func TestCheckGeofenceInsideThreshold(t *testing.T) {
	// About 50 m away.
	result := CheckGeofence(-7.2575+0.000449, 112.7521, -7.2575, 112.7521, 100)
	assert.InDelta(t, 50.0, result.DistanceM, 1.0)
	assert.True(t, result.Valid)
}

func TestCheckGeofenceCustomRadius(t *testing.T) {
	result := CheckGeofence(-7.2575+0.001348, 112.7521, -7.2575, 112.7521, 200)
	assert.True(t, result.Valid)
}

func TestHaversineKnownDistance(t *testing.T) {
	// Jakarta (Monas) to Surabaya (Tugu Pahlawan), about 663 km.
	d := HaversineDistance(-6.1754, 106.8272, -7.2458, 112.7378)
	assert.InDelta(t, 663_000, d, 10_000)
}

func TestClassifyLocationError(t *testing.T) {
	cases := []struct {
		code     string
		wantCode string
	}{
		{ErrCodePermissionDenied, ErrCodePermissionDenied},
		{ErrCodePositionUnavailable, ErrCodePositionUnavailable},
		{ErrCodeTimeout, ErrCodeTimeout},
		{"gps_on_fire", ErrCodeUnknown},
		{"", ErrCodeUnknown},
	}
	for _, tt := range cases {
		err := ClassifyLocationError(tt.code)
		assert.Equal(t, tt.wantCode, err.Code)
		assert.NotEmpty(t, err.Message)
	}
}

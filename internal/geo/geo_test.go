package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Milan Duomo to Turin Piazza Castello, roughly 126 km.
	d := Haversine(45.4642, 9.1900, 45.0703, 7.6869)
	assert.InDelta(t, 125700, d, 1500)
}

func TestHaversineZeroDistance(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(45.62, 9.24, 45.62, 9.24))
}

func TestResolveInsideZone(t *testing.T) {
	zones := []Zone{
		{Name: "Ufficio Centrale", Lat: 45.6204762, Lon: 9.2401744, RadiusMeters: 200},
	}
	name, ok := Resolve(zones, 45.6205, 9.2402)
	require.True(t, ok)
	assert.Equal(t, "Ufficio Centrale", name)
}

func TestResolveOutsideAllZones(t *testing.T) {
	zones := []Zone{
		{Name: "Ufficio Centrale", Lat: 45.6204762, Lon: 9.2401744, RadiusMeters: 200},
		{Name: "Iveco Cornaredo", Lat: 45.480555, Lon: 9.034716, RadiusMeters: 200},
	}
	_, ok := Resolve(zones, 41.9028, 12.4964) // Rome, nowhere close
	assert.False(t, ok)
}

func TestResolveFirstMatchWins(t *testing.T) {
	// Two zones sharing the same center: the first one in the slice wins,
	// even though the second is an equally valid match.
	zones := []Zone{
		{Name: "Primary", Lat: 45.0, Lon: 9.0, RadiusMeters: 500},
		{Name: "Secondary", Lat: 45.0, Lon: 9.0, RadiusMeters: 500},
	}
	name, ok := Resolve(zones, 45.001, 9.0)
	require.True(t, ok)
	assert.Equal(t, "Primary", name)
}

func TestResolveBoundaryIsInclusive(t *testing.T) {
	zones := []Zone{{Name: "Z", Lat: 45.0, Lon: 9.0, RadiusMeters: 0}}
	name, ok := Resolve(zones, 45.0, 9.0)
	require.True(t, ok)
	assert.Equal(t, "Z", name)
}

func TestResolveEmptyZoneSet(t *testing.T) {
	_, ok := Resolve(nil, 45.0, 9.0)
	assert.False(t, ok)
}

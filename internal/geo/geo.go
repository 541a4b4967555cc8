package geo

import "math"

const earthRadiusMeters = 6371000

// Zone is a named circular geofence around an authorized work site.
type Zone struct {
	Name         string
	Lat          float64
	Lon          float64
	RadiusMeters float64
}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dlat := radians(lat2 - lat1)
	dlon := radians(lon2 - lon1)
	a := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dlon/2), 2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Resolve maps a coordinate to the first zone whose radius contains it.
// This is a firstMatch policy: when zones overlap, enumeration order decides,
// so callers control precedence through the order of the slice they pass in.
// The second return is false when no zone contains the point; that means
// "unauthorized location", not an error.
func Resolve(zones []Zone, lat, lon float64) (string, bool) {
	for _, z := range zones {
		if Haversine(lat, lon, z.Lat, z.Lon) <= z.RadiusMeters {
			return z.Name, true
		}
	}
	return "", false
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

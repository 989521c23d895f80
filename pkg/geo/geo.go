package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// kmPerDegreeLat approximates kilometers per degree of latitude.
	kmPerDegreeLat = 111.0
)

// BoundingBox is a coarse square around a point, inscribing a radius circle.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Distance calculates the great-circle distance in kilometers between two
// geographic points using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := degreesToRadians(lat1)
	lon1Rad := degreesToRadians(lon1)
	lat2Rad := degreesToRadians(lat2)
	lon2Rad := degreesToRadians(lon2)

	deltaLat := lat2Rad - lat1Rad
	deltaLon := lon2Rad - lon1Rad

	a := math.Pow(math.Sin(deltaLat/2), 2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Pow(math.Sin(deltaLon/2), 2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Bearing calculates the initial compass bearing in degrees [0, 360) from
// point 1 to point 2. For identical points the result is 0.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := degreesToRadians(lat1)
	lat2Rad := degreesToRadians(lat2)
	deltaLon := degreesToRadians(lon2 - lon1)

	y := math.Sin(deltaLon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) -
		math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon)

	bearing := math.Atan2(y, x) * 180 / math.Pi

	return math.Mod(bearing+360, 360)
}

// BoundsAround returns an approximate bounding box for a point and radius.
// The longitude span is corrected by cos(latitude); the approximation
// degrades near the poles and is only suitable for coarse pre-filtering.
func BoundsAround(lat, lon, radiusKm float64) BoundingBox {
	latOffset := radiusKm / kmPerDegreeLat
	lonOffset := radiusKm / (kmPerDegreeLat * math.Cos(degreesToRadians(lat)))

	return BoundingBox{
		MinLat: lat - latOffset,
		MaxLat: lat + latOffset,
		MinLon: lon - lonOffset,
		MaxLon: lon + lonOffset,
	}
}

// InRadius reports whether a point lies within radiusKm of a center point.
func InRadius(centerLat, centerLon, pointLat, pointLon, radiusKm float64) bool {
	return Distance(centerLat, centerLon, pointLat, pointLon) <= radiusKm
}

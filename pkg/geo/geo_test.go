package geo

import (
	"math"
	"testing"
)

const tolKm = 1e-6

func TestDistance_IdenticalPoints(t *testing.T) {
	if d := Distance(51.5074, -0.1278, 51.5074, -0.1278); d != 0 {
		t.Fatalf("distance between identical points must be 0, got %f", d)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Distance(43.2389, 76.8897, 51.1801, 71.446)
	b := Distance(51.1801, 71.446, 43.2389, 76.8897)
	if math.Abs(a-b) > tolKm {
		t.Fatalf("distance must be symmetric: %f vs %f", a, b)
	}
}

func TestDistance_KnownValue(t *testing.T) {
	// One degree of longitude on the equator is ~111.19 km.
	got := Distance(0, 0, 0, 1)
	want := 111.19
	if math.Abs(got-want) > 0.01 {
		t.Fatalf("unexpected equatorial degree distance: got %f want %f", got, want)
	}
}

func TestDistance_TriangleInequality(t *testing.T) {
	// Almaty -> Astana directly must not exceed the path through Karaganda.
	ab := Distance(43.2389, 76.8897, 49.8047, 73.1094)
	bc := Distance(49.8047, 73.1094, 51.1801, 71.446)
	ac := Distance(43.2389, 76.8897, 51.1801, 71.446)
	if ac > ab+bc+tolKm {
		t.Fatalf("triangle inequality violated: %f > %f", ac, ab+bc)
	}
}

func TestBearing_CardinalDirections(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"north", 0, 0, 1, 0, 0},
		{"east", 0, 0, 0, 1, 90},
		{"south", 1, 0, 0, 0, 180},
		{"west", 0, 1, 0, 0, 270},
	}

	for _, tt := range tests {
		got := Bearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("%s: got bearing %f want %f", tt.name, got, tt.want)
		}
	}
}

func TestBearing_Range(t *testing.T) {
	points := [][4]float64{
		{43.24, 76.89, 51.18, 71.45},
		{51.18, 71.45, 43.24, 76.89},
		{-33.87, 151.21, 35.68, 139.69},
		{35.68, 139.69, -33.87, 151.21},
	}
	for _, p := range points {
		b := Bearing(p[0], p[1], p[2], p[3])
		if b < 0 || b >= 360 {
			t.Fatalf("bearing %f out of [0, 360)", b)
		}
	}
}

func TestBoundsAround(t *testing.T) {
	box := BoundsAround(43.2389, 76.8897, 5)

	if box.MinLat >= box.MaxLat || box.MinLon >= box.MaxLon {
		t.Fatalf("degenerate bounding box: %+v", box)
	}

	// Latitude span should be 2 * radius / 111 degrees.
	wantLatSpan := 2 * 5.0 / 111.0
	if math.Abs((box.MaxLat-box.MinLat)-wantLatSpan) > 1e-9 {
		t.Fatalf("unexpected latitude span: %f", box.MaxLat-box.MinLat)
	}

	// Longitude span widens away from the equator.
	if box.MaxLon-box.MinLon <= wantLatSpan {
		t.Fatalf("longitude span must exceed latitude span at 43N")
	}
}

func TestInRadius(t *testing.T) {
	// ~111 km apart.
	if InRadius(0, 0, 0, 1, 100) {
		t.Fatal("point 111km away reported inside 100km radius")
	}
	if !InRadius(0, 0, 0, 1, 120) {
		t.Fatal("point 111km away reported outside 120km radius")
	}
}

func BenchmarkDistance(b *testing.B) {
	for b.Loop() {
		_ = Distance(43.2389, 76.8897, 51.1801, 71.446)
	}
}

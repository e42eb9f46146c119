package geo

import (
	"math"
	"testing"
)

// Jakarta city center to Monas is roughly 600m; sanity-check the haversine
// output against a known pair.
func TestDistanceMeters(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		toleranceM             float64
	}{
		{"same point", -6.175392, 106.827153, -6.175392, 106.827153, 0, 0.001},
		{"one degree latitude", 0, 0, 1, 0, 111195, 100},
		{"short hop", -6.175392, 106.827153, -6.176000, 106.827153, 67.6, 1},
	}
	for _, c := range cases {
		got := DistanceMeters(c.lat1, c.lon1, c.lat2, c.lon2)
		if math.Abs(got-c.want) > c.toleranceM {
			t.Errorf("%s: DistanceMeters = %f, want %f ± %f", c.name, got, c.want, c.toleranceM)
		}
	}
}

func TestWithinRadius(t *testing.T) {
	// Distance 0 is always inside, any non-negative radius.
	for _, radius := range []float64{0, 10, 100, 5000} {
		if !WithinRadius(1.5, 2.5, 1.5, 2.5, radius, 0) {
			t.Errorf("distance 0 with radius %f should be within", radius)
		}
	}

	// ~111m north of center.
	lat, lon := 0.001, 0.0
	if WithinRadius(lat, lon, 0, 0, 100, 0) {
		t.Error("111m should be outside a 100m radius with no tolerance")
	}
	if !WithinRadius(lat, lon, 0, 0, 100, 15) {
		t.Error("111m should be inside a 100m radius with 15m tolerance")
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name     string
		accuracy float64
		lat      float64
		want     Presence
	}{
		{"precise inside", 10, 0.0005, Inside},
		{"precise outside", 10, 0.01, Outside},
		{"noisy fix is inconclusive even inside", 120, 0.0005, Inconclusive},
		{"noisy fix is inconclusive even outside", 120, 0.01, Inconclusive},
	}
	for _, c := range cases {
		got := Evaluate(c.lat, 0, c.accuracy, 0, 0, 100, 10, 50)
		if got != c.want {
			t.Errorf("%s: Evaluate = %s, want %s", c.name, got, c.want)
		}
	}

	// A zero max accuracy disables the accuracy gate.
	if got := Evaluate(0.0005, 0, 500, 0, 0, 100, 10, 0); got != Inside {
		t.Errorf("accuracy gate disabled: got %s, want inside", got)
	}
}

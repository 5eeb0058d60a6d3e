package fsrs

import (
	"math"
	"testing"
)

func TestRetrievability(t *testing.T) {
	testCases := []struct {
		name      string
		elapsed   float64
		stability float64
		expected  float64
	}{
		{name: "fresh review", elapsed: 0, stability: 10, expected: 1.0},
		{name: "negative elapsed treated as fresh", elapsed: -3, stability: 10, expected: 1.0},
		{name: "at stability recall equals target", elapsed: 10, stability: 10, expected: TargetRecall},
		{name: "at stability recall equals target, long", elapsed: 100, stability: 100, expected: TargetRecall},
		{name: "double the stability", elapsed: 20, stability: 10, expected: TargetRecall * TargetRecall},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := Retrievability(tc.elapsed, tc.stability)
			if math.Abs(r-tc.expected) > 1e-9 {
				t.Errorf("Retrievability(%v, %v) = %v, expected %v", tc.elapsed, tc.stability, r, tc.expected)
			}
		})
	}
}

func TestRetrievabilityDecreases(t *testing.T) {
	prev := 1.0
	for days := 1.0; days <= 64; days *= 2 {
		r := Retrievability(days, 8)
		if r >= prev {
			t.Fatalf("retrievability did not decrease at %v days: %v >= %v", days, r, prev)
		}
		prev = r
	}
}

func TestInitialStabilityOrdering(t *testing.T) {
	grades := []Grade{Forgot, Hard, Good, Easy}
	for i := 1; i < len(grades); i++ {
		lo := InitialStability(grades[i-1])
		hi := InitialStability(grades[i])
		if lo >= hi {
			t.Errorf("initial stability not increasing: %v (%v) >= %v (%v)",
				lo, grades[i-1], hi, grades[i])
		}
	}
}

func TestInitialDifficulty(t *testing.T) {
	for _, g := range []Grade{Forgot, Hard, Good, Easy} {
		d := InitialDifficulty(g)
		if d < 1 || d > 10 {
			t.Errorf("initial difficulty for %v out of range: %v", g, d)
		}
	}
	if InitialDifficulty(Forgot) <= InitialDifficulty(Easy) {
		t.Error("a forgotten card should seed harder than an easy one")
	}
}

func TestNextDifficulty(t *testing.T) {
	testCases := []struct {
		name  string
		start float64
		grade Grade
		check func(before, after float64) bool
	}{
		{"forgot increases", 5, Forgot, func(b, a float64) bool { return a > b }},
		{"hard increases", 5, Hard, func(b, a float64) bool { return a > b }},
		{"good holds", 5, Good, func(b, a float64) bool { return a == b }},
		{"easy decreases", 5, Easy, func(b, a float64) bool { return a < b }},
		{"clamped above", 9.9, Forgot, func(b, a float64) bool { return a == 10 }},
		{"clamped below", 1.1, Easy, func(b, a float64) bool { return a == 1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			after := NextDifficulty(tc.start, tc.grade)
			if !tc.check(tc.start, after) {
				t.Errorf("NextDifficulty(%v, %v) = %v", tc.start, tc.grade, after)
			}
		})
	}
}

func TestNextStabilityMonotonicity(t *testing.T) {
	stabilities := []float64{0.5, 2, 10, 50, 200}
	difficulties := []float64{1, 3, 5.5, 8, 10}
	retrievabilities := []float64{0.99, 0.9, 0.7, 0.4}

	for _, s := range stabilities {
		for _, d := range difficulties {
			for _, r := range retrievabilities {
				easy := NextStability(d, s, r, Easy)
				if easy < s {
					t.Errorf("Easy shrank stability: S=%v D=%v R=%v -> %v", s, d, r, easy)
				}
				good := NextStability(d, s, r, Good)
				if good < s {
					t.Errorf("Good shrank stability: S=%v D=%v R=%v -> %v", s, d, r, good)
				}
				forgot := NextStability(d, s, r, Forgot)
				if forgot > s {
					t.Errorf("Forgot grew stability: S=%v D=%v R=%v -> %v", s, d, r, forgot)
				}
				if forgot <= 0 {
					t.Errorf("Forgot produced non-positive stability: %v", forgot)
				}
			}
		}
	}
}

func TestNextStabilityEasyBeatsHard(t *testing.T) {
	hard := NextStability(5, 10, 0.8, Hard)
	good := NextStability(5, 10, 0.8, Good)
	easy := NextStability(5, 10, 0.8, Easy)
	if !(hard < good && good < easy) {
		t.Errorf("expected hard < good < easy, got %v, %v, %v", hard, good, easy)
	}
}

func TestInterval(t *testing.T) {
	testCases := []struct {
		name      string
		stability float64
		expected  float64
	}{
		{"tiny stability floors at one day", 0.2, 1},
		{"stability maps to days", 12.4, 12},
		{"rounds up", 12.6, 13},
		{"capped at max", 10000, MaxInterval},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Interval(TargetRecall, tc.stability)
			if got != tc.expected {
				t.Errorf("Interval(%v) = %v, expected %v", tc.stability, got, tc.expected)
			}
		})
	}
}

func TestGradeRoundTrip(t *testing.T) {
	for _, g := range []Grade{Forgot, Hard, Good, Easy} {
		parsed, err := ParseGrade(g.String())
		if err != nil {
			t.Fatalf("ParseGrade(%q) returned error: %v", g.String(), err)
		}
		if parsed != g {
			t.Errorf("round trip mismatch: %v -> %v", g, parsed)
		}
	}
	if _, err := ParseGrade("meh"); err == nil {
		t.Error("expected error for unknown grade")
	}
	if Grade(0).Valid() || Grade(5).Valid() {
		t.Error("out-of-range grades must be invalid")
	}
}

package window

import (
	"math"
	"testing"
)

func TestGenerateEndpoints(t *testing.T) {
	tests := []struct {
		typ   Type
		first float64
		mid   float64
	}{
		{typ: TypeRectangular, first: 1, mid: 1},
		{typ: TypeHann, first: 0, mid: 1},
		{typ: TypeHamming, first: 0.08, mid: 1},
		{typ: TypeBlackman, first: 0, mid: 1},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			w := Generate(tt.typ, 9)
			if len(w) != 9 {
				t.Fatalf("len = %d, want 9", len(w))
			}
			if math.Abs(w[0]-tt.first) > 1e-12 || math.Abs(w[8]-tt.first) > 1e-12 {
				t.Fatalf("endpoints = %v, %v, want %v", w[0], w[8], tt.first)
			}
			if math.Abs(w[4]-tt.mid) > 1e-12 {
				t.Fatalf("center = %v, want %v", w[4], tt.mid)
			}
			for i := range w {
				if math.Abs(w[i]-w[8-i]) > 1e-12 {
					t.Fatalf("not symmetric at %d", i)
				}
			}
		})
	}
}

func TestGeneratePeriodicHann(t *testing.T) {
	w := Generate(TypeHann, 4, WithPeriodic())
	want := []float64{0, 0.5, 1, 0.5}
	for i := range want {
		if math.Abs(w[i]-want[i]) > 1e-12 {
			t.Fatalf("w[%d] = %v, want %v", i, w[i], want[i])
		}
	}
}

func TestGenerateEdgeCases(t *testing.T) {
	if Generate(TypeHann, 0) != nil {
		t.Fatal("size 0 should return nil")
	}
	if w := Generate(TypeBlackman, 1); len(w) != 1 || w[0] != 1 {
		t.Fatalf("size 1 = %v, want [1]", w)
	}
	if Generate(Type(99), 8) != nil {
		t.Fatal("unknown type should return nil")
	}
}

func TestApplyInto(t *testing.T) {
	dst := make([]float64, 3)
	if err := ApplyInto(dst, []float64{2, 4, 6}, []float64{0.5, 0.25, 0}); err != nil {
		t.Fatalf("ApplyInto() error = %v", err)
	}
	if dst[0] != 1 || dst[1] != 1 || dst[2] != 0 {
		t.Fatalf("dst = %v, want [1 1 0]", dst)
	}
	if err := ApplyInto(dst, []float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestCoherentGainHann(t *testing.T) {
	g := CoherentGain(Generate(TypeHann, 1024, WithPeriodic()))
	if math.Abs(g-0.5) > 1e-12 {
		t.Fatalf("coherent gain = %v, want 0.5", g)
	}
	if CoherentGain(nil) != 0 {
		t.Fatal("empty coefficients should have zero gain")
	}
}

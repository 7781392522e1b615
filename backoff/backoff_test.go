package backoff_test

import (
	"math"
	"testing"
	"time"

	"github.com/KarthikHK-01/queuectl/backoff"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(5 * time.Second)
	for attempt := 1; attempt <= 10; attempt++ {
		if got := c.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 5*time.Second)
		}
	}
}

func TestPower_BaseTwo(t *testing.T) {
	p := backoff.NewPower(2)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{10, 1024 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPower_FractionalBase(t *testing.T) {
	p := backoff.NewPower(1.5)
	if got, want := p.Delay(2), 2250*time.Millisecond; got != want {
		t.Errorf("Delay(2) = %v, want %v", got, want)
	}
}

func TestPower_Monotonic(t *testing.T) {
	for _, base := range []float64{1.1, 1.5, 2, 3, 10} {
		p := backoff.NewPower(base)
		prev := p.Delay(1)
		for n := 2; n <= 20; n++ {
			d := p.Delay(n)
			if d <= prev {
				t.Fatalf("base %v: Delay(%d) = %v, not greater than Delay(%d) = %v", base, n, d, n-1, prev)
			}
			prev = d
		}
	}
}

func TestPower_Saturates(t *testing.T) {
	p := backoff.NewPower(10)
	if got := p.Delay(100); got != time.Duration(math.MaxInt64) {
		t.Errorf("Delay(100) = %v, want saturation at MaxInt64", got)
	}
}

func TestPower_CapsAtMax(t *testing.T) {
	p := &backoff.Power{Base: 2, Max: 10 * time.Second}
	if got := p.Delay(5); got != 10*time.Second {
		t.Errorf("Delay(5) = %v, want %v (capped at Max)", got, 10*time.Second)
	}
	if got := p.Delay(3); got != 8*time.Second {
		t.Errorf("Delay(3) = %v, want %v", got, 8*time.Second)
	}
}

func TestNewPower_InvalidBaseUsesDefault(t *testing.T) {
	for _, base := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		p := backoff.NewPower(base)
		if p.Base != backoff.DefaultBase {
			t.Errorf("NewPower(%v).Base = %v, want %v", base, p.Base, backoff.DefaultBase)
		}
	}
}

func TestDefaultStrategy_IsBaseTwo(t *testing.T) {
	s := backoff.DefaultStrategy()
	if s == nil {
		t.Fatal("DefaultStrategy() returned nil")
	}
	if got := s.Delay(1); got != 2*time.Second {
		t.Errorf("DefaultStrategy().Delay(1) = %v, want 2s", got)
	}
}

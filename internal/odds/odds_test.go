package odds

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"reelmarket/internal/models"
)

func TestMultiplier_Neutral(t *testing.T) {
	m, err := Multiplier(decimal.RequireFromString("0.5"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if m.String() != "1" {
		t.Fatalf("multiplier(0.5)=%s want 1", m.String())
	}
}

func TestMultiplier_KnownPoints(t *testing.T) {
	cases := []struct {
		p    string
		want string
	}{
		{"0.8", "0.91"},
		{"0.2", "1.09"},
		{"0", "1.15"},
		{"1", "0.85"},
		{"0.35", "1.045"},
	}
	for _, tc := range cases {
		m, err := Multiplier(decimal.RequireFromString(tc.p))
		if err != nil {
			t.Fatalf("p=%s err=%v", tc.p, err)
		}
		if m.Cmp(decimal.RequireFromString(tc.want)) != 0 {
			t.Fatalf("multiplier(%s)=%s want %s", tc.p, m.String(), tc.want)
		}
	}
}

func TestMultiplier_Bounds(t *testing.T) {
	for i := 0; i <= 100; i++ {
		p := decimal.NewFromInt(int64(i)).Div(decimal.NewFromInt(100))
		m, err := Multiplier(p)
		if err != nil {
			t.Fatalf("p=%s err=%v", p.String(), err)
		}
		if m.LessThan(decimal.RequireFromString("0.7")) || m.GreaterThan(decimal.RequireFromString("1.3")) {
			t.Fatalf("multiplier(%s)=%s outside [0.7,1.3]", p.String(), m.String())
		}
	}
}

func TestMultiplier_InvalidInput(t *testing.T) {
	for _, p := range []string{"-0.01", "1.01"} {
		_, err := Multiplier(decimal.RequireFromString(p))
		if !errors.Is(err, models.ErrInvalidInput) {
			t.Fatalf("p=%s err=%v want ErrInvalidInput", p, err)
		}
	}
}

func TestIsContrarian_ThresholdBoundary(t *testing.T) {
	if !IsContrarian(decimal.RequireFromString("0.3499")) {
		t.Fatalf("0.3499 should be contrarian")
	}
	if IsContrarian(decimal.RequireFromString("0.35")) {
		t.Fatalf("exactly 0.35 should not be contrarian")
	}
	if IsContrarian(decimal.RequireFromString("0.5")) {
		t.Fatalf("0.5 should not be contrarian")
	}
}

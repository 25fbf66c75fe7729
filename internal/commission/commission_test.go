package commission

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/apperr"
	"github.com/carelink/carewallet/internal/models"
)

func TestSplit(t *testing.T) {
	calc := NewCalculator(map[models.Role]decimal.Decimal{
		models.RolePharmacy: decimal.RequireFromString("0.15"),
	})

	tests := []struct {
		name       string
		gross      string
		role       models.Role
		commission string
		net        string
	}{
		{"doctor default rate", "1000", models.RoleDoctor, "100", "900"},
		{"second booking", "500", models.RoleDoctor, "50", "450"},
		{"zero", "0", models.RoleLaboratory, "0", "0"},
		{"half cent rounds up", "0.05", models.RoleDoctor, "0.01", "0.04"},
		{"configured rate", "333.33", models.RolePharmacy, "50", "283.33"},
		{"gross rounded first", "10.005", models.RoleDoctor, "1", "9.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, err := calc.Split(decimal.RequireFromString(tt.gross), tt.role)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !split.Commission.Equal(decimal.RequireFromString(tt.commission)) {
				t.Errorf("commission = %s, want %s", split.Commission, tt.commission)
			}
			if !split.Net.Equal(decimal.RequireFromString(tt.net)) {
				t.Errorf("net = %s, want %s", split.Net, tt.net)
			}
			if !split.Commission.Add(split.Net).Equal(split.Gross) {
				t.Errorf("commission + net = %s, gross = %s", split.Commission.Add(split.Net), split.Gross)
			}
		})
	}
}

func TestSplitSumsToGross(t *testing.T) {
	calc := NewCalculator(map[models.Role]decimal.Decimal{
		models.RoleDoctor:     decimal.RequireFromString("0.1"),
		models.RoleLaboratory: decimal.RequireFromString("0.125"),
		models.RolePharmacy:   decimal.RequireFromString("0.0333"),
	})
	for cents := int64(0); cents < 5000; cents += 7 {
		gross := decimal.New(cents, -2)
		for _, role := range models.ProviderRoles {
			split, err := calc.Split(gross, role)
			if err != nil {
				t.Fatalf("split %s %s: %v", gross, role, err)
			}
			if !split.Commission.Add(split.Net).Equal(gross) {
				t.Fatalf("%s %s: %s + %s != gross", gross, role, split.Commission, split.Net)
			}
			want := gross.Mul(calc.Rate(role)).Round(2)
			if !split.Commission.Equal(want) {
				t.Fatalf("%s %s: commission %s, want %s", gross, role, split.Commission, want)
			}
			if split.Net.IsNegative() {
				t.Fatalf("%s %s: negative net %s", gross, role, split.Net)
			}
		}
	}
}

func TestSplitRejectsBadInput(t *testing.T) {
	calc := NewCalculator(nil)

	if _, err := calc.Split(decimal.NewFromInt(-1), models.RoleDoctor); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("negative gross: expected validation error, got %v", err)
	}
	if _, err := calc.Split(decimal.NewFromInt(10), models.RolePatient); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("patient role: expected validation error, got %v", err)
	}
}

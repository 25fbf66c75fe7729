// Package commission splits booking revenue between the platform and the provider.
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/apperr"
	"github.com/carelink/carewallet/internal/models"
)

// DefaultRate applies to any provider role without a configured rate.
var DefaultRate = decimal.RequireFromString("0.10")

// Split is the outcome of one commission calculation.
type Split struct {
	Gross      decimal.Decimal `json:"gross"`
	Rate       decimal.Decimal `json:"rate"`
	Commission decimal.Decimal `json:"commission"`
	Net        decimal.Decimal `json:"net"`
}

// Calculator holds per-role commission rates.
type Calculator struct {
	rates map[models.Role]decimal.Decimal
}

func NewCalculator(rates map[models.Role]decimal.Decimal) *Calculator {
	c := &Calculator{rates: make(map[models.Role]decimal.Decimal, len(rates))}
	for role, rate := range rates {
		c.rates[role] = rate
	}
	return c
}

// Rate returns the commission rate of role.
func (c *Calculator) Rate(role models.Role) decimal.Decimal {
	if rate, ok := c.rates[role]; ok {
		return rate
	}
	return DefaultRate
}

// Split rounds gross to the minor unit, takes the rounded commission off it and
// leaves the remainder as net, so commission + net always equals gross.
func (c *Calculator) Split(gross decimal.Decimal, role models.Role) (Split, error) {
	if !role.IsProvider() {
		return Split{}, apperr.Validation("role %q does not earn commissionable revenue", role)
	}
	if gross.IsNegative() {
		return Split{}, apperr.Validation("gross amount must not be negative")
	}

	gross = gross.Round(2)
	rate := c.Rate(role)
	commission := gross.Mul(rate).Round(2)
	return Split{
		Gross:      gross,
		Rate:       rate,
		Commission: commission,
		Net:        gross.Sub(commission),
	}, nil
}

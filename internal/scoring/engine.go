// Package scoring derives the 0-100 credit score of a customer from their
// credit products, and supports what-if simulation and improvement plans.
package scoring

import (
	"errors"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/entity"
)

// ErrNoProducts is returned for an empty product set; callers render a
// "no profile" view instead of a score.
var ErrNoProducts = errors.New("customer has no credit products")

// ComponentName identifies one of the five score components.
type ComponentName string

const (
	Utilization     ComponentName = "Credit Utilization"
	PaymentHistory  ComponentName = "Payment History"
	CreditMix       ComponentName = "Credit Mix"
	AccountActivity ComponentName = "Account Age & Activity"
	OverdueBehavior ComponentName = "Overdue Behavior"
)

// ComponentOrder is the fixed order of components in every result.
var ComponentOrder = []ComponentName{Utilization, PaymentHistory, CreditMix, AccountActivity, OverdueBehavior}

// MaxPoints is the cap of a component.
func (n ComponentName) MaxPoints() int {
	switch n {
	case Utilization:
		return 40
	case PaymentHistory:
		return 25
	case CreditMix:
		return 20
	case AccountActivity:
		return 10
	case OverdueBehavior:
		return 5
	}
	return 0
}

// Score bounds produced by the five scorers.
const (
	MinScore = 20
	MaxScore = 100
)

// noPaymentDays stands in for a missing last payment date, and is the metric
// when no product is active.
const noPaymentDays = 90

type Component struct {
	Name        ComponentName `json:"name"`
	Points      int           `json:"points"`
	MaxPoints   int           `json:"max_points"`
	Description string        `json:"description"`
}

// Metrics are the derived inputs of the component scorers.
type Metrics struct {
	UtilizationPct      float64 `json:"utilization_pct"`
	AvgDaysSincePayment float64 `json:"avg_days_since_payment"`
	ProductTypes        int     `json:"product_types"`
	ActiveAccounts      int     `json:"active_accounts"`
	OverdueRatioPct     float64 `json:"overdue_ratio_pct"`
}

type Result struct {
	Total      int         `json:"total"`
	Category   Category    `json:"category"`
	Components []Component `json:"components"`
	Metrics    Metrics     `json:"metrics"`
}

// Score computes the credit score of one customer's products as of today.
func Score(products []entity.CreditProduct, today entity.Date) (Result, error) {
	if len(products) == 0 {
		return Result{}, ErrNoProducts
	}
	m := Measure(products, today)
	components := []Component{
		{
			Name:        Utilization,
			Points:      UtilizationPoints(m.UtilizationPct),
			Description: fmt.Sprintf("Utilization: %.1f%%", m.UtilizationPct),
		},
		{
			Name:        PaymentHistory,
			Points:      PaymentPoints(m.AvgDaysSincePayment),
			Description: fmt.Sprintf("Avg days since payment: %.0f", m.AvgDaysSincePayment),
		},
		{
			Name:        CreditMix,
			Points:      CreditMixPoints(m.ProductTypes),
			Description: fmt.Sprintf("Product types: %d", m.ProductTypes),
		},
		{
			Name:        AccountActivity,
			Points:      AccountActivityPoints(m.ActiveAccounts),
			Description: fmt.Sprintf("Active accounts: %d", m.ActiveAccounts),
		},
		{
			Name:        OverdueBehavior,
			Points:      OverduePoints(m.OverdueRatioPct),
			Description: fmt.Sprintf("Overdue ratio: %.1f%%", m.OverdueRatioPct),
		},
	}
	total := 0
	for i := range components {
		components[i].MaxPoints = components[i].Name.MaxPoints()
		total += components[i].Points
	}
	return Result{Total: total, Category: CategoryFor(total), Components: components, Metrics: m}, nil
}

// Measure derives the scorer inputs from products.
func Measure(products []entity.CreditProduct, today entity.Date) Metrics {
	var limit, balance, overdue float64
	types := make(map[entity.ProductType]struct{})
	active := 0
	daysSum := 0
	for _, p := range products {
		limit += p.CreditLimit
		balance += p.CurrentBalance
		overdue += p.BalanceOverdue
		types[p.ProductType] = struct{}{}
		if !p.IsActive() {
			continue
		}
		active++
		if p.LastPaymentDate.IsZero() {
			daysSum += noPaymentDays
		} else {
			daysSum += p.LastPaymentDate.DaysUntil(today)
		}
	}

	m := Metrics{ProductTypes: len(types), ActiveAccounts: active, AvgDaysSincePayment: noPaymentDays}
	if limit > 0 {
		m.UtilizationPct = balance / limit * 100
	}
	if balance > 0 {
		m.OverdueRatioPct = overdue / balance * 100
	}
	if active > 0 {
		m.AvgDaysSincePayment = float64(daysSum) / float64(active)
	}
	return m
}

func UtilizationPoints(pct float64) int {
	switch {
	case pct <= 10:
		return 40
	case pct <= 30:
		return 35
	case pct <= 50:
		return 25
	case pct <= 75:
		return 15
	default:
		return 5
	}
}

func PaymentPoints(avgDays float64) int {
	switch {
	case avgDays <= 15:
		return 25
	case avgDays <= 30:
		return 20
	case avgDays <= 45:
		return 15
	case avgDays <= 60:
		return 10
	default:
		return 5
	}
}

func CreditMixPoints(distinctTypes int) int {
	switch {
	case distinctTypes >= 4:
		return 20
	case distinctTypes >= 3:
		return 15
	case distinctTypes >= 2:
		return 10
	default:
		return 5
	}
}

func AccountActivityPoints(activeAccounts int) int {
	switch {
	case activeAccounts >= 4:
		return 10
	case activeAccounts >= 3:
		return 8
	case activeAccounts >= 2:
		return 6
	default:
		return 4
	}
}

func OverduePoints(ratioPct float64) int {
	switch {
	case ratioPct == 0:
		return 5
	case ratioPct <= 5:
		return 4
	case ratioPct <= 10:
		return 3
	case ratioPct <= 20:
		return 2
	default:
		return 1
	}
}

// Category labels a total score.
type Category string

const (
	Excellent Category = "Excellent"
	Good      Category = "Good"
	Fair      Category = "Fair"
	Poor      Category = "Poor"
	VeryPoor  Category = "Very Poor"
)

func CategoryFor(score int) Category {
	switch {
	case score >= 90:
		return Excellent
	case score >= 75:
		return Good
	case score >= 60:
		return Fair
	case score >= 40:
		return Poor
	default:
		return VeryPoor
	}
}

// Total sums component points.
func Total(components []Component) int {
	total := 0
	for _, c := range components {
		total += c.Points
	}
	return total
}

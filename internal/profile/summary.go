package profile

import (
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/entity"
)

// recentPaymentDays splits recent from late payments in the summary.
const recentPaymentDays = 30

// Summary aggregates one customer's rows for the dashboard header.
type Summary struct {
	Products               int      `json:"products"`
	TotalCreditLimit       float64  `json:"total_credit_limit"`
	TotalCurrentBalance    float64  `json:"total_current_balance"`
	TotalOverdue           float64  `json:"total_overdue"`
	TotalMonthlyInstalment float64  `json:"total_monthly_instalment"`
	ActiveProducts         int      `json:"active_products"`
	UtilizationPct         float64  `json:"utilization_pct"`
	OverdueRatioPct        float64  `json:"overdue_ratio_pct"`
	CreditProviders        int      `json:"credit_providers"`
	Payments               Payments `json:"payments"`
}

// Payments are payment-date statistics. Rows without a payment date are ignored.
type Payments struct {
	// AvgDaysSinceActive is nil when no Active row has a payment date.
	AvgDaysSinceActive *float64    `json:"avg_days_since_payment"`
	MostRecent         entity.Date `json:"most_recent_payment"`
	Recent             int         `json:"recent_payments"`
	Late               int         `json:"late_payments"`
}

// Summarize computes the summary of rows as of today.
func Summarize(rows []entity.CreditProduct, today entity.Date) Summary {
	var s Summary
	providers := make(map[string]struct{})
	activeDays, activeDated := 0, 0
	for _, r := range rows {
		s.Products++
		s.TotalCreditLimit += r.CreditLimit
		s.TotalCurrentBalance += r.CurrentBalance
		s.TotalOverdue += r.BalanceOverdue
		s.TotalMonthlyInstalment += r.MonthlyInstalment
		providers[r.SubscriberID] = struct{}{}
		if r.IsActive() {
			s.ActiveProducts++
		}
		if r.LastPaymentDate.IsZero() {
			continue
		}
		days := r.LastPaymentDate.DaysUntil(today)
		if days <= recentPaymentDays {
			s.Payments.Recent++
		} else {
			s.Payments.Late++
		}
		if r.LastPaymentDate.After(s.Payments.MostRecent.Time) {
			s.Payments.MostRecent = r.LastPaymentDate
		}
		if r.IsActive() {
			activeDays += days
			activeDated++
		}
	}
	s.CreditProviders = len(providers)
	if s.TotalCreditLimit > 0 {
		s.UtilizationPct = s.TotalCurrentBalance / s.TotalCreditLimit * 100
	}
	if s.TotalCurrentBalance > 0 {
		s.OverdueRatioPct = s.TotalOverdue / s.TotalCurrentBalance * 100
	}
	if activeDated > 0 {
		avg := float64(activeDays) / float64(activeDated)
		s.Payments.AvgDaysSinceActive = &avg
	}
	return s
}

// Overview is the dataset-wide headline over the rows a principal can see.
type Overview struct {
	Customers        int     `json:"total_customers"`
	Products         int     `json:"total_products"`
	ActiveProducts   int     `json:"active_products"`
	TotalCreditLimit float64 `json:"total_credit_limit"`
}

// NewOverview computes the overview of t.
func NewOverview(t entity.Table) Overview {
	o := Overview{Customers: len(customerIDs(t.Rows)), Products: len(t.Rows)}
	for _, r := range t.Rows {
		if r.IsActive() {
			o.ActiveProducts++
		}
		o.TotalCreditLimit += r.CreditLimit
	}
	return o
}

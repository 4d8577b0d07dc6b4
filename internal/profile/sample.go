package profile

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/entity"
)

// SampleRows is the built-in dataset used when no database is configured.
func SampleRows() []entity.CreditProduct {
	row := func(cust string, pt entity.ProductType, acct, opened, paid string, openBal, limit, inst float64, term int, bal float64, st entity.Status, overdue float64, sub string) entity.CreditProduct {
		return entity.CreditProduct{
			CustomerID:        cust,
			ProductType:       pt,
			AccountNumber:     acct,
			OpeningDate:       entity.MustDate(opened),
			LastPaymentDate:   entity.MustDate(paid),
			OpeningBalance:    openBal,
			CreditLimit:       limit,
			MonthlyInstalment: inst,
			LoanTerm:          term,
			CurrentBalance:    bal,
			CurrentStatus:     st,
			BalanceOverdue:    overdue,
			SubscriberID:      sub,
		}
	}
	return []entity.CreditProduct{
		row("CUST001", entity.ProductCreditCard, "CC12345", "2022-01-15", "2024-01-15", 0, 5000, 150, 36, 1200, entity.StatusActive, 0, "SUB001"),
		row("CUST001", entity.ProductPersonalLoan, "PL67890", "2022-03-20", "2024-01-10", 10000, 10000, 320, 36, 4500, entity.StatusActive, 0, "SUB002"),
		row("CUST002", entity.ProductMortgage, "MTG54321", "2021-11-10", "2024-01-05", 250000, 250000, 1850, 360, 185000, entity.StatusActive, 0, "SUB001"),
		row("CUST001", entity.ProductAutoLoan, "AL98765", "2023-02-05", "2023-12-15", 15000, 15000, 450, 36, 0, entity.StatusClosed, 0, "SUB003"),
		row("CUST003", entity.ProductCreditCard, "CC11111", "2022-12-15", "2024-01-12", 0, 3000, 90, 24, 800, entity.StatusActive, 150, "SUB002"),
		row("CUST004", entity.ProductBusinessLoan, "BL22222", "2023-01-10", "2024-01-08", 50000, 50000, 1200, 48, 12000, entity.StatusActive, 0, "SUB001"),
		row("CUST005", entity.ProductPersonalLoan, "PL33333", "2023-03-15", "2023-12-20", 8000, 8000, 280, 36, 3500, entity.StatusPending, 0, "SUB003"),
	}
}

// SampleSource serves SampleRows as a table source.
type SampleSource struct{}

func (SampleSource) Load(context.Context) (entity.Table, error) {
	return entity.NewTable(SampleRows()), nil
}

package profile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/entity"
)

// ExportFilename is the download name of the CSV export.
const ExportFilename = "credit_profiles.csv"

// WriteCSV writes the header and one record per row of t.
func WriteCSV(w io.Writer, t entity.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(entity.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range t.Rows {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.AccountNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(r entity.CreditProduct) []string {
	return []string{
		r.CustomerID,
		string(r.ProductType),
		r.AccountNumber,
		r.OpeningDate.String(),
		r.LastPaymentDate.String(),
		money(r.OpeningBalance),
		money(r.CreditLimit),
		money(r.MonthlyInstalment),
		strconv.Itoa(r.LoanTerm),
		money(r.CurrentBalance),
		string(r.CurrentStatus),
		money(r.BalanceOverdue),
		r.SubscriberID,
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

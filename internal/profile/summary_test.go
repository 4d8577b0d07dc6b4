package profile

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/subscriber"
)

func customerRows(id string) []entity.CreditProduct {
	var out []entity.CreditProduct
	for _, r := range SampleRows() {
		if r.CustomerID == id {
			out = append(out, r)
		}
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := Summarize(customerRows("CUST001"), entity.MustDate("2024-01-20"))

	assert.Equal(t, 3, s.Products)
	assert.Equal(t, 30000.0, s.TotalCreditLimit)
	assert.Equal(t, 5700.0, s.TotalCurrentBalance)
	assert.Equal(t, 0.0, s.TotalOverdue)
	assert.Equal(t, 920.0, s.TotalMonthlyInstalment)
	assert.Equal(t, 2, s.ActiveProducts)
	assert.InDelta(t, 19.0, s.UtilizationPct, 1e-9)
	assert.Equal(t, 3, s.CreditProviders)

	require.NotNil(t, s.Payments.AvgDaysSinceActive)
	assert.Equal(t, 7.5, *s.Payments.AvgDaysSinceActive)
	assert.Equal(t, entity.MustDate("2024-01-15"), s.Payments.MostRecent)
	assert.Equal(t, 2, s.Payments.Recent)
	assert.Equal(t, 1, s.Payments.Late)
}

func TestSummarize_NoActiveRows(t *testing.T) {
	s := Summarize(customerRows("CUST005"), entity.MustDate("2024-01-20"))
	assert.Nil(t, s.Payments.AvgDaysSinceActive)
	assert.Equal(t, 0, s.ActiveProducts)
	assert.InDelta(t, 43.75, s.UtilizationPct, 1e-9)

	empty := Summarize(nil, entity.MustDate("2024-01-20"))
	assert.Equal(t, Summary{}, empty)
}

func TestNewOverview(t *testing.T) {
	o := NewOverview(entity.NewTable(SampleRows()))
	assert.Equal(t, Overview{Customers: 5, Products: 7, ActiveProducts: 5, TotalCreditLimit: 341000}, o)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entity.NewTable(SampleRows())))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 8)
	assert.Equal(t, entity.Columns, records[0])
	assert.Equal(t, []string{
		"CUST001", "Credit Card", "CC12345", "2022-01-15", "2024-01-15",
		"0", "5000", "150", "36", "1200", "Active", "0", "SUB001",
	}, records[1])
}

func TestValidator(t *testing.T) {
	v, err := NewValidator(subscriber.DefaultCatalog().IDs())
	require.NoError(t, err)

	valid := SampleRows()[0]
	assert.NoError(t, v.Validate(valid))

	noDate := valid
	noDate.LastPaymentDate = entity.Date{}
	assert.NoError(t, v.Validate(noDate))

	tests := map[string]func(p *entity.CreditProduct){
		"negative limit":     func(p *entity.CreditProduct) { p.CreditLimit = -1 },
		"zero loan term":     func(p *entity.CreditProduct) { p.LoanTerm = 0 },
		"loan term too long": func(p *entity.CreditProduct) { p.LoanTerm = 601 },
		"unknown status":     func(p *entity.CreditProduct) { p.CurrentStatus = "Frozen" },
		"unknown product":    func(p *entity.CreditProduct) { p.ProductType = "Overdraft" },
		"unknown subscriber": func(p *entity.CreditProduct) { p.SubscriberID = "SUB404" },
		"empty customer":     func(p *entity.CreditProduct) { p.CustomerID = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			row := valid
			mutate(&row)
			err := v.Validate(row)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeValidationFailed, apperr.As(err).Code)
			assert.NotEmpty(t, apperr.As(err).Details)
		})
	}
}

package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/access"
)

// ProductType is the kind of credit product.
type ProductType string

const (
	ProductCreditCard   ProductType = "Credit Card"
	ProductPersonalLoan ProductType = "Personal Loan"
	ProductMortgage     ProductType = "Mortgage"
	ProductAutoLoan     ProductType = "Auto Loan"
	ProductBusinessLoan ProductType = "Business Loan"
	ProductNew          ProductType = "New Product"
)

var ProductTypes = []ProductType{
	ProductCreditCard, ProductPersonalLoan, ProductMortgage, ProductAutoLoan, ProductBusinessLoan, ProductNew,
}

// Status is the lifecycle state of a credit product.
type Status string

const (
	StatusActive     Status = "Active"
	StatusClosed     Status = "Closed"
	StatusPending    Status = "Pending"
	StatusDelinquent Status = "Delinquent"
	StatusDefault    Status = "Default"
	StatusWrittenOff Status = "Written Off"
)

var Statuses = []Status{
	StatusActive, StatusClosed, StatusPending, StatusDelinquent, StatusDefault, StatusWrittenOff,
}

// Loan term bounds in months.
const (
	MinLoanTerm = 1
	MaxLoanTerm = 600
)

// DateLayout is the wire and CSV format of Date.
const DateLayout = "2006-01-02"

// Date is a calendar day (UTC midnight). The zero value means "no date".
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD; the empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// DaysUntil counts whole calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for DATE / TIMESTAMP / text columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v)
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

// CreditProduct is one credit product owned by a customer.
type CreditProduct struct {
	CustomerID        string      `json:"customer_id" db:"customer_id"`
	ProductType       ProductType `json:"product_type" db:"product_type"`
	AccountNumber     string      `json:"account_number" db:"account_number"`
	OpeningDate       Date        `json:"opening_date" db:"opening_date"`
	LastPaymentDate   Date        `json:"last_payment_date" db:"last_payment_date"`
	OpeningBalance    float64     `json:"opening_balance" db:"opening_balance"`
	CreditLimit       float64     `json:"credit_limit" db:"credit_limit"`
	MonthlyInstalment float64     `json:"monthly_instalment" db:"monthly_instalment"`
	LoanTerm          int         `json:"loan_term" db:"loan_term"`
	CurrentBalance    float64     `json:"current_balance" db:"current_balance"`
	CurrentStatus     Status      `json:"current_status" db:"current_status"`
	BalanceOverdue    float64     `json:"balance_overdue" db:"balance_overdue"`
	SubscriberID      string      `json:"subscriber_id" db:"subscriber_id"`
}

func (p CreditProduct) GetSubscriberID() string { return p.SubscriberID }
func (p CreditProduct) GetCustomerID() string   { return p.CustomerID }

func (p CreditProduct) IsActive() bool { return p.CurrentStatus == StatusActive }

// Columns is the export header, in field order.
var Columns = []string{
	"customer_id", "product_type", "account_number", "opening_date", "last_payment_date",
	"opening_balance", "credit_limit", "monthly_instalment", "loan_term", "current_balance",
	"current_status", "balance_overdue", "subscriber_id",
}

// Table is the working set of credit products.
type Table = access.Table[CreditProduct]

// NewTable wraps rows in a subscriber-partitioned table.
func NewTable(rows []CreditProduct) Table {
	return Table{Rows: rows, HasSubscriberColumn: true}
}

// CloneTable deep-copies t so later mutations of either side are independent.
func CloneTable(t Table) Table {
	rows := make([]CreditProduct, len(t.Rows))
	copy(rows, t.Rows)
	return Table{Rows: rows, HasSubscriberColumn: t.HasSubscriberColumn}
}

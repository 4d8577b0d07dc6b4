package setting

import (
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/scoring"
	settingentity "github.com/ovaphlow/pitchfork/service-credit-go/internal/setting/entity"
)

// Service builds the dashboard settings from the product enums, the
// subscriber catalog and the scoring tables.
type Service struct {
	subscriberIDs []string
	defaultTarget int
}

func NewService(subscriberIDs []string, defaultTarget int) *Service {
	if defaultTarget == 0 {
		defaultTarget = scoring.DefaultTarget
	}
	return &Service{subscriberIDs: subscriberIDs, defaultTarget: defaultTarget}
}

func ptr(v float64) *float64 { return &v }

// Columns is the grid definition in export column order.
func (s *Service) Columns() []settingentity.Column {
	productTypes := make([]string, len(entity.ProductTypes))
	for i, pt := range entity.ProductTypes {
		productTypes[i] = string(pt)
	}
	statuses := make([]string, len(entity.Statuses))
	for i, st := range entity.Statuses {
		statuses[i] = string(st)
	}
	money := func(id, label string) settingentity.Column {
		return settingentity.Column{ID: id, Label: label, Kind: "number", Min: ptr(0), Format: "R%d", Required: true}
	}
	date := func(id, label string) settingentity.Column {
		return settingentity.Column{ID: id, Label: label, Kind: "date", Format: "YYYY-MM-DD", Required: true}
	}
	return []settingentity.Column{
		{ID: "customer_id", Label: "Customer ID", Kind: "text", Disabled: true},
		{ID: "product_type", Label: "Product Type", Kind: "select", Options: productTypes, Required: true},
		{ID: "account_number", Label: "Account Number", Kind: "text", Required: true},
		date("opening_date", "Opening Date"),
		date("last_payment_date", "Last Payment Date"),
		money("opening_balance", "Opening Balance"),
		money("credit_limit", "Credit Limit"),
		money("monthly_instalment", "Monthly Instalment"),
		{ID: "loan_term", Label: "Loan Term (months)", Kind: "number", Min: ptr(entity.MinLoanTerm), Max: ptr(entity.MaxLoanTerm), Step: 1, Required: true},
		money("current_balance", "Current Balance"),
		{ID: "current_status", Label: "Current Status", Kind: "select", Options: statuses, Required: true},
		money("balance_overdue", "Balance Overdue"),
		{ID: "subscriber_id", Label: "Subscriber ID", Kind: "select", Options: s.subscriberIDs, Required: true},
	}
}

func (s *Service) Settings() settingentity.Settings {
	components := make([]settingentity.ComponentCap, len(scoring.ComponentOrder))
	for i, c := range scoring.ComponentOrder {
		components[i] = settingentity.ComponentCap{Name: string(c), MaxPoints: c.MaxPoints()}
	}
	return settingentity.Settings{
		Columns: s.Columns(),
		ScoreBands: []settingentity.Band{
			{Category: string(scoring.Excellent), MinScore: 90},
			{Category: string(scoring.Good), MinScore: 75},
			{Category: string(scoring.Fair), MinScore: 60},
			{Category: string(scoring.Poor), MinScore: 40},
			{Category: string(scoring.VeryPoor), MinScore: 0},
		},
		Components:    components,
		DefaultTarget: s.defaultTarget,
	}
}

package profile

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/entity"
)

// Validator checks edited rows against the grid constraints: non-negative
// amounts, loan term bounds, and the closed product/status/subscriber sets.
type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator(subscriberIDs []string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(rowSchema(subscriberIDs)))
	if err != nil {
		return nil, fmt.Errorf("compile row schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

func rowSchema(subscriberIDs []string) map[string]any {
	amount := map[string]any{"type": "number", "minimum": 0}
	date := map[string]any{
		"oneOf": []any{
			map[string]any{"type": "null"},
			map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		},
	}
	productTypes := make([]any, len(entity.ProductTypes))
	for i, pt := range entity.ProductTypes {
		productTypes[i] = string(pt)
	}
	statuses := make([]any, len(entity.Statuses))
	for i, s := range entity.Statuses {
		statuses[i] = string(s)
	}
	subscriber := map[string]any{"type": "string", "minLength": 1}
	if len(subscriberIDs) > 0 {
		ids := make([]any, len(subscriberIDs))
		for i, id := range subscriberIDs {
			ids[i] = id
		}
		subscriber["enum"] = ids
	}

	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"required": []any{
			"customer_id", "product_type", "account_number", "current_status", "subscriber_id", "loan_term",
		},
		"properties": map[string]any{
			"customer_id":        map[string]any{"type": "string", "minLength": 1},
			"product_type":       map[string]any{"enum": productTypes},
			"account_number":     map[string]any{"type": "string"},
			"opening_date":       date,
			"last_payment_date":  date,
			"opening_balance":    amount,
			"credit_limit":       amount,
			"monthly_instalment": amount,
			"current_balance":    amount,
			"balance_overdue":    amount,
			"loan_term":          map[string]any{"type": "integer", "minimum": entity.MinLoanTerm, "maximum": entity.MaxLoanTerm},
			"current_status":     map[string]any{"enum": statuses},
			"subscriber_id":      subscriber,
		},
	}
}

// Validate returns a VALIDATION_FAILED error listing every violated constraint.
func (v *Validator) Validate(p entity.CreditProduct) error {
	res, err := v.schema.Validate(gojsonschema.NewGoLoader(p))
	if err != nil {
		return fmt.Errorf("validate row: %w", err)
	}
	if res.Valid() {
		return nil
	}
	errs := make([]string, len(res.Errors()))
	for i, desc := range res.Errors() {
		errs[i] = desc.String()
	}
	return apperr.Validation("Invalid credit product", strings.Join(errs, "; "))
}

package entity

// Subscriber is a credit-data-providing institution, the unit of row-level
// access partitioning.
type Subscriber struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email,omitempty" db:"email"`
}

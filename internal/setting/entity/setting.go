package entity

// Column describes one editable grid column and its input constraints.
type Column struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"` // text / select / date / number
	Options  []string `json:"options,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Step     float64  `json:"step,omitempty"`
	Format   string   `json:"format,omitempty"`
	Required bool     `json:"required"`
	Disabled bool     `json:"disabled,omitempty"`
}

// Band is one score category threshold.
type Band struct {
	Category string `json:"category"`
	MinScore int    `json:"min_score"`
}

// ComponentCap is the max points of a score component.
type ComponentCap struct {
	Name      string `json:"name"`
	MaxPoints int    `json:"max_points"`
}

// Settings is the client configuration of the dashboard.
type Settings struct {
	Columns       []Column       `json:"columns"`
	ScoreBands    []Band         `json:"score_bands"`
	Components    []ComponentCap `json:"components"`
	DefaultTarget int            `json:"default_target"`
}

package models

// FactorKind classifies what contributed a factor.
type FactorKind string

const (
	FactorIndicator FactorKind = "indicator"
	FactorPattern   FactorKind = "pattern"
	FactorNews      FactorKind = "news"
)

// Factor is one weighted, human-readable reason behind a prediction.
// Factors exist only under a parent prediction record; their weights
// explain the call, they do not recompute it.
type Factor struct {
	Kind        FactorKind `json:"factor_type"`
	Name        string     `json:"factor_name"`
	Value       string     `json:"factor_value"`
	Weight      float64    `json:"weight"`
	Description string     `json:"description"`
}

package models

// Request DTOs for the HTTP surface. Binding, defaults and validation
// are handled by pkg/http.

// AnalyzeRequest asks for a technical analysis of one symbol. Bars are
// optional; when omitted the bar store supplies the trailing window.
type AnalyzeRequest struct {
	Symbol string      `json:"symbol" validate:"required"`
	Bars   PriceSeries `json:"bars,omitempty"`
	N      int         `json:"n" default:"100" validate:"gte=0,lte=5000"`
}

// ScanRequest asks for signals across a list of symbols.
type ScanRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,dive,required"`
	N       int      `json:"n" default:"100" validate:"gte=0,lte=5000"`
}

// PredictRequest asks for a new prediction.
type PredictRequest struct {
	Symbol  string      `json:"symbol" validate:"required"`
	Kind    string      `json:"analysis_type" default:"hybrid" validate:"oneof=technical hybrid"`
	Horizon string      `json:"time_horizon" default:"medium" validate:"oneof=short medium long"`
	Bars    PriceSeries `json:"bars,omitempty"`
	N       int         `json:"n" default:"100" validate:"gte=0,lte=5000"`
}

// HistoryRequest filters the prediction history listing.
type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

// AccuracyRequest filters accuracy statistics.
type AccuracyRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
}

// VerifyRequest triggers a verification sweep, optionally scoped to a
// symbol set.
type VerifyRequest struct {
	Symbols []string `json:"symbols,omitempty"`
}

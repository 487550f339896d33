package model

// SignalStrength is a discrete score component value.
type SignalStrength float64

const (
	SignalStrong SignalStrength = 1.0
	SignalWeak   SignalStrength = 0.5
)

// FactorScore represents a single factor's scoring result.
type FactorScore struct {
	Name       string  `json:"name"`
	RawScore   float64 `json:"rawScore"`
	Weight     float64 `json:"weight"`
	Weighted   float64 `json:"weighted"`
	Commentary string  `json:"commentary"`
}

// PatternScore is the composite VCP score with its breakdown. Total is in [0,1].
type PatternScore struct {
	Factors []FactorScore `json:"factors"`
	Total   float64       `json:"total"`
}

// RejectReason names the classifier check that failed.
type RejectReason string

const (
	RejectNone                RejectReason = ""
	RejectInsufficientHistory RejectReason = "insufficient_history"
	RejectPriceOutOfRange     RejectReason = "price_out_of_range"
	RejectVolatilityExpanding RejectReason = "volatility_expanding"
	RejectVolumeExpanding     RejectReason = "volume_expanding"
	RejectRSIOutOfBand        RejectReason = "rsi_out_of_band"
)

// Classification is the outcome of the VCP decision rule.
type Classification struct {
	Matched bool
	Reason  RejectReason
	// RSI is the last RSI(14) value, zero when the check was not reached or had no data.
	RSI float64
}

package repository

// Timeframe represents bar resolution buckets.
type Timeframe string

const (
	TF1s Timeframe = "1s"
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
	TF1d Timeframe = "1d"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1s, TF1m, TF5m, TF1d:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1m }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Intraday reports whether the timeframe is served from recorded ticks
// rather than the vendor's daily endpoints.
func (tf Timeframe) Intraday() bool { return tf != TF1d }

// Seconds returns the bucket width used for tick aggregation.
func (tf Timeframe) Seconds() int {
	switch tf {
	case TF1s:
		return 1
	case TF1m:
		return 60
	case TF5m:
		return 300
	case TF1d:
		return 86400
	default:
		return 60
	}
}

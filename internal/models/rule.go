package models

import "errors"

// EntryRule maps a delta-magnitude bucket and a remaining-time bucket to a
// fixed trade amount. Rules are evaluated in configuration order. Both bucket
// dimensions are half-open: min and the lower time bound are inclusive, max
// and the upper time bound are exclusive.
type EntryRule struct {
	Min                int     `mapstructure:"min"`
	Max                int     `mapstructure:"max"`
	EntryRemainingDown int     `mapstructure:"entry_remaining_sec_down"`
	EntryRemainingUp   int     `mapstructure:"entry_remaining_sec_up"`
	Amount             float64 `mapstructure:"amount"`
}

// Matches reports whether the rule fires for the given delta and remaining
// seconds.
func (r *EntryRule) Matches(delta, remainingSec float64) bool {
	if remainingSec < float64(r.EntryRemainingDown) || remainingSec >= float64(r.EntryRemainingUp) {
		return false
	}
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	return abs >= float64(r.Min) && abs < float64(r.Max)
}

// Validate checks entry rule field constraints.
func (r *EntryRule) Validate() error {
	if r.Min < 0 {
		return errors.New("entry rule min must not be negative")
	}
	if r.Max <= 0 {
		return errors.New("entry rule max must be positive")
	}
	if r.Min >= r.Max {
		return errors.New("entry rule min must be < max")
	}
	if r.EntryRemainingDown < 0 {
		return errors.New("entry_remaining_sec_down must not be negative")
	}
	if r.EntryRemainingUp <= 0 {
		return errors.New("entry_remaining_sec_up must be positive")
	}
	if r.EntryRemainingDown >= r.EntryRemainingUp {
		return errors.New("entry_remaining_sec_down must be < entry_remaining_sec_up")
	}
	if r.Amount <= 0 {
		return errors.New("entry rule amount must be positive")
	}
	return nil
}

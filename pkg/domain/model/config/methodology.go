package config

import (
	"github.com/m-mizutani/goerr/v2"
)

// ScaleLevel describes one level of the impact or probability scale.
type ScaleLevel struct {
	Score       int    `toml:"score"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// RatingBands maps a risk value on the 1..25 scale to a rating label.
// Each threshold is the lowest value that falls into the band.
type RatingBands struct {
	Medium   int `toml:"medium"`
	High     int `toml:"high"`
	Critical int `toml:"critical"`
}

// FollowUpCadence bounds the next-check interval in days. Risks with
// stalled actions are checked after MinDays, risks trending toward
// completion after MaxDays.
type FollowUpCadence struct {
	MinDays int `toml:"min_days"`
	MaxDays int `toml:"max_days"`
}

// Methodology is the organization's assessment framework: scale
// definitions, rating bands, follow-up cadence, and the residual value at
// which a risk is considered ready for closure.
type Methodology struct {
	Version          string          `toml:"version"`
	ImpactScale      []ScaleLevel    `toml:"impact_scale"`
	ProbabilityScale []ScaleLevel    `toml:"probability_scale"`
	Bands            RatingBands     `toml:"bands"`
	FollowUp         FollowUpCadence `toml:"followup"`
	ClosureThreshold float64         `toml:"closure_threshold"`
}

// DefaultMethodology returns the built-in framework used when no TOML
// file is provided.
func DefaultMethodology() *Methodology {
	scale := []ScaleLevel{
		{Score: 1, Name: "Very Low"},
		{Score: 2, Name: "Low"},
		{Score: 3, Name: "Medium"},
		{Score: 4, Name: "High"},
		{Score: 5, Name: "Very High"},
	}
	return &Methodology{
		Version:          "v1",
		ImpactScale:      scale,
		ProbabilityScale: scale,
		Bands:            RatingBands{Medium: 6, High: 12, Critical: 20},
		FollowUp:         FollowUpCadence{MinDays: 5, MaxDays: 7},
		ClosureThreshold: 2.0,
	}
}

// Validate checks the methodology configuration
func (m *Methodology) Validate() error {
	if m.Version == "" {
		return goerr.New("methodology version is required")
	}
	if err := validateScale("impact", m.ImpactScale); err != nil {
		return err
	}
	if err := validateScale("probability", m.ProbabilityScale); err != nil {
		return err
	}
	if m.Bands.Medium <= 1 || m.Bands.High <= m.Bands.Medium || m.Bands.Critical <= m.Bands.High {
		return goerr.New("rating bands must be strictly increasing",
			goerr.V("medium", m.Bands.Medium),
			goerr.V("high", m.Bands.High),
			goerr.V("critical", m.Bands.Critical))
	}
	if m.FollowUp.MinDays < 1 || m.FollowUp.MaxDays < m.FollowUp.MinDays {
		return goerr.New("follow-up cadence must satisfy 1 <= min <= max",
			goerr.V("min_days", m.FollowUp.MinDays),
			goerr.V("max_days", m.FollowUp.MaxDays))
	}
	if m.ClosureThreshold < 0 {
		return goerr.New("closure threshold cannot be negative",
			goerr.V("closure_threshold", m.ClosureThreshold))
	}
	return nil
}

func validateScale(name string, scale []ScaleLevel) error {
	if len(scale) != 5 {
		return goerr.New("scale must define exactly five levels",
			goerr.V("scale", name), goerr.V("levels", len(scale)))
	}
	seen := make(map[int]bool, len(scale))
	for _, level := range scale {
		if level.Score < 1 || level.Score > 5 {
			return goerr.New("scale score must be between 1 and 5",
				goerr.V("scale", name), goerr.V("score", level.Score))
		}
		if level.Name == "" {
			return goerr.New("scale level name is required",
				goerr.V("scale", name), goerr.V("score", level.Score))
		}
		if seen[level.Score] {
			return goerr.New("duplicate scale score",
				goerr.V("scale", name), goerr.V("score", level.Score))
		}
		seen[level.Score] = true
	}
	return nil
}

// Classify maps a risk value on the 1..25 scale to its rating band label.
func (m *Methodology) Classify(value float64) string {
	switch {
	case value >= float64(m.Bands.Critical):
		return "Critical"
	case value >= float64(m.Bands.High):
		return "High"
	case value >= float64(m.Bands.Medium):
		return "Medium"
	default:
		return "Low"
	}
}

// ScaleName returns the name of the given impact or probability score, or
// empty if the score is not part of the scale.
func ScaleName(scale []ScaleLevel, score int) string {
	for _, level := range scale {
		if level.Score == score {
			return level.Name
		}
	}
	return ""
}

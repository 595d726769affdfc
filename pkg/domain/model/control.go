package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// Control is one declared security control evaluated during the control
// evaluation stage.
type Control struct {
	Name          string                `json:"name"`
	Description   string                `json:"description,omitempty"`
	Category      types.ControlCategory `json:"category"`
	Effectiveness float64               `json:"effectiveness"` // 0.0 .. 1.0
}

// Validate checks the control fields
func (c *Control) Validate() error {
	if c.Name == "" {
		return goerr.New("control name is required")
	}
	if !c.Category.IsValid() {
		return goerr.New("invalid control category",
			goerr.V("control", c.Name), goerr.V("category", c.Category))
	}
	if c.Effectiveness < 0 || c.Effectiveness > 1 {
		return goerr.New("control effectiveness must be within [0, 1]",
			goerr.V("control", c.Name), goerr.V("effectiveness", c.Effectiveness))
	}
	return nil
}

// CategoryEffectiveness averages control effectiveness per category over
// the given controls. Categories with no control are absent from the map.
func CategoryEffectiveness(controls []Control) map[types.ControlCategory]float64 {
	sums := make(map[types.ControlCategory]float64)
	counts := make(map[types.ControlCategory]int)
	for _, c := range controls {
		sums[c.Category] += c.Effectiveness
		counts[c.Category]++
	}

	avgs := make(map[types.ControlCategory]float64, len(sums))
	for cat, sum := range sums {
		avgs[cat] = sum / float64(counts[cat])
	}
	return avgs
}

// CompositeControlRating combines per-category averages into one rating in
// [0, 1]. Categories without controls do not dilute the composite.
func CompositeControlRating(avgs map[types.ControlCategory]float64) float64 {
	if len(avgs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range avgs {
		sum += v
	}
	return sum / float64(len(avgs))
}

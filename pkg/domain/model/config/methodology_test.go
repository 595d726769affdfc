package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/aegisrisk/pkg/domain/model/config"
)

func TestDefaultMethodology(t *testing.T) {
	m := config.DefaultMethodology()
	gt.NoError(t, m.Validate())
	gt.Value(t, m.Version).Equal("v1")
	gt.Value(t, m.FollowUp.MinDays).Equal(5)
	gt.Value(t, m.FollowUp.MaxDays).Equal(7)
	gt.Value(t, m.ClosureThreshold).Equal(2.0)
}

func TestClassify(t *testing.T) {
	m := config.DefaultMethodology()

	cases := []struct {
		value float64
		want  string
	}{
		{1, "Low"},
		{5.9, "Low"},
		{6, "Medium"},
		{11.9, "Medium"},
		{12, "High"},
		{19.9, "High"},
		{20, "Critical"},
		{25, "Critical"},
	}
	for _, tc := range cases {
		gt.Value(t, m.Classify(tc.value)).Equal(tc.want)
	}
}

func TestScaleName(t *testing.T) {
	m := config.DefaultMethodology()

	gt.Value(t, config.ScaleName(m.ImpactScale, 1)).Equal("Very Low")
	gt.Value(t, config.ScaleName(m.ImpactScale, 5)).Equal("Very High")
	gt.Value(t, config.ScaleName(m.ImpactScale, 9)).Equal("")
}

func TestMethodologyValidate(t *testing.T) {
	t.Run("bands must be strictly increasing", func(t *testing.T) {
		m := config.DefaultMethodology()
		m.Bands.High = m.Bands.Critical
		gt.Error(t, m.Validate())
	})

	t.Run("scales need exactly five levels", func(t *testing.T) {
		m := config.DefaultMethodology()
		m.ImpactScale = m.ImpactScale[:4]
		gt.Error(t, m.Validate())
	})

	t.Run("scale scores must be unique", func(t *testing.T) {
		m := config.DefaultMethodology()
		m.ProbabilityScale[1].Score = m.ProbabilityScale[0].Score
		gt.Error(t, m.Validate())
	})

	t.Run("cadence window must be ordered", func(t *testing.T) {
		m := config.DefaultMethodology()
		m.FollowUp.MaxDays = m.FollowUp.MinDays - 1
		gt.Error(t, m.Validate())
	})

	t.Run("version is required", func(t *testing.T) {
		m := config.DefaultMethodology()
		m.Version = ""
		gt.Error(t, m.Validate())
	})
}

package cache_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/repository/memory"
	"github.com/secmon-lab/aegisrisk/pkg/service/cache"
)

func TestNormalize(t *testing.T) {
	t.Run("lowercases and collapses whitespace", func(t *testing.T) {
		gt.Value(t, cache.Normalize("Vendor  SOC2\tcontrol   mapping")).
			Equal("vendor soc2 control mapping")
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		gt.Value(t, cache.Normalize("  database  ")).Equal("database")
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		gt.Value(t, cache.Normalize("   ")).Equal("")
	})
}

func TestKey(t *testing.T) {
	t.Run("incidental formatting does not change the key", func(t *testing.T) {
		a := cache.Key("Vendor  SOC2 control mapping")
		b := cache.Key("vendor soc2\tCONTROL mapping")
		gt.Value(t, a).Equal(b)
	})

	t.Run("different content yields different keys", func(t *testing.T) {
		a := cache.Key("database", "v1")
		b := cache.Key("database", "v2")
		gt.Value(t, a == b).Equal(false)
	})

	t.Run("part boundaries are preserved", func(t *testing.T) {
		// "ab" + "c" must not collide with "a" + "bc".
		a := cache.Key("ab", "c")
		b := cache.Key("a", "bc")
		gt.Value(t, a == b).Equal(false)
	})
}

func TestTemplateRoundTrip(t *testing.T) {
	repo := memory.New()
	svc := cache.New(repo.Cache())
	ctx := context.Background()

	key := cache.TemplateKey("database", "v1", types.QuestionnaireKindAsset)

	_, ok, err := svc.GetTemplate(ctx, key)
	gt.NoError(t, err)
	gt.Value(t, ok).Equal(false)

	questions := []model.Question{
		{ID: "q1", Text: "Does the asset store personal data?", Required: true},
	}
	gt.NoError(t, svc.PutTemplate(ctx, key, questions))

	stored, ok, err := svc.GetTemplate(ctx, key)
	gt.NoError(t, err)
	gt.Value(t, ok).Equal(true)
	gt.Array(t, stored).Length(1)
	gt.Value(t, stored[0].ID).Equal("q1")
}

func TestMethodologyRoundTrip(t *testing.T) {
	repo := memory.New()
	svc := cache.New(repo.Cache())
	ctx := context.Background()

	gt.NoError(t, svc.PutMethodology(ctx, "impact scale definitions v1", "levels 1 to 5"))

	// The topic is normalized before key derivation, so a differently
	// formatted lookup hits the same entry.
	fragment, ok, err := svc.GetMethodology(ctx, "Impact  Scale definitions V1")
	gt.NoError(t, err)
	gt.Value(t, ok).Equal(true)
	gt.Value(t, fragment).Equal("levels 1 to 5")
}

func TestRetrievalRoundTrip(t *testing.T) {
	repo := memory.New()
	svc := cache.New(repo.Cache())
	ctx := context.Background()

	passages := []model.Passage{
		{Content: "Encrypt data at rest.", Source: "framework", Score: 0.92},
		{Content: "Rotate credentials.", Source: "framework", Score: 0.81},
	}
	gt.NoError(t, svc.PutRetrieval(ctx, "controls for database threats", passages))

	stored, ok, err := svc.GetRetrieval(ctx, "controls for database threats")
	gt.NoError(t, err)
	gt.Value(t, ok).Equal(true)
	gt.Array(t, stored).Length(2)
	gt.Value(t, stored[0].Content).Equal("Encrypt data at rest.")
}

// Package cache is the memoization facade over the cache repository. It
// derives deterministic keys from normalized input so semantically
// identical requests collide regardless of incidental formatting, and it
// serializes typed payloads for the three namespaces.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/interfaces"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// Service provides typed access to the three memoization namespaces.
type Service struct {
	repo interfaces.CacheRepository
}

// New creates a cache service backed by the given repository
func New(repo interfaces.CacheRepository) *Service {
	return &Service{repo: repo}
}

// Normalize canonicalizes free text: lowercased, whitespace collapsed.
// "Vendor  SOC2\tcontrol mapping" and "vendor soc2 control mapping"
// normalize to the same string.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Key derives a stable cache key from the normalized parts.
func Key(parts ...string) string {
	h := sha256.New()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(Normalize(part)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) get(ctx context.Context, ns types.CacheNamespace, key string, out any) (bool, error) {
	entry, err := s.repo.Get(ctx, ns, key)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	if err := json.Unmarshal(entry.Value, out); err != nil {
		return false, goerr.Wrap(err, "failed to decode cached value",
			goerr.V("namespace", ns), goerr.V("key", key))
	}
	return true, nil
}

func (s *Service) put(ctx context.Context, ns types.CacheNamespace, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return goerr.Wrap(err, "failed to encode cache value",
			goerr.V("namespace", ns), goerr.V("key", key))
	}
	return s.repo.Put(ctx, ns, key, raw)
}

// TemplateKey derives the questionnaire-template key from asset type,
// methodology version, and questionnaire kind.
func TemplateKey(assetType, methodologyVersion string, kind types.QuestionnaireKind) string {
	return Key(assetType, methodologyVersion, kind.String())
}

// GetTemplate looks up a cached questionnaire template.
func (s *Service) GetTemplate(ctx context.Context, key string) ([]model.Question, bool, error) {
	var questions []model.Question
	ok, err := s.get(ctx, types.CacheTemplate, key, &questions)
	return questions, ok, err
}

// PutTemplate caches a questionnaire template.
func (s *Service) PutTemplate(ctx context.Context, key string, questions []model.Question) error {
	return s.put(ctx, types.CacheTemplate, key, questions)
}

// GetMethodology looks up a cached methodology fragment by topic.
func (s *Service) GetMethodology(ctx context.Context, topic string) (string, bool, error) {
	var fragment string
	ok, err := s.get(ctx, types.CacheMethodology, Key(topic), &fragment)
	return fragment, ok, err
}

// PutMethodology caches a methodology fragment under its topic key.
func (s *Service) PutMethodology(ctx context.Context, topic string, fragment string) error {
	return s.put(ctx, types.CacheMethodology, Key(topic), fragment)
}

// GetRetrieval looks up cached passages for a normalized query.
func (s *Service) GetRetrieval(ctx context.Context, query string) ([]model.Passage, bool, error) {
	var passages []model.Passage
	ok, err := s.get(ctx, types.CacheRetrieval, Key(query), &passages)
	return passages, ok, err
}

// PutRetrieval caches the ranked passages of a retrieval query.
func (s *Service) PutRetrieval(ctx context.Context, query string, passages []model.Passage) error {
	return s.put(ctx, types.CacheRetrieval, Key(query), passages)
}

// Stats reports per-namespace usage for operator-side trimming decisions.
func (s *Service) Stats(ctx context.Context) ([]model.CacheStats, error) {
	return s.repo.Stats(ctx)
}

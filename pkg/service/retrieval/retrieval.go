// Package retrieval implements the knowledge-lookup collaborator on top
// of Weaviate. Queries run as nearText semantic search against a class
// of framework passages; the core caches the ranked results and never
// sees Weaviate internals.
package retrieval

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/secmon-lab/aegisrisk/pkg/domain/interfaces"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// DefaultClassName is the Weaviate class holding framework passages.
const DefaultClassName = "FrameworkPassage"

const defaultTimeout = 15 * time.Second

type client struct {
	wv        *weaviate.Client
	className string
	timeout   time.Duration
}

// Option is a functional option for client configuration
type Option func(*client)

// WithClassName overrides the Weaviate class to query.
func WithClassName(name string) Option {
	return func(c *client) {
		c.className = name
	}
}

// WithTimeout caps the wall-clock time of a single search.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.timeout = d
	}
}

// New creates a retrieval service connected to the given Weaviate host.
// Scheme is split off the host the same way as a URL: "https://" selects
// TLS, anything else defaults to plain HTTP.
func New(host string, opts ...Option) (interfaces.Retrieval, error) {
	if host == "" {
		return nil, goerr.New("weaviate host is required")
	}

	cfg := weaviate.Config{
		Host:   host,
		Scheme: "http",
	}
	if len(host) > 8 && host[:8] == "https://" {
		cfg.Scheme = "https"
		cfg.Host = host[8:]
	} else if len(host) > 7 && host[:7] == "http://" {
		cfg.Host = host[7:]
	}

	wv, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create weaviate client", goerr.V("host", host))
	}

	c := &client{
		wv:        wv,
		className: DefaultClassName,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Search returns ranked passages for the query text.
func (c *client) Search(ctx context.Context, query string, limit int) ([]model.Passage, error) {
	if query == "" {
		return nil, goerr.New("query is required", goerr.T(types.TagValidation))
	}
	if limit <= 0 {
		limit = 5
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	nearText := c.wv.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "_additional { certainty }"},
	}

	result, err := c.wv.GraphQL().Get().
		WithClassName(c.className).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query weaviate",
			goerr.T(types.TagCollaborator), goerr.V("class", c.className))
	}
	if len(result.Errors) > 0 {
		return nil, goerr.New("weaviate query failed",
			goerr.T(types.TagCollaborator),
			goerr.V("class", c.className),
			goerr.V("message", result.Errors[0].Message))
	}

	return c.parsePassages(result), nil
}

func (c *client) parsePassages(result *models.GraphQLResponse) []model.Passage {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	objects, ok := data[c.className].([]interface{})
	if !ok {
		return nil
	}

	passages := make([]model.Passage, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		passage := model.Passage{
			Content: getString(m, "content"),
			Source:  getString(m, "source"),
		}
		if passage.Content == "" {
			continue
		}
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				passage.Score = certainty
			}
		}

		passages = append(passages, passage)
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})

	return passages
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

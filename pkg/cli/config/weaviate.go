package config

import (
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/aegisrisk/pkg/domain/interfaces"
	"github.com/secmon-lab/aegisrisk/pkg/service/retrieval"
)

// Weaviate holds configuration for the retrieval collaborator
type Weaviate struct {
	host      string
	className string
}

// Flags returns CLI flags for Weaviate configuration
func (w *Weaviate) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "weaviate-host",
			Usage:       "Weaviate host for framework passage retrieval (e.g. localhost:8080)",
			Sources:     cli.EnvVars("AEGISRISK_WEAVIATE_HOST"),
			Destination: &w.host,
		},
		&cli.StringFlag{
			Name:        "weaviate-class",
			Usage:       "Weaviate class holding framework passages",
			Value:       retrieval.DefaultClassName,
			Sources:     cli.EnvVars("AEGISRISK_WEAVIATE_CLASS"),
			Destination: &w.className,
		},
	}
}

// Configure creates the retrieval service. Returns nil if no host is
// configured (control evaluation runs on questionnaire answers alone).
func (w *Weaviate) Configure() (interfaces.Retrieval, error) {
	if w.host == "" {
		return nil, nil
	}
	return retrieval.New(w.host, retrieval.WithClassName(w.className))
}

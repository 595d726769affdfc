package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	domainConfig "github.com/secmon-lab/aegisrisk/pkg/domain/model/config"
)

// Methodology holds the CLI flag selecting the assessment framework file
type Methodology struct {
	path string
}

// Flags returns CLI flags for methodology configuration
func (m *Methodology) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "methodology",
			Usage:       "Path to methodology TOML file (scales, rating bands, follow-up cadence)",
			Sources:     cli.EnvVars("AEGISRISK_METHODOLOGY"),
			Destination: &m.path,
		},
	}
}

// Configure loads the methodology from the configured TOML file, falling
// back to the built-in defaults when no path is set.
func (m *Methodology) Configure() (*domainConfig.Methodology, error) {
	if m.path == "" {
		return domainConfig.DefaultMethodology(), nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read methodology file", goerr.V("path", m.path))
	}

	var methodology domainConfig.Methodology
	if err := toml.Unmarshal(data, &methodology); err != nil {
		return nil, goerr.Wrap(err, "failed to parse methodology TOML", goerr.V("path", m.path))
	}

	if err := methodology.Validate(); err != nil {
		return nil, goerr.Wrap(err, "methodology validation failed", goerr.V("path", m.path))
	}

	return &methodology, nil
}

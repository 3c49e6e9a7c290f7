// Package config loads the optional lilcc.toml build configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"lilcc/pkg/report"
	"lilcc/pkg/toolchain"

	"github.com/pelletier/go-toml"
)

// FileName is the configuration file looked up in the working directory
// when no --config path is given.
const FileName = "lilcc.toml"

// tomlConfig is the configuration file as it is encoded in TOML. Pointer
// fields distinguish an absent key from a zero value.
type tomlConfig struct {
	Toolchain *tomlToolchain `toml:"toolchain"`
	Output    *tomlOutput    `toml:"output"`
}

type tomlToolchain struct {
	CC         string `toml:"cc"`
	Preprocess *bool  `toml:"preprocess"`
}

type tomlOutput struct {
	Dir       string `toml:"dir"`
	LogLevel  string `toml:"log-level"`
	Color     *bool  `toml:"color"`
	VerifyAsm *bool  `toml:"verify-asm"`
}

// Config is the resolved build configuration.
type Config struct {
	// CC is the C compiler driver used to preprocess, assemble and link.
	CC string

	// Preprocess runs every source through `CC -E -P` before lexing.
	Preprocess bool

	// OutputDir is where artefacts are written when no -o is given. Empty
	// means next to each source file.
	OutputDir string

	LogLevel report.LogLevel
	Color    bool

	// VerifyAsm checks every generated listing before it is written.
	VerifyAsm bool
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		CC:       toolchain.DefaultCC,
		LogLevel: report.LogLevelError,
		Color:    true,
	}
}

// Load reads the configuration at path. An empty path looks for FileName in
// the working directory and falls back to Default when it does not exist;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = FileName
	}

	buff, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(buff)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML configuration text over the defaults and validates it.
func Parse(buff []byte) (*Config, error) {
	tc := &tomlConfig{}
	if err := toml.Unmarshal(buff, tc); err != nil {
		return nil, err
	}

	cfg := Default()
	if t := tc.Toolchain; t != nil {
		if t.CC != "" {
			cfg.CC = t.CC
		}
		if t.Preprocess != nil {
			cfg.Preprocess = *t.Preprocess
		}
	}

	if o := tc.Output; o != nil {
		cfg.OutputDir = o.Dir
		if o.LogLevel != "" {
			level, err := report.ParseLogLevel(o.LogLevel)
			if err != nil {
				return nil, err
			}
			cfg.LogLevel = level
		}
		if o.Color != nil {
			cfg.Color = *o.Color
		}
		if o.VerifyAsm != nil {
			cfg.VerifyAsm = *o.VerifyAsm
		}
	}
	return cfg, nil
}

// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the validated options for a single cp or mv run.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/cpg/pkg/progress"
)

// MinInterval is the shortest sampler tick accepted.
const MinInterval = 10 * time.Millisecond

// 📚 Config represents the options of one run
type Config struct {
	Interval   time.Duration `json:"interval" yaml:"interval"`                 // Sampler tick
	Window     int           `json:"window" yaml:"window"`                     // Samples averaged for the rate
	Quiet      bool          `json:"quiet,omitempty" yaml:"quiet,omitempty"`   // Suppress the progress line
	Debug      bool          `json:"debug,omitempty" yaml:"debug,omitempty"`   // Debug level structured logs
	NoColor    bool          `json:"no_color,omitempty" yaml:"no_color,omitempty"`
	ReportPath string        `json:"report,omitempty" yaml:"report,omitempty"` // Optional YAML report
}

// 🏭 Default returns the configuration used when no flags are given
func Default() *Config {
	return &Config{
		Interval: progress.DefaultInterval,
		Window:   progress.DefaultWindow,
	}
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if cfg.Interval < MinInterval {
		return errors.Errorf("interval must be at least %s, got %s", MinInterval, cfg.Interval)
	}
	if cfg.Window < 1 {
		return errors.Errorf("window must be at least 1, got %d", cfg.Window)
	}

	// Clean up paths
	if cfg.ReportPath != "" {
		cfg.ReportPath = filepath.Clean(cfg.ReportPath)
	}

	return nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("interval=%s window=%d quiet=%t debug=%t", cfg.Interval, cfg.Window, cfg.Quiet, cfg.Debug)
}

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

package opts

import (
	"io"

	"github.com/walteh/cpg/pkg/config"
	"github.com/walteh/cpg/pkg/progress"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Config *config.Config
	Stdout io.Writer          // Progress line, diagnostics and summary
	Stderr io.Writer          // Structured logs
	Width  progress.WidthFunc // Display width, re-read on every tick
}

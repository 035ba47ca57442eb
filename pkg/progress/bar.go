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

package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/walteh/cpg/pkg/units"
)

// minBarWidth is the narrowest bar worth drawing; below it only the
// counters are shown.
const minBarWidth = 10

// 🎨 FormatLine renders s as a single progress line fitting s.Width columns:
//
//	[#########          ] 2/3 40.00kb/60.00kb 1.25mb/s ETA: 0.2s
func FormatLine(s Snapshot) string {
	return formatLine(s, func(v string) string { return v })
}

func formatLine(s Snapshot, paint func(string) string) string {
	width := s.Width
	if width <= 0 {
		width = DefaultWidth
	}

	info := fmt.Sprintf(" %d/%d %s/%s %s ETA: %s",
		s.FilesDone, s.FilesTotal,
		units.Size(s.BytesDone), units.Size(s.BytesTotal),
		units.Rate(s.Rate),
		units.Duration(s.ETA),
	)

	// leave the last column free so the terminal never wraps
	inner := width - len(info) - 3
	if inner < minBarWidth {
		return strings.TrimPrefix(info, " ")
	}

	filled := int(s.Ratio() * float64(inner))
	filled = min(max(filled, 0), inner)
	return "[" + paint(strings.Repeat("#", filled)) + strings.Repeat(" ", inner-filled) + "]" + info
}

// 📟 Bar draws snapshots as one carriage-return redrawn line.
//
// Bar also implements log.LineHolder so diagnostics can be printed between
// redraws without garbling the line.
type Bar struct {
	mu    sync.Mutex
	out   io.Writer
	last  string
	drawn bool
	done  bool
	paint func(...interface{}) string
}

// 🏭 NewBar creates a bar writing to out.
func NewBar(out io.Writer) *Bar {
	return &Bar{
		out:   out,
		paint: color.New(color.FgGreen).SprintFunc(),
	}
}

// Render redraws the line with s.
func (b *Bar) Render(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return
	}
	line := formatLine(s, func(v string) string { return b.paint(v) })
	b.clearLocked()
	fmt.Fprint(b.out, line)
	b.last = line
	b.drawn = true
}

// Suspend clears the line, runs fn (which may write to the same output) and
// redraws the line.
func (b *Bar) Suspend(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.drawn || b.done {
		fn()
		return
	}
	b.clearLocked()
	fn()
	fmt.Fprint(b.out, b.last)
}

// Close ends the line with a newline. It is safe to call more than once;
// later renders are ignored.
func (b *Bar) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return
	}
	b.done = true
	if b.drawn {
		fmt.Fprintln(b.out)
	}
}

func (b *Bar) clearLocked() {
	if !b.drawn {
		return
	}
	fmt.Fprint(b.out, "\r"+strings.Repeat(" ", visibleLen(b.last))+"\r")
}

// visibleLen is the line length without ANSI escape sequences.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			n++
		}
	}
	return n
}

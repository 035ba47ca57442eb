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
	"context"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

const (
	// DefaultInterval is the sampler tick.
	DefaultInterval = 100 * time.Millisecond
	// DefaultWindow is the number of ticks averaged into the rate.
	DefaultWindow = 15
	// DefaultWidth is used when the display width is unknown.
	DefaultWidth = 80
)

// SizeFunc reports the current on-disk size of path.
type SizeFunc func(path string) (int64, error)

// WidthFunc reports the current display width in columns.
type WidthFunc func() int

// RenderFunc draws a snapshot.
type RenderFunc func(Snapshot)

// 🖥️ TerminalWidth queries the terminal, falling back to DefaultWidth.
func TerminalWidth() int {
	if w := pterm.GetTerminalWidth(); w > 0 {
		return w
	}
	return DefaultWidth
}

// SamplerOptions configures a Sampler. Zero values fall back to defaults.
type SamplerOptions struct {
	Interval time.Duration
	Window   int
	Size     SizeFunc
	Width    WidthFunc
	Render   RenderFunc
}

// 🔭 Sampler periodically measures the file being copied, feeds the growth
// into the model and renders.
//
// It never touches the copy itself: progress inside a file is derived from
// how large the destination has grown since the previous tick. The rate
// window is fed with the change of BytesDone between ticks, so files that
// start and finish between two ticks still count toward the throughput.
type Sampler struct {
	model    *Model
	interval time.Duration
	size     SizeFunc
	width    WidthFunc
	render   RenderFunc
	window   *window
	lastDone int64 // BytesDone at the previous tick
}

// 🏭 NewSampler creates a sampler over m.
func NewSampler(m *Model, opts SamplerOptions) *Sampler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Width == nil {
		opts.Width = func() int { return DefaultWidth }
	}
	if opts.Render == nil {
		opts.Render = func(Snapshot) {}
	}
	return &Sampler{
		model:    m,
		interval: opts.Interval,
		size:     opts.Size,
		width:    opts.Width,
		render:   opts.Render,
		window:   newWindow(opts.Window),
		lastDone: m.Snapshot().BytesDone,
	}
}

// 🏃 Run samples until ctx is cancelled or the model stops running, then
// performs the final render: counters forced to their totals, or nothing at
// all when the run was aborted. Run always returns nil; the error result
// lets it run inside an errgroup.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finish(ctx)
			return nil
		case <-ticker.C:
			if !s.model.Running() {
				s.finish(ctx)
				return nil
			}
			s.tick()
		}
	}
}

// tick runs one sample window: measure, apply, estimate, render.
func (s *Sampler) tick() {
	width := s.width()

	if path := s.model.CurrentFile(); path != "" && s.size != nil {
		// stat happens outside the model lock
		if size, err := s.size(path); err == nil {
			s.model.Observe(path, size)
		}
	}

	done := s.model.Snapshot().BytesDone
	s.window.push(max(done-s.lastDone, 0))
	s.lastDone = done
	rate := s.window.rate(s.interval)
	eta := time.Duration(-1)
	if rate > 0 {
		eta = time.Duration(float64(s.model.Remaining()) / rate * float64(time.Second))
	}
	s.model.SetEstimate(rate, eta, width)

	s.render(s.model.Snapshot())
}

func (s *Sampler) finish(ctx context.Context) {
	if s.model.Aborted() {
		zerolog.Ctx(ctx).Debug().Msg("transfer aborted, skipping final render")
		return
	}
	s.model.Complete()
	s.model.SetEstimate(s.window.rate(s.interval), 0, s.width())
	s.render(s.model.Snapshot())
}

// 🪟 window is a fixed-size ring of per-tick byte deltas.
type window struct {
	samples []int64
	next    int
	count   int
	sum     int64
}

func newWindow(size int) *window {
	return &window{samples: make([]int64, size)}
}

func (w *window) push(v int64) {
	if w.count == len(w.samples) {
		w.sum -= w.samples[w.next]
	} else {
		w.count++
	}
	w.samples[w.next] = v
	w.sum += v
	w.next = (w.next + 1) % len(w.samples)
}

// rate returns the mean bytes per second over the samples held.
func (w *window) rate(interval time.Duration) float64 {
	if w.count == 0 || interval <= 0 {
		return 0
	}
	return float64(w.sum) / (float64(w.count) * interval.Seconds())
}

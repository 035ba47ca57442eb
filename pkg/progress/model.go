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
	"sync"
	"time"
)

// 📸 Snapshot is a read-only copy of the transfer progress, safe to hand to
// renderers.
type Snapshot struct {
	FilesDone       int
	FilesTotal      int
	BytesDone       int64
	BytesTotal      int64
	CurrentFile     string
	CurrentObserved int64 // Bytes of CurrentFile already credited to BytesDone
	Running         bool
	Aborted         bool
	StartTime       time.Time
	Elapsed         time.Duration
	Rate            float64       // Smoothed bytes per second
	ETA             time.Duration // Negative when unknown
	Width           int           // Display width at the last sample
}

// Ratio returns BytesDone/BytesTotal in [0, 1]. An empty transfer counts as
// complete once it stopped running.
func (s Snapshot) Ratio() float64 {
	if s.BytesTotal <= 0 {
		if s.Running {
			return 0
		}
		return 1
	}
	r := float64(s.BytesDone) / float64(s.BytesTotal)
	if r > 1 {
		return 1
	}
	return r
}

// 📊 Model holds the progress state shared by the transfer driver and the
// sampler.
//
// The driver owns the file counters and the current file; the sampler owns
// byte deltas and the rate estimate. Every access goes through mu, which is
// only held for in-memory updates and never across filesystem calls.
type Model struct {
	mu sync.Mutex

	filesDone  int
	filesTotal int
	bytesDone  int64
	bytesTotal int64

	currentFile string
	observed    int64

	running bool
	aborted bool

	startTime time.Time
	rate      float64
	eta       time.Duration
	width     int

	now func() time.Time
}

// 🏭 NewModel creates a running model for a transfer of filesTotal files
// and bytesTotal bytes.
func NewModel(filesTotal int, bytesTotal int64) *Model {
	m := &Model{
		filesTotal: max(filesTotal, 0),
		bytesTotal: max(bytesTotal, 0),
		running:    true,
		eta:        -1,
		now:        time.Now,
	}
	m.startTime = m.now()
	return m
}

// RecordFileStarted advances the file counter and makes path the file the
// sampler watches. The observed baseline restarts at zero.
func (m *Model) RecordFileStarted(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.filesDone < m.filesTotal {
		m.filesDone++
	}
	m.currentFile = path
	m.observed = 0
}

// RecordFileDone credits the part of path's size the sampler has not seen
// yet, so BytesDone is exact at every file boundary. It returns the bytes
// credited.
func (m *Model) RecordFileDone(path string, size int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if path != m.currentFile {
		return 0
	}
	delta := size - m.observed
	m.observed = max(size, m.observed)
	m.currentFile = ""
	return m.addLocked(delta)
}

// Observe applies a size measured for path by the sampler. Measurements for
// a file that is no longer current are discarded. It returns the bytes
// added.
func (m *Model) Observe(path string, size int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if path == "" || path != m.currentFile || size <= m.observed {
		return 0
	}
	delta := size - m.observed
	m.observed = size
	return m.addLocked(delta)
}

// addLocked ignores negative deltas and clamps BytesDone to BytesTotal.
func (m *Model) addLocked(delta int64) int64 {
	if delta <= 0 {
		return 0
	}
	if room := m.bytesTotal - m.bytesDone; delta > room {
		delta = room
	}
	m.bytesDone += delta
	return delta
}

// SetEstimate stores the sampler's latest rate, ETA and display width.
func (m *Model) SetEstimate(rate float64, eta time.Duration, width int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rate = rate
	m.eta = eta
	m.width = width
}

// CurrentFile returns the file being transferred, or "".
func (m *Model) CurrentFile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentFile
}

// Remaining returns the bytes still to transfer.
func (m *Model) Remaining() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytesTotal - m.bytesDone
}

// MarkDone stops the run. The sampler sees it on its next tick.
func (m *Model) MarkDone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

// MarkAborted stops the run and suppresses the final render.
func (m *Model) MarkAborted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.aborted = true
}

// Complete forces the counters to their totals for the final render.
func (m *Model) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = false
	m.filesDone = m.filesTotal
	m.bytesDone = m.bytesTotal
	m.currentFile = ""
	m.eta = 0
}

// Running reports whether the transfer is still in progress.
func (m *Model) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Aborted reports whether the transfer was interrupted.
func (m *Model) Aborted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aborted
}

// Snapshot returns a consistent copy of the state.
func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		FilesDone:       m.filesDone,
		FilesTotal:      m.filesTotal,
		BytesDone:       m.bytesDone,
		BytesTotal:      m.bytesTotal,
		CurrentFile:     m.currentFile,
		CurrentObserved: m.observed,
		Running:         m.running,
		Aborted:         m.aborted,
		StartTime:       m.startTime,
		Elapsed:         m.now().Sub(m.startTime),
		Rate:            m.rate,
		ETA:             m.eta,
		Width:           m.width,
	}
}

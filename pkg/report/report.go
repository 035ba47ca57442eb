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

// Package report writes the optional YAML summary of a run.
package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/cpg/pkg/transfer"
)

// 📝 Entry is one path that did not make it
type Entry struct {
	Path   string `yaml:"path"`
	Dest   string `yaml:"dest,omitempty"`
	Reason string `yaml:"reason"`
	Error  string `yaml:"error"`
}

// 📚 Report is the persisted form of a transfer result
type Report struct {
	Mode          string        `yaml:"mode"`
	Sources       []string      `yaml:"sources"`
	Destination   string        `yaml:"destination"`
	State         string        `yaml:"state"`
	Started       time.Time     `yaml:"started"`
	Duration      time.Duration `yaml:"duration"`
	Dirs          int           `yaml:"dirs"`
	Files         int           `yaml:"files"`
	Bytes         int64         `yaml:"bytes"`
	Copied        int           `yaml:"copied"`
	BytesDone     int64         `yaml:"bytes_done"`
	SourceRemoved bool          `yaml:"source_removed"`
	Error         string        `yaml:"error,omitempty"`
	Failed        []Entry       `yaml:"failed,omitempty"`
	ScanErrors    []Entry       `yaml:"scan_errors,omitempty"`
}

// 🏭 New builds a report from a result and the error Run returned with it.
func New(res *transfer.Result, runErr error) *Report {
	r := &Report{
		Mode:          res.Mode.String(),
		Sources:       res.Sources,
		Destination:   res.Destination,
		State:         res.State.String(),
		Started:       res.Started.UTC().Truncate(time.Millisecond),
		Duration:      res.Elapsed.Round(time.Millisecond),
		Copied:        res.Copied,
		BytesDone:     res.Final.BytesDone,
		SourceRemoved: res.SourceRemoved,
	}
	if res.Manifest != nil {
		r.Dirs = res.Manifest.Dirs
		r.Files = res.Manifest.Files
		r.Bytes = res.Manifest.TotalSize
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	for _, fe := range res.Failed {
		r.Failed = append(r.Failed, Entry{
			Path:   fe.Path,
			Dest:   fe.Dest,
			Reason: fe.Kind.String(),
			Error:  errorString(fe.Err),
		})
	}
	for _, se := range res.ScanErrors {
		r.ScanErrors = append(r.ScanErrors, Entry{
			Path:   se.Path,
			Reason: se.Kind.String(),
			Error:  errorString(se.Err),
		})
	}
	return r
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Marshal encodes the report as YAML.
func (r *Report) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, errors.Errorf("encoding report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Errorf("encoding report: %w", err)
	}
	return buf.Bytes(), nil
}

// 💾 Write stores the report at path, replacing it atomically.
func Write(ctx context.Context, path string, r *Report) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Int("bytes", len(data)).Msg("wrote report")
	return nil
}

// 📖 Read loads a report written by Write.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading report: %w", err)
	}

	var r Report
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &r, nil
}

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

// Package fileops holds the filesystem primitives the transfer driver treats
// as opaque: copy one file, create directories, remove a tree, and measure a
// file's current size.
package fileops

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultBufferSize is the copy buffer. Writes of this size become visible
// to concurrent size checks as the copy proceeds.
const DefaultBufferSize = 1 << 20

// 💾 FileManager handles all file system operations of a transfer
type FileManager interface {
	// CopyFile copies the contents of src to dst, replacing dst.
	CopyFile(ctx context.Context, src, dst string) error
	// MakeDirs creates path and its parents; existing directories are fine.
	MakeDirs(ctx context.Context, path string) error
	// RemoveTree removes path and everything beneath it.
	RemoveTree(ctx context.Context, path string) error
	// Size returns the current size of the file at path.
	Size(path string) (int64, error)
	// Stat describes the entry at path, following symlinks.
	Stat(path string) (fs.FileInfo, error)
}

// 🔧 OS implements FileManager on the local filesystem
type OS struct {
	BufferSize int
}

var _ FileManager = (*OS)(nil)

// 🏭 NewOS creates a new local filesystem manager
func NewOS() *OS {
	return &OS{BufferSize: DefaultBufferSize}
}

func (o *OS) CopyFile(ctx context.Context, src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening source file: %w", err)
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return errors.Errorf("reading source file info: %w", err)
	}
	if !info.Mode().IsRegular() {
		return errors.Errorf("copying %s: not a regular file", src)
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Errorf("creating destination file: %w", err)
	}

	size := o.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	if _, err := io.CopyBuffer(onlyWriter{dstFile}, onlyReader{srcFile}, make([]byte, size)); err != nil {
		dstFile.Close()
		return errors.Errorf("copying file content: %w", err)
	}
	if err := dstFile.Close(); err != nil {
		return errors.Errorf("closing destination file: %w", err)
	}

	zerolog.Ctx(ctx).Trace().Str("src", src).Str("dst", dst).Int64("size", info.Size()).Msg("copied file")
	return nil
}

func (o *OS) MakeDirs(ctx context.Context, path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Errorf("creating directory: %w", err)
	}
	return nil
}

func (o *OS) RemoveTree(ctx context.Context, path string) error {
	if err := os.RemoveAll(path); err != nil {
		return errors.Errorf("removing directory: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("path", filepath.Clean(path)).Msg("removed tree")
	return nil
}

func (o *OS) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (o *OS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// onlyReader and onlyWriter hide the WriterTo/ReaderFrom fast paths so the
// copy goes through the buffer in steps the sampler can observe.
type onlyReader struct {
	io.Reader
}

type onlyWriter struct {
	io.Writer
}

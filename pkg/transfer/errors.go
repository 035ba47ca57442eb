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

package transfer

import (
	"fmt"
	"syscall"

	"gitlab.com/tozd/go/errors"
)

// ErrAborted is returned when the run was interrupted. Nothing is deleted
// after an abort.
var ErrAborted = errors.New("transfer aborted")

// ErrDestinationInsideSource is returned when a directory would be copied
// into itself.
var ErrDestinationInsideSource = errors.New("destination is inside source")

// ErrSameFile is returned when a file would be copied onto itself.
var ErrSameFile = errors.New("source and destination are the same file")

// ErrDestinationNotDirectory is returned when several sources, or a
// directory, target an existing non-directory.
var ErrDestinationNotDirectory = errors.New("destination is not a directory")

// ⚖️ ErrorKind separates errors the run survives from those that stop it
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindFatal
)

// String returns a string representation of ErrorKind
func (k ErrorKind) String() string {
	if k == KindFatal {
		return "fatal"
	}
	return "transient"
}

// Classify decides whether err must stop the run. A full or read-only
// destination affects every remaining file, everything else is per file.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindTransient
	case errors.Is(err, syscall.ENOSPC),
		errors.Is(err, syscall.EROFS):
		return KindFatal
	default:
		return KindTransient
	}
}

// ❌ FileError records a path that could not be transferred
type FileError struct {
	Path string // Source path
	Dest string // Destination path
	Kind ErrorKind
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s -> %s: %s", e.Path, e.Dest, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// 💥 FatalError stops the copy loop. Cleanup is skipped.
type FatalError struct {
	*FileError
}

func (e *FatalError) Error() string {
	return "fatal: " + e.FileError.Error()
}

func (e *FatalError) Unwrap() error {
	return e.FileError
}

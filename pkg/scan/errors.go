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

package scan

import (
	"fmt"
	"io/fs"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ ErrorKind classifies a non-fatal problem met while scanning.
type ErrorKind int

const (
	KindOther       ErrorKind = iota
	KindVanished              // Entry disappeared between listing and stat
	KindPermission            // Entry could not be read
	KindUnsupported           // Entry is neither a regular file nor a directory
)

// String returns a string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindVanished:
		return "vanished"
	case KindPermission:
		return "permission denied"
	case KindUnsupported:
		return "unsupported file type"
	default:
		return "error"
	}
}

// ⚠️ ScanError records a path the scanner had to leave out of the manifest.
type ScanError struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Kind)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

func newScanError(path string, err error) *ScanError {
	return &ScanError{Path: path, Kind: KindOf(err), Err: err}
}

// KindOf classifies a filesystem error for diagnostics.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindVanished
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	case errors.Is(err, errUnsupported):
		return KindUnsupported
	default:
		return KindOther
	}
}

var errUnsupported = errors.New("not a regular file or directory")

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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNoMatch is returned when a glob SOURCE matches nothing.
	ErrNoMatch = errors.New("no matching found")
	// ErrInvalidSource is returned when a plain SOURCE does not exist.
	ErrInvalidSource = errors.New("invalid source")
)

// 🎯 SourceError ties an expansion failure to the argument that caused it.
type SourceError struct {
	Arg string
	Err error
}

func (e *SourceError) Error() string {
	return e.Arg + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsGlob reports whether arg contains glob metacharacters.
func IsGlob(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}

// 🌟 Expand resolves one SOURCE argument into absolute root paths. Globs
// (including "**") are expanded and sorted; a plain argument must exist.
func Expand(arg string) ([]string, error) {
	if !IsGlob(arg) {
		if _, err := os.Lstat(arg); err != nil {
			return nil, &SourceError{Arg: arg, Err: ErrInvalidSource}
		}
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, errors.Errorf("resolving %s: %w", arg, err)
		}
		return []string{abs}, nil
	}

	matches, err := doublestar.FilepathGlob(arg)
	if err != nil {
		return nil, &SourceError{Arg: arg, Err: errors.Errorf("%w: %s", ErrInvalidSource, err.Error())}
	}
	if len(matches) == 0 {
		return nil, &SourceError{Arg: arg, Err: ErrNoMatch}
	}

	roots := make([]string, 0, len(matches))
	for _, match := range matches {
		abs, err := filepath.Abs(match)
		if err != nil {
			return nil, errors.Errorf("resolving %s: %w", match, err)
		}
		roots = append(roots, abs)
	}
	sort.Strings(roots)
	return roots, nil
}

// 🌟 ExpandAll expands every argument in order. A root named twice (for
// example by a glob and explicitly) is kept once, at its first position.
func ExpandAll(args []string) ([]string, error) {
	var roots []string
	seen := map[string]bool{}
	for _, arg := range args {
		expanded, err := Expand(arg)
		if err != nil {
			return nil, err
		}
		for _, root := range expanded {
			if seen[root] {
				continue
			}
			seen[root] = true
			roots = append(roots, root)
		}
	}
	return roots, nil
}

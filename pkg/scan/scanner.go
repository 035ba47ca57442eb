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
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔍 Scan walks root and returns its manifest together with every entry it
// had to leave out. A bad entry never stops the walk; only cancellation of
// ctx does, in which case the partial manifest is returned with ctx's error.
//
// The root directory itself is not counted. A root that is a regular file
// yields a manifest holding exactly that file. A root that is a symlink to a
// directory is walked through the link; entries are reported below root.
func Scan(ctx context.Context, root string) (*Manifest, []*ScanError, error) {
	logger := zerolog.Ctx(ctx)
	root = filepath.Clean(root)

	m := &Manifest{}
	rm := RootManifest{Root: root}
	var scanErrs []*ScanError

	info, err := os.Stat(root)
	if err != nil {
		rm.Missing = true
		m.Roots = append(m.Roots, rm)
		return m, append(scanErrs, newScanError(root, err)), nil
	}

	switch {
	case info.Mode().IsRegular():
		rm.IsFile = true
		m.addFile(root, root, info)
	case info.IsDir():
		// WalkDir does not follow a symlinked root, so walk its target
		walkRoot, rerr := resolveRoot(root)
		if rerr != nil {
			rm.Missing = true
			m.Roots = append(m.Roots, rm)
			return m, append(scanErrs, newScanError(root, rerr)), nil
		}
		err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if path == walkRoot && walkErr == nil {
				return nil
			}
			path = rebase(path, walkRoot, root)
			if walkErr != nil {
				// unreadable directories are reported and their contents skipped
				scanErrs = append(scanErrs, newScanError(path, walkErr))
				return nil
			}

			switch {
			case d.IsDir():
				m.addDir(root, path)
			case d.Type().IsRegular():
				fi, err := d.Info()
				if err != nil {
					scanErrs = append(scanErrs, newScanError(path, err))
					return nil
				}
				m.addFile(root, path, fi)
			default:
				logger.Debug().Str("path", path).Str("type", d.Type().String()).Msg("skipping non-regular entry")
				scanErrs = append(scanErrs, newScanError(path, errors.Errorf("%s: %w", d.Type(), errUnsupported)))
			}
			return nil
		})
	default:
		scanErrs = append(scanErrs, newScanError(root, errors.Errorf("%s: %w", info.Mode().Type(), errUnsupported)))
	}

	rm.Dirs, rm.Files, rm.TotalSize = m.Dirs, m.Files, m.TotalSize
	m.Roots = append(m.Roots, rm)

	logger.Debug().
		Str("root", root).
		Int("dirs", rm.Dirs).
		Int("files", rm.Files).
		Int64("bytes", rm.TotalSize).
		Int("errors", len(scanErrs)).
		Msg("scanned source root")

	if err != nil {
		return m, scanErrs, errors.Errorf("scanning %s: %w", root, err)
	}
	return m, scanErrs, nil
}

// resolveRoot returns the directory to walk for root: root itself, or the
// target when root is a symlink.
func resolveRoot(root string) (string, error) {
	linfo, err := os.Lstat(root)
	if err != nil {
		return "", err
	}
	if linfo.Mode()&fs.ModeSymlink == 0 {
		return root, nil
	}
	target, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", errors.Errorf("resolving symlinked root: %w", err)
	}
	return target, nil
}

// rebase moves path from below walkRoot to below root.
func rebase(path, walkRoot, root string) string {
	if walkRoot == root {
		return path
	}
	rel, err := filepath.Rel(walkRoot, path)
	if err != nil {
		return path
	}
	return filepath.Join(root, rel)
}

// 🔍 ScanAll scans every root independently and merges the results in
// argument order.
func ScanAll(ctx context.Context, roots []string) (*Manifest, []*ScanError, error) {
	merged := &Manifest{}
	var scanErrs []*ScanError
	for _, root := range roots {
		m, errs, err := Scan(ctx, root)
		merged.Merge(m)
		scanErrs = append(scanErrs, errs...)
		if err != nil {
			return merged, scanErrs, err
		}
	}
	return merged, scanErrs, nil
}

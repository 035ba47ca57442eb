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
	"io/fs"
	"path/filepath"
)

// 📄 Entry is one path discovered under a source root.
type Entry struct {
	Root string // Source root the entry was found under
	Path string // Absolute (or root-relative, matching Root) path
	Size int64  // Size in bytes at scan time, zero for directories
}

// 🌱 RootManifest summarizes one scanned source root.
type RootManifest struct {
	Root      string
	IsFile    bool  // Root itself is a regular file
	Missing   bool  // Root could not be stat'ed at all
	Dirs      int   // Directories below the root
	Files     int   // Regular files below (or equal to) the root
	TotalSize int64 // Sum of the regular files' sizes
}

// 📋 Manifest is the enumerated result of scanning one or more roots.
//
// Dirs, Files and TotalSize are independent counters; there is no combined
// "objects" total. Entries keep their owning root so merged manifests can
// still be mapped and cleaned up per root.
type Manifest struct {
	Dirs      int
	Files     int
	TotalSize int64

	DirEntries  []Entry
	FileEntries []Entry
	Roots       []RootManifest
}

// DirPaths returns the directory paths in scan order.
func (m *Manifest) DirPaths() []string {
	return paths(m.DirEntries)
}

// FilePaths returns the file paths in scan order.
func (m *Manifest) FilePaths() []string {
	return paths(m.FileEntries)
}

// Root returns the summary for root, if it was scanned.
func (m *Manifest) Root(root string) (RootManifest, bool) {
	root = filepath.Clean(root)
	for _, r := range m.Roots {
		if r.Root == root {
			return r, true
		}
	}
	return RootManifest{}, false
}

// ➕ Merge adds other into m: counters are summed and sequences concatenated.
func (m *Manifest) Merge(other *Manifest) {
	if other == nil {
		return
	}
	m.Dirs += other.Dirs
	m.Files += other.Files
	m.TotalSize += other.TotalSize
	m.DirEntries = append(m.DirEntries, other.DirEntries...)
	m.FileEntries = append(m.FileEntries, other.FileEntries...)
	m.Roots = append(m.Roots, other.Roots...)
}

func (m *Manifest) addDir(root, path string) {
	m.Dirs++
	m.DirEntries = append(m.DirEntries, Entry{Root: root, Path: path})
}

func (m *Manifest) addFile(root, path string, info fs.FileInfo) {
	m.Files++
	m.TotalSize += info.Size()
	m.FileEntries = append(m.FileEntries, Entry{Root: root, Path: path, Size: info.Size()})
}

func paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

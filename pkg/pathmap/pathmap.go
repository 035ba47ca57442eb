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

// Package pathmap relocates source paths under a destination root while
// preserving their structure. Everything here is pure string work; nothing
// touches the filesystem.
package pathmap

import (
	"path/filepath"
	"strings"
)

const sep = string(filepath.Separator)

// 🌳 CommonAncestor returns the deepest directory that prefixes both a and b.
// Two relative paths with nothing in common share ".".
func CommonAncestor(a, b string) string {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return a
	}
	vol := filepath.VolumeName(a)
	if vol != filepath.VolumeName(b) {
		return ""
	}

	as := strings.Split(a, sep)
	bs := strings.Split(b, sep)
	n := 0
	for n < len(as) && n < len(bs) && as[n] == bs[n] {
		n++
	}
	if n == 0 {
		return "."
	}

	common := strings.Join(as[:n], sep)
	if common == vol {
		// only the filesystem root is shared
		return vol + sep
	}
	return common
}

// 🗺️ Map computes where path lands under destRoot when it was discovered
// beneath sourceRoot. When path is sourceRoot itself (a file root) the
// relative part is the file's own name rather than ".".
func Map(path, sourceRoot, destRoot string) string {
	path = filepath.Clean(path)
	base := CommonAncestor(sourceRoot, path)

	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." {
		rel = filepath.Base(path)
	}
	return filepath.Join(destRoot, rel)
}

// 📦 RootDest decides the destination root a source root maps onto.
//
// A file root always lands inside dest. A directory root lands inside dest
// (dest/<name>) when into is set, which is the case when dest already is a
// directory or several sources are transferred at once; otherwise the
// directory becomes dest.
func RootDest(root string, isFile bool, dest string, into bool) string {
	dest = filepath.Clean(dest)
	if isFile || !into {
		return dest
	}
	return filepath.Join(dest, filepath.Base(filepath.Clean(root)))
}

// HasPrefix reports whether path equals root or sits beneath it.
func HasPrefix(path, root string) bool {
	path, root = filepath.Clean(path), filepath.Clean(root)
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}

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
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/walteh/cpg/pkg/fileops"
	"github.com/walteh/cpg/pkg/log"
	"github.com/walteh/cpg/pkg/progress"
	"github.com/walteh/cpg/pkg/scan"
)

func setupTestContext(t *testing.T) context.Context {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func writeTree(t *testing.T, root string, files map[string]string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// listFiles returns the regular files below root, relative and sorted.
func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

// recorder collects every rendered snapshot.
type recorder struct {
	mu    sync.Mutex
	snaps []progress.Snapshot
}

func (r *recorder) render(s progress.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []progress.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progress.Snapshot(nil), r.snaps...)
}

// hookFiles wraps the local filesystem with test hooks around CopyFile.
type hookFiles struct {
	*fileops.OS
	failCopy  func(src string) error
	afterCopy func(src string, err error)
}

func (h *hookFiles) CopyFile(ctx context.Context, src, dst string) error {
	if h.failCopy != nil {
		if err := h.failCopy(src); err != nil {
			return err
		}
	}
	err := h.OS.CopyFile(ctx, src, dst)
	if h.afterCopy != nil {
		h.afterCopy(src, err)
	}
	return err
}

// mockFileManager is a testify mock of fileops.FileManager.
type mockFileManager struct {
	mock.Mock
}

func (m *mockFileManager) CopyFile(ctx context.Context, src, dst string) error {
	return m.Called(ctx, src, dst).Error(0)
}

func (m *mockFileManager) MakeDirs(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *mockFileManager) RemoveTree(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *mockFileManager) Size(path string) (int64, error) {
	args := m.Called(path)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockFileManager) Stat(path string) (fs.FileInfo, error) {
	args := m.Called(path)
	info, _ := args.Get(0).(fs.FileInfo)
	return info, args.Error(1)
}

// sampleTree is a directory with three files of 10, 20 and 30 bytes, the
// last one inside a subdirectory.
var sampleTree = map[string]string{
	"a.txt":        "0123456789",
	"b.txt":        "01234567890123456789",
	"nested/c.txt": "012345678901234567890123456789",
}

func newDriver(t *testing.T, mode Mode, files fileops.FileManager, rec *recorder) *Driver {
	t.Helper()
	opts := Options{
		Mode:     mode,
		Files:    files,
		Interval: 5 * time.Millisecond,
		Width:    func() int { return 80 },
	}
	if rec != nil {
		opts.Render = rec.render
	}
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func TestRunTree(t *testing.T) {
	tests := []struct {
		name        string
		mode        Mode
		wantRemoved bool
	}{
		{name: "copy_keeps_source", mode: ModeCopy},
		{name: "move_removes_source", mode: ModeMove, wantRemoved: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := setupTestContext(t)
			tmp := t.TempDir()
			src := filepath.Join(tmp, "src")
			dest := filepath.Join(tmp, "dest")
			writeTree(t, src, sampleTree, "empty")

			rec := &recorder{}
			res, err := newDriver(t, tt.mode, nil, rec).Run(ctx, []string{src}, dest)
			require.NoError(t, err)

			assert.Equal(t, StateDone, res.State)
			assert.True(t, res.OK(), "run should be clean")
			assert.Equal(t, 3, res.Copied)
			assert.Empty(t, res.Failed)
			assert.Equal(t, 3, res.Final.FilesDone, "files done should reach the total")
			assert.Equal(t, int64(60), res.Final.BytesDone, "bytes done should reach the total")
			assert.Equal(t, 2, res.Manifest.Dirs, "empty and nested are counted")

			// destination is the source tree byte for byte
			assert.Equal(t, []string{"a.txt", "b.txt", "nested/c.txt"}, listFiles(t, dest))
			for name, content := range sampleTree {
				got, err := os.ReadFile(filepath.Join(dest, name))
				require.NoError(t, err)
				assert.Equal(t, content, string(got), "content of %s should match", name)
			}
			assert.DirExists(t, filepath.Join(dest, "empty"), "empty directories are recreated")

			if tt.wantRemoved {
				assert.NoDirExists(t, src, "move should remove the source")
				assert.True(t, res.SourceRemoved)
			} else {
				assert.Equal(t, []string{"a.txt", "b.txt", "nested/c.txt"}, listFiles(t, src))
				assert.False(t, res.SourceRemoved)
			}

			snaps := rec.all()
			require.NotEmpty(t, snaps, "the final render always happens")
			last := snaps[len(snaps)-1]
			assert.Equal(t, 3, last.FilesDone)
			assert.Equal(t, int64(60), last.BytesDone)
			assert.False(t, last.Running)
			for i := 1; i < len(snaps); i++ {
				assert.GreaterOrEqual(t, snaps[i].BytesDone, snaps[i-1].BytesDone, "bytes done never decreases")
				assert.LessOrEqual(t, snaps[i].BytesDone, snaps[i].BytesTotal, "bytes done never exceeds the total")
			}
		})
	}
}

func TestRunSymlinkedSourceDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	ctx := setupTestContext(t)
	tmp := t.TempDir()
	target := filepath.Join(tmp, "real")
	link := filepath.Join(tmp, "link")
	dest := filepath.Join(tmp, "dest")
	writeTree(t, target, sampleTree)
	require.NoError(t, os.Symlink(target, link))

	res, err := newDriver(t, ModeMove, nil, nil).Run(ctx, []string{link}, dest)
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.True(t, res.OK())
	assert.Equal(t, 3, res.Manifest.Files, "files behind the link are scanned")
	assert.Equal(t, 3, res.Copied)
	assert.Equal(t, []string{"a.txt", "b.txt", "nested/c.txt"}, listFiles(t, dest))

	// the link is the moved source; the tree it pointed at is left alone
	_, lerr := os.Lstat(link)
	assert.ErrorIs(t, lerr, fs.ErrNotExist)
	assert.Equal(t, []string{"a.txt", "b.txt", "nested/c.txt"}, listFiles(t, target))
}

func TestRunIntoExistingDirectory(t *testing.T) {
	ctx := setupTestContext(t)
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dest := filepath.Join(tmp, "dest")
	writeTree(t, src, sampleTree)
	require.NoError(t, os.MkdirAll(dest, 0o755))

	res, err := newDriver(t, ModeCopy, nil, nil).Run(ctx, []string{src}, dest)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Copied)
	assert.Equal(t, []string{"src/a.txt", "src/b.txt", "src/nested/c.txt"}, listFiles(t, dest))
}

func TestRunRateTracksThroughput(t *testing.T) {
	ctx := setupTestContext(t)
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")

	const count, size = 40, 1000
	tree := map[string]string{}
	for i := 0; i < count; i++ {
		tree[fmt.Sprintf("f%02d.bin", i)] = strings.Repeat("x", size)
	}
	writeTree(t, src, tree)

	// every copy finishes between ticks, so no file is ever seen growing
	files := &hookFiles{
		OS: fileops.NewOS(),
		failCopy: func(string) error {
			time.Sleep(3 * time.Millisecond)
			return nil
		},
	}
	rec := &recorder{}
	d, err := New(Options{
		Mode:     ModeCopy,
		Files:    files,
		Interval: 10 * time.Millisecond,
		Window:   5,
		Width:    func() int { return 80 },
		Render:   rec.render,
	})
	require.NoError(t, err)

	start := time.Now()
	res, err := d.Run(ctx, []string{src}, filepath.Join(tmp, "dest"))
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Equal(t, count, res.Copied)

	actual := float64(count*size) / elapsed.Seconds()
	var best float64
	running := 0
	for _, s := range rec.all() {
		if !s.Running {
			continue
		}
		running++
		best = max(best, s.Rate)
	}
	require.Positive(t, running, "the sampler rendered while copying")
	assert.GreaterOrEqual(t, best, actual/4, "rate %.0f B/s is far below the measured %.0f B/s", best, actual)
}

func TestRunLogsStateTransitions(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	zbuf := &bytes.Buffer{}
	ctx := zerolog.New(zbuf).Level(zerolog.DebugLevel).WithContext(context.Background())
	console := &bytes.Buffer{}
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	writeTree(t, src, sampleTree)

	d, err := New(Options{
		Mode:     ModeCopy,
		Interval: 5 * time.Millisecond,
		Width:    func() int { return 80 },
		Logger:   log.New(console, zerolog.New(io.Discard).Level(zerolog.DebugLevel)),
	})
	require.NoError(t, err)
	_, err = d.Run(ctx, []string{src}, filepath.Join(tmp, "dest"))
	require.NoError(t, err)

	logs := zbuf.String()
	assert.Contains(t, logs, `"from":"pending","to":"scanning"`)
	assert.Contains(t, logs, `"level":"info","mode":"cp","from":"copying","to":"done"`)
	assert.NotContains(t, logs, `"from":"scanning","to":"scanning"`, "a state never transitions to itself")

	assert.Contains(t, console.String(), "✓ copied     "+filepath.Join(src, "a.txt"), "copied files are listed at debug level")
}

func TestRunUsesContextLogger(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	console := &bytes.Buffer{}
	ctx := log.NewContext(setupTestContext(t), log.New(console, zerolog.Nop()))
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	writeTree(t, src, sampleTree)

	_, err := newDriver(t, ModeCopy, nil, nil).Run(ctx, []string{src}, filepath.Join(tmp, "dest"))
	require.NoError(t, err)

	assert.Contains(t, console.String(), "Counting objects in folder..")
	assert.Contains(t, console.String(), "Copying files: 3")
}

func TestRunGlobSources(t *testing.T) {
	ctx := setupTestContext(t)
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{
		"one.txt":   "1111",
		"two.txt":   "222222",
		"other.log": "skip",
	})
	dest := filepath.Join(tmp, "dest")

	sources, err := scan.ExpandAll([]string{filepath.Join(tmp, "*.txt")})
	require.NoError(t, err)
	require.Len(t, sources, 2)

	res, err := newDriver(t, ModeCopy, nil, nil).Run(ctx, sources, dest)
	require.NoError(t, err)

	assert.Equal(t, []string{"one.txt", "two.txt"}, listFiles(t, dest), "both matches land inside dest")
	assert.Equal(t, 2, res.Manifest.Files, "counts add up across roots")
	assert.Equal(t, int64(10), res.Manifest.TotalSize, "sizes add up across roots")
	assert.Len(t, res.Manifest.Roots, 2)
	assert.Equal(t, 2, res.Final.FilesDone)
}

func TestRunInterruptedMove(t *testing.T) {
	base := setupTestContext(t)
	ctx, cancel := context.WithCancel(base)
	defer cancel()

	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dest := filepath.Join(tmp, "dest")
	writeTree(t, src, sampleTree, "empty")

	files := &hookFiles{
		OS: fileops.NewOS(),
		afterCopy: func(string, error) {
			cancel()
		},
	}

	rec := &recorder{}
	res, err := newDriver(t, ModeMove, files, rec).Run(ctx, []string{src}, dest)
	require.ErrorIs(t, err, ErrAborted)

	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, 1, res.Copied)
	assert.False(t, res.SourceRemoved, "an aborted move never deletes")
	assert.Equal(t, []string{"a.txt", "b.txt", "nested/c.txt"}, listFiles(t, src), "source tree is intact")
	assert.Equal(t, []string{"a.txt"}, listFiles(t, dest), "exactly the completed file arrived")
	assert.True(t, res.Final.Aborted)
	assert.Equal(t, 1, res.Final.FilesDone)

	for _, s := range rec.all() {
		assert.LessOrEqual(t, s.FilesDone, 1, "no completion render after an abort")
	}
}

func TestRunFatalError(t *testing.T) {
	ctx := setupTestContext(t)
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dest := filepath.Join(tmp, "dest")
	writeTree(t, src, sampleTree)

	files := &mockFileManager{}
	files.On("Stat", dest).Return(nil, fs.ErrNotExist)
	files.On("MakeDirs", mock.Anything, mock.Anything).Return(nil)
	files.On("Size", mock.Anything).Return(int64(0), fs.ErrNotExist).Maybe()
	files.On("CopyFile", mock.Anything, mock.Anything, mock.Anything).
		Return(&fs.PathError{Op: "write", Path: dest, Err: syscall.ENOSPC})

	res, err := newDriver(t, ModeMove, files, nil).Run(ctx, []string{src}, dest)
	require.Error(t, err)

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, KindFatal, fatal.Kind)
	assert.ErrorIs(t, err, syscall.ENOSPC)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 0, res.Copied)
	require.Len(t, res.Failed, 1)

	files.AssertNumberOfCalls(t, "CopyFile", 1)
	files.AssertNotCalled(t, "RemoveTree", mock.Anything, mock.Anything)
	assert.DirExists(t, src)
}

func TestRunTransientFailureKeepsSource(t *testing.T) {
	ctx := setupTestContext(t)
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dest := filepath.Join(tmp, "dest")
	writeTree(t, src, sampleTree)

	bad := filepath.Join(src, "b.txt")
	files := &hookFiles{
		OS: fileops.NewOS(),
		failCopy: func(path string) error {
			if path == bad {
				return &fs.PathError{Op: "open", Path: path, Err: fs.ErrPermission}
			}
			return nil
		},
	}

	color.NoColor = true
	defer func() { color.NoColor = false }()
	console := &bytes.Buffer{}
	d, err := New(Options{
		Mode:     ModeMove,
		Files:    files,
		Interval: 5 * time.Millisecond,
		Width:    func() int { return 80 },
		Logger:   log.New(console, zerolog.Nop()),
	})
	require.NoError(t, err)

	res, err := d.Run(ctx, []string{src}, dest)
	require.NoError(t, err, "per file failures do not fail the run")

	assert.Equal(t, StateDone, res.State)
	assert.False(t, res.OK())
	assert.Equal(t, 2, res.Copied, "the loop continues after a failure")
	require.Len(t, res.Failed, 1)
	assert.Equal(t, bad, res.Failed[0].Path)
	assert.Equal(t, KindTransient, res.Failed[0].Kind)
	assert.ErrorIs(t, res.Failed[0], fs.ErrPermission)

	assert.False(t, res.SourceRemoved, "a move with failures keeps its source")
	assert.FileExists(t, bad)
	assert.Equal(t, []string{"a.txt", "nested/c.txt"}, listFiles(t, dest))

	out := console.String()
	assert.Contains(t, out, "Counting objects in folder..")
	assert.Contains(t, out, "Copying files: 3; Size: 60b")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "(permission)")
	assert.Contains(t, out, "keeping source")
}

func TestRunMissingRoot(t *testing.T) {
	ctx := setupTestContext(t)
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dest := filepath.Join(tmp, "dest")
	writeTree(t, src, sampleTree)

	res, err := newDriver(t, ModeMove, nil, nil).Run(ctx, []string{src, filepath.Join(tmp, "gone")}, dest)
	require.NoError(t, err)

	require.Len(t, res.ScanErrors, 1)
	assert.Equal(t, scan.KindVanished, res.ScanErrors[0].Kind)
	assert.Equal(t, []string{"src/a.txt", "src/b.txt", "src/nested/c.txt"}, listFiles(t, dest))
	assert.DirExists(t, src, "scan errors keep the source of a move")
	assert.False(t, res.OK())
}

func TestRunAllRootsMissing(t *testing.T) {
	ctx := setupTestContext(t)
	tmp := t.TempDir()
	dest := filepath.Join(tmp, "dest")

	res, err := newDriver(t, ModeCopy, nil, nil).Run(ctx, []string{filepath.Join(tmp, "gone")}, dest)
	require.NoError(t, err)

	assert.Len(t, res.ScanErrors, 1)
	assert.NoDirExists(t, dest, "nothing to copy, nothing created")
}

func TestRunSingleFile(t *testing.T) {
	tests := []struct {
		name     string
		dest     func(tmp string) string
		setup    func(t *testing.T, tmp string)
		wantPath string
	}{
		{
			name:     "new_name",
			dest:     func(tmp string) string { return filepath.Join(tmp, "copy.txt") },
			wantPath: "copy.txt",
		},
		{
			name: "replace_existing_file",
			dest: func(tmp string) string { return filepath.Join(tmp, "copy.txt") },
			setup: func(t *testing.T, tmp string) {
				require.NoError(t, os.WriteFile(filepath.Join(tmp, "copy.txt"), []byte("old content that is longer"), 0o644))
			},
			wantPath: "copy.txt",
		},
		{
			name:     "trailing_separator_creates_directory",
			dest:     func(tmp string) string { return filepath.Join(tmp, "out") + string(filepath.Separator) },
			wantPath: "out/a.txt",
		},
		{
			name: "into_existing_directory",
			dest: func(tmp string) string { return filepath.Join(tmp, "out") },
			setup: func(t *testing.T, tmp string) {
				require.NoError(t, os.MkdirAll(filepath.Join(tmp, "out"), 0o755))
			},
			wantPath: "out/a.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := setupTestContext(t)
			tmp := t.TempDir()
			src := filepath.Join(tmp, "a.txt")
			require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))
			if tt.setup != nil {
				tt.setup(t, tmp)
			}

			res, err := newDriver(t, ModeCopy, nil, nil).Run(ctx, []string{src}, tt.dest(tmp))
			require.NoError(t, err)
			assert.Equal(t, 1, res.Copied)

			got, err := os.ReadFile(filepath.Join(tmp, filepath.FromSlash(tt.wantPath)))
			require.NoError(t, err)
			assert.Equal(t, "hello", string(got))
		})
	}
}

func TestRunRejectsDestinations(t *testing.T) {
	tests := []struct {
		name    string
		sources func(tmp string) []string
		dest    func(tmp string) string
		wantErr error
	}{
		{
			name:    "directory_onto_file",
			sources: func(tmp string) []string { return []string{filepath.Join(tmp, "src")} },
			dest:    func(tmp string) string { return filepath.Join(tmp, "file.txt") },
			wantErr: ErrDestinationNotDirectory,
		},
		{
			name:    "directory_into_itself",
			sources: func(tmp string) []string { return []string{filepath.Join(tmp, "src")} },
			dest:    func(tmp string) string { return filepath.Join(tmp, "src", "nested") },
			wantErr: ErrDestinationInsideSource,
		},
		{
			name:    "file_onto_itself",
			sources: func(tmp string) []string { return []string{filepath.Join(tmp, "file.txt")} },
			dest:    func(tmp string) string { return filepath.Join(tmp, "file.txt") },
			wantErr: ErrSameFile,
		},
		{
			name:    "file_into_own_directory",
			sources: func(tmp string) []string { return []string{filepath.Join(tmp, "file.txt")} },
			dest:    func(tmp string) string { return tmp },
			wantErr: ErrSameFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := setupTestContext(t)
			tmp := t.TempDir()
			writeTree(t, tmp, map[string]string{"file.txt": "keep"})
			writeTree(t, filepath.Join(tmp, "src"), sampleTree)

			res, err := newDriver(t, ModeMove, nil, nil).Run(ctx, tt.sources(tmp), tt.dest(tmp))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, 0, res.Copied)

			got, err := os.ReadFile(filepath.Join(tmp, "file.txt"))
			require.NoError(t, err)
			assert.Equal(t, "keep", string(got), "nothing is touched")
			assert.DirExists(t, filepath.Join(tmp, "src"))
		})
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(setupTestContext(t))
	cancel()

	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	writeTree(t, src, sampleTree)

	res, err := newDriver(t, ModeMove, nil, nil).Run(ctx, []string{src}, filepath.Join(tmp, "dest"))
	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, StateAborted, res.State)
	assert.NoDirExists(t, filepath.Join(tmp, "dest"))
	assert.DirExists(t, src)
}

func TestNew(t *testing.T) {
	_, err := New(Options{Mode: Mode(7)})
	assert.Error(t, err, "unknown modes are rejected")

	_, err = New(Options{Mode: ModeCopy, Interval: -time.Second})
	assert.Error(t, err, "negative intervals are rejected")

	d, err := New(Options{Mode: ModeMove})
	require.NoError(t, err)
	assert.NotNil(t, d.files, "the local filesystem is the default")
}

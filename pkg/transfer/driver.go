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

// Package transfer drives a cp or mv run: scan the sources, create the
// destination directories, copy every file in manifest order while a
// background sampler renders progress, and for a move remove the sources
// once everything arrived.
package transfer

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/cpg/pkg/fileops"
	"github.com/walteh/cpg/pkg/log"
	"github.com/walteh/cpg/pkg/pathmap"
	"github.com/walteh/cpg/pkg/progress"
	"github.com/walteh/cpg/pkg/scan"
	"github.com/walteh/cpg/pkg/units"
)

// 🔧 Options configures a Driver
type Options struct {
	Mode     Mode
	Files    fileops.FileManager // Defaults to the local filesystem
	Interval time.Duration       // Sampler tick
	Window   int                 // Samples averaged for the rate
	Width    progress.WidthFunc  // Defaults to the terminal width
	Render   progress.RenderFunc // Receives every snapshot; nil renders nothing
	Logger   *log.Logger         // Console diagnostics; nil uses the logger carried by ctx
}

// 📋 Result describes a finished, aborted or failed run
type Result struct {
	Mode          Mode
	State         State
	Sources       []string
	Destination   string
	Manifest      *scan.Manifest
	ScanErrors    []*scan.ScanError
	Copied        int
	Failed        []*FileError
	SourceRemoved bool
	Final         progress.Snapshot
	Started       time.Time
	Elapsed       time.Duration
}

// OK reports whether every scanned entry arrived.
func (r *Result) OK() bool {
	return r.State == StateDone && len(r.Failed) == 0 && len(r.ScanErrors) == 0
}

// 🚚 Driver runs transfers
type Driver struct {
	opts   Options
	files  fileops.FileManager
	logger *log.Logger
}

// 🏭 New creates a driver
func New(opts Options) (*Driver, error) {
	if opts.Mode != ModeCopy && opts.Mode != ModeMove {
		return nil, errors.Errorf("unknown mode %d", opts.Mode)
	}
	if opts.Interval < 0 {
		return nil, errors.Errorf("negative sampler interval %s", opts.Interval)
	}
	if opts.Files == nil {
		opts.Files = fileops.NewOS()
	}
	if opts.Width == nil {
		opts.Width = progress.TerminalWidth
	}
	return &Driver{opts: opts, files: opts.Files, logger: opts.Logger}, nil
}

// run carries the state of one Run call.
type run struct {
	*Driver
	res    *Result
	logger *log.Logger

	rawDest    string
	destExists bool
	destIsDir  bool
	targets    map[string]string // source root -> destination root
	onto       string            // set when a lone file source becomes dest itself
}

// 🏃 Run transfers sources into dest.
//
// Per entry problems are collected in the result and never stop the run.
// Run returns ErrAborted when ctx is cancelled, a *FatalError when the
// destination can take no more files, and a plain error for arguments that
// cannot be transferred at all. The result is non-nil in every case.
func (d *Driver) Run(ctx context.Context, sources []string, dest string) (*Result, error) {
	r := &run{
		Driver:  d,
		logger:  d.logger,
		rawDest: dest,
		targets: map[string]string{},
		res: &Result{
			Mode:        d.opts.Mode,
			Sources:     sources,
			Destination: dest,
			Started:     time.Now(),
		},
	}
	if r.logger == nil {
		r.logger = log.Ctx(ctx)
	}
	defer func() { r.res.Elapsed = time.Since(r.res.Started) }()

	err := r.absolute()
	if err == nil {
		err = r.execute(ctx)
	}
	switch {
	case err == nil:
		r.setState(ctx, StateDone)
	case errors.Is(err, ErrAborted):
		r.setState(ctx, StateAborted)
	default:
		r.setState(ctx, StateFailed)
	}
	return r.res, err
}

func (r *run) setState(ctx context.Context, s State) {
	if r.res.State == s {
		return
	}
	e := zerolog.Ctx(ctx).Debug()
	if s.Terminal() {
		e = zerolog.Ctx(ctx).Info()
	}
	e.Str("mode", r.res.Mode.String()).
		Str("from", r.res.State.String()).
		Str("to", s.String()).
		Msg("transfer state")
	r.res.State = s
}

// absolute makes every path absolute so roots and targets compare.
func (r *run) absolute() error {
	if len(r.res.Sources) == 0 {
		return errors.New("no sources")
	}
	abs := make([]string, len(r.res.Sources))
	for i, src := range r.res.Sources {
		a, err := filepath.Abs(src)
		if err != nil {
			return errors.Errorf("resolving source %s: %w", src, err)
		}
		abs[i] = a
	}
	dest, err := filepath.Abs(r.res.Destination)
	if err != nil {
		return errors.Errorf("resolving destination %s: %w", r.res.Destination, err)
	}
	r.res.Sources, r.res.Destination = abs, dest
	return nil
}

func (r *run) execute(ctx context.Context) error {
	r.setState(ctx, StateScanning)
	if err := r.scan(ctx); err != nil {
		return err
	}
	if err := r.plan(ctx); err != nil {
		return err
	}

	m := r.res.Manifest
	r.logger.Headerf("Copying files: %d; Size: %s", m.Files, units.Size(m.TotalSize))

	r.setState(ctx, StateDirectoryCreation)
	if err := r.createDirectories(ctx); err != nil {
		return err
	}

	r.setState(ctx, StateCopying)
	if err := r.copyFiles(ctx); err != nil {
		return err
	}

	if r.opts.Mode == ModeMove {
		r.setState(ctx, StateCleanup)
		r.cleanup(ctx)
	}
	return nil
}

// 🔍 scan builds the merged manifest and reports every skipped entry.
func (r *run) scan(ctx context.Context) error {
	r.logger.Status("Counting objects in folder..")

	m, scanErrs, err := scan.ScanAll(ctx, r.res.Sources)
	r.res.Manifest = m
	r.res.ScanErrors = scanErrs
	for _, se := range scanErrs {
		r.logger.LogFileEvent(ctx, log.FileEvent{
			Path:   se.Path,
			Kind:   log.EventSkipped,
			Reason: se.Kind.String(),
			Err:    se.Err,
		})
	}
	if err != nil {
		if ctx.Err() != nil {
			return ErrAborted
		}
		return errors.Errorf("scanning sources: %w", err)
	}
	return nil
}

// 🗺️ plan decides where each source root lands.
func (r *run) plan(ctx context.Context) error {
	dest := r.res.Destination
	info, err := r.files.Stat(dest)
	switch {
	case err == nil:
		r.destExists = true
		r.destIsDir = info.IsDir()
	case errors.Is(err, fs.ErrNotExist):
	default:
		return errors.Errorf("checking destination %s: %w", dest, err)
	}

	var roots []scan.RootManifest
	for _, rm := range r.res.Manifest.Roots {
		if !rm.Missing {
			roots = append(roots, rm)
		}
	}

	// cp FILE TARGET replaces or creates TARGET itself unless TARGET is,
	// or is spelled as, a directory
	single := len(r.res.Sources) == 1 && len(roots) == 1 && roots[0].IsFile
	if single && !r.destIsDir && !hasTrailingSeparator(r.rawDest) {
		r.onto = dest
	} else if r.destExists && !r.destIsDir {
		return errors.Errorf("%s: %w", dest, ErrDestinationNotDirectory)
	}

	into := r.destIsDir || len(r.res.Sources) > 1
	for _, rm := range roots {
		target := pathmap.RootDest(rm.Root, rm.IsFile, dest, into)
		if !rm.IsFile && pathmap.HasPrefix(target, rm.Root) {
			return errors.Errorf("%s into %s: %w", rm.Root, target, ErrDestinationInsideSource)
		}
		if rm.IsFile && (r.onto == rm.Root || (r.onto == "" && pathmap.Map(rm.Root, rm.Root, target) == rm.Root)) {
			return errors.Errorf("%s: %w", rm.Root, ErrSameFile)
		}
		r.targets[rm.Root] = target
	}

	zerolog.Ctx(ctx).Debug().
		Str("destination", dest).
		Bool("exists", r.destExists).
		Bool("into", into).
		Interface("targets", r.targets).
		Msg("planned transfer")
	return nil
}

// destination maps a scanned entry onto its destination path.
func (r *run) destination(e scan.Entry) string {
	if r.onto != "" {
		return r.onto
	}
	return pathmap.Map(e.Path, e.Root, r.targets[e.Root])
}

// 📁 createDirectories creates the destination roots and every scanned
// directory below them.
func (r *run) createDirectories(ctx context.Context) error {
	if len(r.targets) == 0 || r.onto != "" {
		return nil
	}

	// file roots land inside their target, so every target is a directory
	var dirs []scan.Entry
	for _, rm := range r.res.Manifest.Roots {
		if target, ok := r.targets[rm.Root]; ok {
			dirs = append(dirs, scan.Entry{Root: rm.Root, Path: target})
		}
	}
	for _, e := range r.res.Manifest.DirEntries {
		dirs = append(dirs, scan.Entry{Root: e.Root, Path: r.destination(e)})
	}

	for _, e := range dirs {
		if ctx.Err() != nil {
			return ErrAborted
		}
		if err := r.files.MakeDirs(ctx, e.Path); err != nil {
			fe := &FileError{Path: e.Root, Dest: e.Path, Kind: Classify(err), Err: err}
			r.fail(ctx, fe)
			if fe.Kind == KindFatal {
				return &FatalError{FileError: fe}
			}
		}
	}
	return nil
}

// 📦 copyFiles copies the manifest's files in order while the sampler
// renders progress in the background.
func (r *run) copyFiles(ctx context.Context) (err error) {
	m := r.res.Manifest
	model := progress.NewModel(m.Files, m.TotalSize)
	sampler := progress.NewSampler(model, progress.SamplerOptions{
		Interval: r.opts.Interval,
		Window:   r.opts.Window,
		Size:     r.files.Size,
		Width:    r.opts.Width,
		Render:   r.opts.Render,
	})

	// the sampler outlives ctx so an interrupt is recorded on the model
	// before the sampler decides on its final render
	samplerCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(samplerCtx)
	g.Go(func() error {
		return sampler.Run(gctx)
	})
	defer func() {
		if err != nil {
			model.MarkAborted()
		} else {
			model.MarkDone()
		}
		stop()
		if werr := g.Wait(); werr != nil && err == nil {
			err = errors.Errorf("progress sampler: %w", werr)
		}
		r.res.Final = model.Snapshot()
	}()

	for _, e := range m.FileEntries {
		if ctx.Err() != nil {
			return ErrAborted
		}

		dst := r.destination(e)
		model.RecordFileStarted(dst)
		cerr := r.files.CopyFile(ctx, e.Path, dst)
		model.RecordFileDone(dst, e.Size)

		if cerr == nil {
			r.res.Copied++
			r.logger.LogFileEvent(ctx, log.FileEvent{Path: e.Path, Dest: dst, Kind: log.EventCopied})
			continue
		}
		if ctx.Err() != nil && errors.Is(cerr, ctx.Err()) {
			return ErrAborted
		}

		fe := &FileError{Path: e.Path, Dest: dst, Kind: r.classifyCopy(cerr, e), Err: cerr}
		r.fail(ctx, fe)
		if fe.Kind == KindFatal {
			return &FatalError{FileError: fe}
		}
	}
	return nil
}

// classifyCopy treats a destination root that disappeared during the run
// like a full disk: no later file can land there either.
func (r *run) classifyCopy(err error, e scan.Entry) ErrorKind {
	kind := Classify(err)
	if kind == KindTransient && errors.Is(err, fs.ErrNotExist) {
		root := r.targets[e.Root]
		if r.onto != "" {
			root = filepath.Dir(r.onto)
		}
		if _, serr := r.files.Stat(root); serr != nil {
			return KindFatal
		}
	}
	return kind
}

func hasTrailingSeparator(path string) bool {
	return strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator))
}

func (r *run) fail(ctx context.Context, fe *FileError) {
	r.res.Failed = append(r.res.Failed, fe)
	r.logger.LogFileEvent(ctx, log.FileEvent{
		Path:   fe.Path,
		Dest:   fe.Dest,
		Kind:   log.EventFailed,
		Reason: scan.KindOf(fe.Err).String(),
		Err:    fe.Err,
	})
}

// 🧹 cleanup removes every source root of a move, but only when the whole
// manifest arrived.
func (r *run) cleanup(ctx context.Context) {
	if n := len(r.res.Failed) + len(r.res.ScanErrors); n > 0 {
		r.logger.Warningf("keeping source: %d entries were not transferred", n)
		return
	}

	removed := 0
	for _, rm := range r.res.Manifest.Roots {
		if _, ok := r.targets[rm.Root]; !ok {
			continue
		}
		if err := r.files.RemoveTree(ctx, rm.Root); err != nil {
			r.fail(ctx, &FileError{Path: rm.Root, Kind: Classify(err), Err: err})
			continue
		}
		removed++
		r.logger.LogFileEvent(ctx, log.FileEvent{Path: rm.Root, Kind: log.EventRemoved})
	}
	r.res.SourceRemoved = removed > 0 && removed == len(r.targets)
}

// Package remap contains the remap command: it plans output paths for a file
// or a tree of compiled classes / dump sources and rewrites them on a bounded
// pool of workers.
package remap

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"github.com/aymanbagabas/go-udiff"
	"github.com/blacktop/asmremap/internal/magic"
	"github.com/blacktop/asmremap/internal/utils"
	"github.com/blacktop/asmremap/pkg/classfile"
	"github.com/blacktop/asmremap/pkg/hierarchy"
	"github.com/blacktop/asmremap/pkg/remap"
	"github.com/pkg/errors"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

const (
	classExt   = ".class"
	sourceExt  = ".java"
	dumpSuffix = "Dump"
)

// Config is the remap command configuration.
type Config struct {
	// package the rewritten dumps are placed in
	Package string `json:"package,omitempty"`
	// fully qualified class declaring the mapping function
	MapUtil string `json:"map_util,omitempty"`
	// name of the mapping function
	MapMethod string `json:"map_method,omitempty"`
	// internal package prefix of the mapped code base
	Prefix string `json:"prefix,omitempty"`
	// class file, dump source or a directory of them
	Input string `json:"input,omitempty"`
	// output file (file input) or directory (directory input)
	Output string `json:"output,omitempty"`
	// jars and directories of compiled classes used to resolve inherited members
	Classpath []string `json:"classpath,omitempty"`
	// YAML type table used to resolve inherited members
	Types string `json:"types,omitempty"`
	// number of files rewritten concurrently
	Workers int `json:"workers,omitempty"`
	// command line of the class file disassembler
	Disassembler string `json:"disassembler,omitempty"`
	// print a unified diff instead of writing output files
	Diff bool `json:"diff,omitempty"`
	// show the progress bar (when using the CLI)
	Progress bool `json:"progress,omitempty"`
}

func (c *Config) verify() error {
	switch {
	case c.Package == "":
		return errors.New("no target package given")
	case c.MapUtil == "":
		return errors.New("no mapping utility class given")
	case c.Input == "":
		return errors.New("no input given")
	case c.Output == "" && !c.Diff:
		return errors.New("no output given")
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return nil
}

// Summary is the outcome of a run
type Summary struct {
	Files    int
	Failed   int
	Skipped  int
	Bytes    int64
	Stats    remap.Stats
	Duration time.Duration
	// Diffs holds one unified diff per changed file in input order (diff mode only)
	Diffs []string
}

type job struct {
	in    string
	out   string
	pkg   string
	class bool
}

// outputName maps Foo.class and Foo.java to FooDump.java
func outputName(name string) string {
	name = strings.TrimSuffix(strings.TrimSuffix(name, classExt), sourceExt)
	if !strings.HasSuffix(name, dumpSuffix) {
		name += dumpSuffix
	}
	return name + sourceExt
}

func isInput(name string) bool {
	return strings.HasSuffix(name, classExt) || strings.HasSuffix(name, sourceExt)
}

// isClassFile sniffs the class file magic; files too short to carry it are sources
func isClassFile(path string) (bool, error) {
	ok, err := magic.IsClass(path)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// plan lists the files to rewrite along with their output paths and packages
func plan(conf *Config) ([]job, error) {
	in, err := os.Stat(conf.Input)
	if err != nil {
		return nil, errors.Wrapf(err, "bad input %s", conf.Input)
	}
	out, err := os.Stat(conf.Output)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "bad output %s", conf.Output)
	}
	outExists := err == nil

	if !in.IsDir() {
		if outExists && out.IsDir() && !conf.Diff {
			return nil, fmt.Errorf("output %s is a directory while input %s is a file", conf.Output, conf.Input)
		}
		class, err := isClassFile(conf.Input)
		if err != nil {
			return nil, errors.Wrapf(err, "bad input %s", conf.Input)
		}
		return []job{{
			in:    conf.Input,
			out:   conf.Output,
			pkg:   conf.Package,
			class: class,
		}}, nil
	}

	if outExists && !out.IsDir() && !conf.Diff {
		return nil, fmt.Errorf("output %s is not a directory while input %s is", conf.Output, conf.Input)
	}

	var jobs []job
	if err := filepath.WalkDir(conf.Input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isInput(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(conf.Input, path)
		if err != nil {
			return err
		}

		pkg := conf.Package
		if dir := filepath.Dir(rel); dir != "." {
			pkg += "." + strings.ReplaceAll(filepath.ToSlash(dir), "/", ".")
		}

		class, err := isClassFile(path)
		if err != nil {
			return err
		}

		jobs = append(jobs, job{
			in:    path,
			out:   filepath.Join(conf.Output, filepath.Dir(rel), outputName(d.Name())),
			pkg:   pkg,
			class: class,
		})
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", conf.Input)
	}

	return jobs, nil
}

// NewResolver builds a hierarchy resolver from the configured classpath and
// type table. Repeated and empty classpath entries are dropped. It returns a
// nil resolver when neither is set.
func NewResolver(classpath []string, types string) (*hierarchy.Resolver, func() error, error) {
	var (
		chain   hierarchy.Chain
		closeFn = func() error { return nil }
	)

	if types != "" {
		table, err := hierarchy.LoadTypes(types)
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(log.Fields{"path": types, "types": table.Len()}).Debug("Loaded type table")
		chain = append(chain, table)
	}

	if classpath = utils.Unique(classpath); len(classpath) > 0 {
		cp, err := classfile.Open(classpath...)
		if err != nil {
			return nil, nil, err
		}
		closeFn = cp.Close
		chain = append(chain, cp)
	}

	switch len(chain) {
	case 0:
		return nil, closeFn, nil
	case 1:
		return hierarchy.NewResolver(chain[0]), closeFn, nil
	default:
		return hierarchy.NewResolver(chain), closeFn, nil
	}
}

type runner struct {
	conf     *Config
	idx      *Indices
	resolver *hierarchy.Resolver
	disass   Disassembler
}

// Run rewrites every planned input. Failures of single files are logged and
// counted in the Summary; only setup problems are returned as errors.
func Run(ctx context.Context, conf *Config, idx *Indices) (*Summary, error) {
	if err := conf.verify(); err != nil {
		return nil, err
	}

	jobs, err := plan(conf)
	if err != nil {
		return nil, err
	}

	r := &runner{conf: conf, idx: idx}

	for _, j := range jobs {
		if j.class {
			if conf.Disassembler == "" {
				return nil, fmt.Errorf("%s is a class file but no disassembler is configured", j.in)
			}
			if r.disass, err = NewCommand(conf.Disassembler); err != nil {
				return nil, err
			}
			break
		}
	}

	resolver, closeFn, err := NewResolver(conf.Classpath, conf.Types)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load type information")
	}
	defer closeFn()
	r.resolver = resolver

	return r.run(ctx, jobs)
}

func (r *runner) run(ctx context.Context, jobs []job) (*Summary, error) {
	var (
		mu    sync.Mutex
		sum   Summary
		done  atomic.Int64
		diffs = make([]string, len(jobs))
		start = time.Now()
		bar   *mpb.Bar
		p     *mpb.Progress
	)

	if r.conf.Progress && len(jobs) > 1 {
		p = mpb.New(mpb.WithWidth(80))
		name := "      "
		bar = p.New(int64(len(jobs)),
			mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding("-").Rbound("|"),
			mpb.PrependDecorators(
				decor.Name(name, decor.WC{W: len(name), C: decor.DindentRight | decor.DextraSpace}),
				decor.OnComplete(
					decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "✅ ",
				),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("%d/%d"),
				decor.Name(" ] "),
			),
		)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.conf.Workers)

	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			stats, diff, n, err := r.process(ctx, j)

			mu.Lock()
			switch {
			case errors.Is(err, remap.ErrAlreadyRemapped):
				sum.Skipped++
				log.WithField("file", j.in).Warn("Skipping already remapped file")
			case err != nil:
				sum.Failed++
				log.WithError(err).WithField("file", j.in).Error("Failed to remap")
			default:
				sum.Files++
				sum.Bytes += n
				sum.Stats.Add(stats)
				diffs[i] = diff
			}
			mu.Unlock()

			done.Add(1)
			if bar != nil {
				bar.Increment()
			} else {
				log.WithField("file", j.in).Debugf("Processed %d/%d", done.Load(), len(jobs))
			}

			return nil
		})
	}

	err := g.Wait()
	if p != nil {
		if err != nil {
			bar.Abort(false)
		}
		p.Wait()
	}
	if err != nil {
		return nil, err
	}

	for _, d := range diffs {
		if d != "" {
			sum.Diffs = append(sum.Diffs, d)
		}
	}

	sum.Duration = time.Since(start)
	return &sum, nil
}

func (r *runner) process(ctx context.Context, j job) (*remap.Stats, string, int64, error) {
	var src string
	if j.class {
		out, err := r.disass.Disassemble(ctx, j.in)
		if err != nil {
			return nil, "", 0, errors.Wrap(err, "failed to disassemble")
		}
		src = out
	} else {
		data, err := os.ReadFile(j.in)
		if err != nil {
			return nil, "", 0, err
		}
		src = string(data)
	}

	engine := remap.NewEngine(r.idx.Intermediate, r.idx.Final, r.resolver, &remap.Config{
		Package:   j.pkg,
		MapUtil:   r.conf.MapUtil,
		MapMethod: r.conf.MapMethod,
		Prefix:    r.conf.Prefix,
	})

	out, stats, err := engine.Rewrite(src)
	if err != nil {
		return nil, "", 0, err
	}

	if r.conf.Diff {
		return stats, udiff.Unified(j.in, j.out, src, out), 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(j.out), 0o750); err != nil {
		return nil, "", 0, errors.Wrapf(err, "failed to create output directory for %s", j.out)
	}
	if err := os.WriteFile(j.out, []byte(out), 0o644); err != nil {
		return nil, "", 0, errors.Wrapf(err, "failed to write %s", j.out)
	}

	return stats, "", int64(len(out)), nil
}

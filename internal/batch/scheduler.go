package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/downscaler/internal/model"
	"github.com/aliskhannn/downscaler/internal/processor"
)

// ErrDirectory marks a missing or unreadable input directory, or an output
// directory that cannot be created. It aborts the run before any dispatch.
var ErrDirectory = errors.New("directory error")

// ErrOutputConflict marks a file whose output path is already taken by an
// earlier entry of the same directory, e.g. a.png and a.jpg when converting.
var ErrOutputConflict = errors.New("output conflict")

// imageProcessor defines the per-file operations the scheduler dispatches.
type imageProcessor interface {
	Converge(ctx context.Context, task model.ImageTask) (processor.Output, int, error)
	Convert(ctx context.Context, task model.ImageTask) (processor.Output, error)
	Limit() int64
	Size(ctx context.Context, path string) (int64, error)
}

// Publisher receives every finished result, e.g. to mirror or announce it.
// Publish errors are logged and never change the result.
type Publisher interface {
	Publish(ctx context.Context, res model.Result) error
}

// Options configures a Scheduler.
type Options struct {
	Workers  int     // concurrent files in flight
	Scale    float64 // scale factor applied on every pass
	Convert  bool    // convert outputs to the fixed format
	OnStart  func(total int)
	OnResult func(model.Result)
}

// Scheduler runs every eligible file of a directory through the processor
// on a bounded worker pool.
type Scheduler struct {
	proc       imageProcessor
	publishers []Publisher
	opts       Options
	log        zerolog.Logger
}

// New creates a new Scheduler.
func New(p imageProcessor, opts Options, log zerolog.Logger, pubs ...Publisher) *Scheduler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Scheduler{proc: p, publishers: pubs, opts: opts, log: log}
}

// Run processes the entries of inputDir into outputDir and blocks until all
// dispatched work has finished. Per-file errors are recorded in the results
// and never returned; the error return is reserved for directory failures.
//
// Once ctx is cancelled no new file is started: files still waiting for a
// worker are reported as skipped with the context error. Files in flight
// finish their current pass and are reported as failed with it.
func (s *Scheduler) Run(ctx context.Context, inputDir, outputDir string) (model.Summary, []model.Result, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return model.Summary{}, nil, fmt.Errorf("%w: failed to read input directory: %w", ErrDirectory, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return model.Summary{}, nil, fmt.Errorf("%w: failed to create output directory: %w", ErrDirectory, err)
	}

	s.log.Info().
		Int("entries", len(entries)).
		Int("workers", s.opts.Workers).
		Float64("scale", s.opts.Scale).
		Bool("convert", s.opts.Convert).
		Str("limit", humanize.IBytes(uint64(s.proc.Limit()))).
		Msg("starting batch")

	if s.opts.OnStart != nil {
		s.opts.OnStart(len(entries))
	}

	var counters Counters
	results := make([]model.Result, len(entries))
	conflicts := s.outputConflicts(entries, outputDir)

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for i, entry := range entries {
		if ctx.Err() != nil {
			for j := i; j < len(entries); j++ {
				results[j] = s.cancelled(ctx, entries[j].Name(), inputDir)
				counters.Record(model.OutcomeSkipped)
			}
			s.log.Warn().Int("undispatched", len(entries)-i).Msg("batch interrupted")
			break
		}

		// Go blocks while the pool is full, so the context is checked again
		// once this entry actually gets a worker.
		g.Go(func() error {
			var res model.Result
			switch {
			case ctx.Err() != nil:
				res = s.cancelled(ctx, entry.Name(), inputDir)
			case conflicts[i] != "":
				res = s.fail(model.Result{Name: entry.Name(), Source: filepath.Join(inputDir, entry.Name())},
					fmt.Errorf("%w: %s is also the output of %s", ErrOutputConflict,
						processor.OutputPath(filepath.Join(outputDir, entry.Name()), s.opts.Convert), conflicts[i]))
			default:
				res = s.handle(ctx, entry, inputDir, outputDir)
			}

			results[i] = res
			counters.Record(res.Outcome)
			s.publish(ctx, res)
			if s.opts.OnResult != nil {
				s.opts.OnResult(res)
			}
			return nil
		})
	}

	_ = g.Wait()

	summary := counters.Summary(len(entries))
	s.log.Info().
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("converted", summary.Converted).
		Int("failed", summary.Failed).
		Msg("all files processed")

	return summary, results, nil
}

// outputConflicts maps the index of every entry whose output path was
// already claimed by an earlier entry to the name of that entry.
func (s *Scheduler) outputConflicts(entries []os.DirEntry, outputDir string) map[int]string {
	owners := make(map[string]string, len(entries))
	conflicts := make(map[int]string)

	for i, entry := range entries {
		if entry.IsDir() || !processor.IsSupported(entry.Name()) {
			continue
		}
		out := processor.OutputPath(filepath.Join(outputDir, entry.Name()), s.opts.Convert)
		if owner, ok := owners[out]; ok {
			conflicts[i] = owner
			s.log.Warn().Str("file", entry.Name()).Str("output", out).Str("owner", owner).Msg("output path already taken")
			continue
		}
		owners[out] = entry.Name()
	}

	return conflicts
}

// cancelled is the result of an entry that never started because the run
// was interrupted.
func (s *Scheduler) cancelled(ctx context.Context, name, inputDir string) model.Result {
	return model.Result{
		Name:    name,
		Source:  filepath.Join(inputDir, name),
		Outcome: model.OutcomeSkipped,
		Err:     ctx.Err(),
		Error:   ctx.Err().Error(),
	}
}

// handle routes one directory entry by its size relative to the limit.
func (s *Scheduler) handle(ctx context.Context, entry os.DirEntry, inputDir, outputDir string) model.Result {
	name := entry.Name()
	task := model.ImageTask{
		Source:      filepath.Join(inputDir, name),
		Destination: filepath.Join(outputDir, name),
		Scale:       s.opts.Scale,
		Convert:     s.opts.Convert,
	}
	res := model.Result{Name: name, Source: task.Source}

	if entry.IsDir() || !processor.IsSupported(name) {
		res.Outcome = model.OutcomeSkipped
		return res
	}

	size, err := s.proc.Size(ctx, task.Source)
	if err != nil {
		return s.fail(res, err)
	}

	switch {
	case size > s.proc.Limit():
		out, passes, err := s.proc.Converge(ctx, task)
		res.Passes = passes
		res.Destination = out.Path
		if err != nil {
			res.Size = out.Size
			return s.fail(res, err)
		}
		res.Outcome = model.OutcomeProcessed
		res.Size = out.Size
		res.Dimensions = out.Dimensions

	case s.opts.Convert:
		out, err := s.proc.Convert(ctx, task)
		if err != nil {
			return s.fail(res, err)
		}
		res.Outcome = model.OutcomeConverted
		res.Passes = 1
		res.Destination = out.Path
		res.Size = out.Size
		res.Dimensions = out.Dimensions

	default:
		res.Outcome = model.OutcomeSkipped
		s.log.Debug().Str("file", name).Int64("size", size).Msg("under size limit, left untouched")
		return res
	}

	s.log.Info().
		Str("file", name).
		Str("outcome", string(res.Outcome)).
		Int("passes", res.Passes).
		Str("size", humanize.IBytes(uint64(res.Size))).
		Str("output", res.Destination).
		Msg("file done")

	return res
}

func (s *Scheduler) fail(res model.Result, err error) model.Result {
	res.Outcome = model.OutcomeFailed
	res.Err = err
	res.Error = err.Error()

	s.log.Error().Err(err).Str("file", res.Name).Msg("failed to process image")

	return res
}

func (s *Scheduler) publish(ctx context.Context, res model.Result) {
	for _, p := range s.publishers {
		if err := p.Publish(ctx, res); err != nil {
			s.log.Warn().Err(err).Str("file", res.Name).Msg("failed to publish result")
		}
	}
}

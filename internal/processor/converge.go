package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliskhannn/downscaler/internal/model"
)

// Converge downscales task until the written file is no larger than the
// size limit. The first pass reads task.Source; every later pass reads and
// overwrites the previous output in place with the same scale factor.
//
// It returns the last output and the number of passes run. After MaxPasses
// passes over the limit it fails with a *ConvergenceError. It fails the same
// way, without using up the remaining passes, when the scale factor cannot
// make the image smaller: a target larger than its source is never written,
// and a pass that keeps the dimensions is not repeated. Cancellation is
// checked between passes only, so a pass in progress always completes.
func (p *Processor) Converge(ctx context.Context, task model.ImageTask) (Output, int, error) {
	var out Output

	for pass := 1; pass <= p.opts.MaxPasses; pass++ {
		if pass > 1 {
			if err := ctx.Err(); err != nil {
				return out, pass - 1, err
			}
		}

		next, err := p.transform(ctx, task, pass, true)
		if errors.Is(err, errGrows) {
			return p.refuseGrowth(ctx, task, out, pass-1, next)
		}
		out = next
		if err != nil {
			return out, pass, err
		}

		size, err := p.fileStorage.Size(ctx, out.Path)
		if err != nil {
			return out, pass, fmt.Errorf("%w: %w", ErrIO, err)
		}
		out.Size = size

		if size <= p.opts.SizeLimit {
			return out, pass, nil
		}

		if !shrinks(out.From, out.Dimensions) {
			p.log.Warn().
				Str("path", out.Path).
				Int("pass", pass).
				Float64("scale", task.Scale).
				Msg("scale factor does not reduce dimensions, giving up")
			return out, pass, p.convergenceError(out.Path, pass, size)
		}

		p.log.Warn().
			Str("path", out.Path).
			Int("pass", pass).
			Int64("size", size).
			Int64("limit", p.opts.SizeLimit).
			Msg("output still over size limit")

		task.Source = out.Path
		task.Destination = out.Path
	}

	return out, p.opts.MaxPasses, p.convergenceError(out.Path, p.opts.MaxPasses, out.Size)
}

// refuseGrowth ends the loop when the next pass would enlarge task.Source.
// last is the output of the previous pass, empty when there was none.
func (p *Processor) refuseGrowth(ctx context.Context, task model.ImageTask, last Output, passes int, target Output) (Output, int, error) {
	size, err := p.fileStorage.Size(ctx, task.Source)
	if err != nil {
		return last, passes, fmt.Errorf("%w: %w", ErrIO, err)
	}

	p.log.Warn().
		Str("path", task.Source).
		Float64("scale", task.Scale).
		Str("from", fmt.Sprintf("%dx%d", target.From.Width, target.From.Height)).
		Str("to", fmt.Sprintf("%dx%d", target.Dimensions.Width, target.Dimensions.Height)).
		Msg("scale factor enlarges the image, giving up")

	return last, passes, p.convergenceError(task.Source, passes, size)
}

func (p *Processor) convergenceError(path string, passes int, size int64) *ConvergenceError {
	return &ConvergenceError{
		Path:   path,
		Passes: passes,
		Size:   size,
		Limit:  p.opts.SizeLimit,
	}
}

package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/aliskhannn/downscaler/internal/model"
)

// fileStorage defines the interface for file storage.
// Save must replace the destination atomically: on repeated passes the
// destination is also the source.
type fileStorage interface {
	Load(ctx context.Context, path string) (io.ReadCloser, error)
	Save(ctx context.Context, path string, src io.Reader) (int64, error)
	Size(ctx context.Context, path string) (int64, error)
}

// MaxPixels caps the pixel count of a resize target. The resampler holds
// four bytes per pixel, so this is 1GiB of working memory.
const MaxPixels = 1 << 28

// errGrows stops a shrink-only pass whose target is larger than its source.
var errGrows = errors.New("scale factor enlarges the image")

// Options configures a Processor.
type Options struct {
	SizeLimit int64 // bytes; outputs above it are downscaled again
	MaxPasses int   // iteration cap of the convergence loop
	Quality   int   // JPEG quality used for the fixed format
}

// Output describes a file written by a single transform pass.
type Output struct {
	Path       string
	Size       int64
	From       model.Metadata // dimensions of the decoded input
	Dimensions model.Metadata
}

// Processor decodes, resizes and re-encodes single images, and drives the
// size-convergence loop around that transform.
type Processor struct {
	fileStorage fileStorage
	opts        Options
	log         zerolog.Logger
}

// New creates a new Processor with the given file storage backend.
func New(fs fileStorage, opts Options, log zerolog.Logger) *Processor {
	return &Processor{fileStorage: fs, opts: opts, log: log}
}

// Limit returns the configured size limit in bytes.
func (p *Processor) Limit() int64 {
	return p.opts.SizeLimit
}

// Size returns the stored size of the file at path.
func (p *Processor) Size(ctx context.Context, path string) (int64, error) {
	n, err := p.fileStorage.Size(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return n, nil
}

// Transform runs one resize pass of task and writes the result.
// The returned Output.Path differs from task.Destination when the output
// format changes the extension.
func (p *Processor) Transform(ctx context.Context, task model.ImageTask) (Output, error) {
	return p.transform(ctx, task, 1, false)
}

// Convert re-encodes task.Source to the fixed format without resizing.
func (p *Processor) Convert(ctx context.Context, task model.ImageTask) (Output, error) {
	task.Scale = 1
	task.Convert = true
	return p.transform(ctx, task, 1, false)
}

// transform runs one pass. With shrinkOnly set, a target larger than the
// source on either side fails with errGrows before anything is resized.
func (p *Processor) transform(ctx context.Context, task model.ImageTask, pass int, shrinkOnly bool) (Output, error) {
	// Load the source image from storage.
	srcReader, err := p.fileStorage.Load(ctx, task.Source)
	if err != nil {
		return Output{}, fmt.Errorf("%w: failed to load image: %w", ErrIO, err)
	}

	// Decode into an image object, applying EXIF orientation.
	img, err := imaging.Decode(srcReader, imaging.AutoOrientation(true))
	srcReader.Close()
	if err != nil {
		return Output{}, fmt.Errorf("%w: failed to decode image: %w", ErrDecode, err)
	}

	bounds := img.Bounds()
	orig := model.Metadata{Width: bounds.Dx(), Height: bounds.Dy()}
	dims := NewDimensions(orig, task.Scale)

	if shrinkOnly && (dims.Width > orig.Width || dims.Height > orig.Height) {
		return Output{From: orig, Dimensions: dims}, errGrows
	}
	if pixels(dims) > MaxPixels {
		return Output{}, fmt.Errorf("%w: %dx%d scaled by %g exceeds %d pixels", ErrDecode, orig.Width, orig.Height, task.Scale, MaxPixels)
	}

	// Perform resizing. Equal dimensions return an unfiltered copy.
	resized := imaging.Resize(img, dims.Width, dims.Height, imaging.Lanczos)

	format, dst := outputFormat(task.Destination, task.Convert)

	var opts []imaging.EncodeOption
	if format == FixedFormat {
		opts = append(opts, imaging.JPEGQuality(p.opts.Quality))
	}

	// Encode resized image into buffer for storage.
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, resized, format, opts...); err != nil {
		return Output{}, fmt.Errorf("%w: failed to encode image: %w", ErrIO, err)
	}

	n, err := p.fileStorage.Save(ctx, dst, buf)
	if err != nil {
		return Output{}, fmt.Errorf("%w: failed to save image: %w", ErrIO, err)
	}

	p.log.Info().
		Str("path", dst).
		Int("pass", pass).
		Str("from", fmt.Sprintf("%dx%d", orig.Width, orig.Height)).
		Str("to", fmt.Sprintf("%dx%d", dims.Width, dims.Height)).
		Str("size", humanize.IBytes(uint64(n))).
		Msg("image written")

	return Output{Path: dst, Size: n, From: orig, Dimensions: dims}, nil
}

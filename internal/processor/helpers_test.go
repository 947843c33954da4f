package processor

import (
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/aliskhannn/downscaler/internal/storage/file"
)

// countingStorage wraps the local storage and counts writes.
type countingStorage struct {
	*file.Storage
	saves atomic.Int32
}

func (s *countingStorage) Save(ctx context.Context, path string, src io.Reader) (int64, error) {
	s.saves.Add(1)
	return s.Storage.Save(ctx, path, src)
}

func newTestProcessor(opts Options) (*Processor, *countingStorage) {
	fs := &countingStorage{Storage: file.NewStorage()}
	if opts.MaxPasses == 0 {
		opts.MaxPasses = 10
	}
	if opts.Quality == 0 {
		opts.Quality = 100
	}
	return New(fs, opts, zerolog.Nop()), fs
}

func writeImage(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", name, err)
	}
	return path
}

func solidImage(w, h int) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
}

func decodeConfig(t *testing.T, path string) (image.Config, string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode config %s: %v", path, err)
	}
	return cfg, format
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.Size()
}

func writeRaw(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

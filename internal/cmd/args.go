package cmd

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/aliskhannn/downscaler/internal/batch"
)

// ErrArgument marks invalid command-line input. Nothing is processed.
var ErrArgument = errors.New("invalid argument")

// Args are the validated positional arguments.
type Args struct {
	InputDir  string
	OutputDir string
	Scale     float64
	Convert   bool
}

// ParseArgs validates INPUT_DIR OUTPUT_DIR SCALE_FACTOR [CONVERT].
// The input directory must exist; the output directory is created later.
func ParseArgs(args []string) (Args, error) {
	if len(args) < 3 || len(args) > 4 {
		return Args{}, fmt.Errorf("%w: expected 3 or 4 arguments, got %d", ErrArgument, len(args))
	}

	a := Args{InputDir: args[0], OutputDir: args[1]}
	if a.InputDir == "" || a.OutputDir == "" {
		return Args{}, fmt.Errorf("%w: input and output directories are required", ErrArgument)
	}

	scale, err := strconv.ParseFloat(args[2], 64)
	if err != nil || math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return Args{}, fmt.Errorf("%w: scale factor must be a positive number, got %q", ErrArgument, args[2])
	}
	a.Scale = scale

	if len(args) == 4 {
		switch strings.ToLower(args[3]) {
		case "true":
			a.Convert = true
		case "false":
		default:
			return Args{}, fmt.Errorf("%w: convert flag must be true or false, got %q", ErrArgument, args[3])
		}
	}

	info, err := os.Stat(a.InputDir)
	if err != nil {
		return Args{}, fmt.Errorf("%w: input directory: %w", batch.ErrDirectory, err)
	}
	if !info.IsDir() {
		return Args{}, fmt.Errorf("%w: input path %s is not a directory", batch.ErrDirectory, a.InputDir)
	}

	return a, nil
}

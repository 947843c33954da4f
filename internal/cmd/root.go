package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/downscaler/internal/batch"
	"github.com/aliskhannn/downscaler/internal/config"
	"github.com/aliskhannn/downscaler/internal/infra/kafka/producer"
	"github.com/aliskhannn/downscaler/internal/model"
	"github.com/aliskhannn/downscaler/internal/processor"
	"github.com/aliskhannn/downscaler/internal/storage/file"
	"github.com/aliskhannn/downscaler/internal/storage/s3"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// NewRootCmd creates the downscaler command. Every line of progress goes
// through log; the final summary is printed to the command's stdout.
func NewRootCmd(log zerolog.Logger) *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "downscaler INPUT_DIR OUTPUT_DIR SCALE_FACTOR [CONVERT_TO_JPG]",
		Short: "Batch-downscale images until they fit under a size limit",
		Long: `downscaler resizes every image in INPUT_DIR by SCALE_FACTOR and writes the
result to OUTPUT_DIR, repeating the resize on the output until it is no larger
than the configured size limit.

Images already under the limit are left alone, or re-encoded as JPEG when
CONVERT_TO_JPG is true. Supported extensions: jpg, jpeg, png, webp, tiff, gif, svg.

Files are processed concurrently, one per logical CPU unless --workers is set.`,
		Version:      Version,
		SilenceUsage: true,
		Args: func(cmd *cobra.Command, args []string) error {
			_, err := ParseArgs(args)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ParseArgs(args)
			if err != nil {
				return err
			}

			cfg, err := config.Load(cfgPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("%w: %w", ErrArgument, err)
			}

			summary, results, err := Run(cmd.Context(), cfg, a, log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			printResults(cmd.OutOrStdout(), results)
			fmt.Fprintln(cmd.OutOrStdout(), summary.String())

			// Interrupted runs still print what finished but exit non-zero.
			return cmd.Context().Err()
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML config file (default ./config/config.yml if present)")
	cmd.Flags().String("size-limit", "", "Maximum output size, e.g. 44MiB or 10MB")
	cmd.Flags().Int("max-passes", 0, "Maximum resize passes per file")
	cmd.Flags().Int("quality", 0, "JPEG quality for converted output (1-100)")
	cmd.Flags().IntP("workers", "w", 0, "Concurrent files (default: number of logical CPUs)")
	cmd.Flags().Bool("progress", false, "Show a progress bar on stderr")

	return cmd
}

// Run wires the processor, sinks and scheduler from cfg and processes one
// directory. Only directory and sink setup failures are returned.
func Run(ctx context.Context, cfg *config.Config, a Args, log zerolog.Logger, stderr io.Writer) (model.Summary, []model.Result, error) {
	limit, err := cfg.Resize.LimitBytes()
	if err != nil {
		return model.Summary{}, nil, fmt.Errorf("%w: %w", ErrArgument, err)
	}

	runID := uuid.NewString()
	log = log.With().Str("run", runID).Logger()

	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	var sinks []batch.Publisher

	if cfg.Storage.Enabled {
		mirror, err := s3.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey,
			cfg.Storage.BucketName, cfg.Storage.UseSSL, runID, strategy)
		if err != nil {
			return model.Summary{}, nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		sinks = append(sinks, mirror)
	}

	if cfg.Kafka.Enabled {
		p := producer.New(&cfg.Kafka, strategy, runID)
		defer func() {
			if err := p.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close kafka producer")
			}
		}()
		sinks = append(sinks, p)
	}

	proc := processor.New(file.NewStorage(), processor.Options{
		SizeLimit: limit,
		MaxPasses: cfg.Resize.MaxPasses,
		Quality:   cfg.Resize.Quality,
	}, log)

	opts := batch.Options{
		Workers: cfg.Batch.WorkerCount(),
		Scale:   a.Scale,
		Convert: a.Convert,
	}

	if cfg.Batch.Progress {
		var bar *progressbar.ProgressBar
		opts.OnStart = func(total int) {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(stderr),
				progressbar.OptionSetDescription("Downscaling"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(30),
			)
		}
		opts.OnResult = func(model.Result) {
			_ = bar.Add(1)
		}
		defer func() {
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(stderr)
			}
		}()
	}

	return batch.New(proc, opts, log, sinks...).Run(ctx, a.InputDir, a.OutputDir)
}

// printResults writes one line per file that was written or failed.
func printResults(w io.Writer, results []model.Result) {
	for _, r := range results {
		switch r.Outcome {
		case model.OutcomeProcessed, model.OutcomeConverted:
			fmt.Fprintf(w, "%s -> %s (%s, %dx%d, %d pass(es))\n",
				r.Name, r.Destination, humanize.IBytes(uint64(r.Size)), r.Dimensions.Width, r.Dimensions.Height, r.Passes)
		case model.OutcomeFailed:
			fmt.Fprintf(w, "%s: %s\n", r.Name, r.Error)
		}
	}
}

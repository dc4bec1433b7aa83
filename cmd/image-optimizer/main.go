package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"image-optimizer-go/internal/codec"
	"image-optimizer-go/internal/config"
	"image-optimizer-go/internal/display"
	"image-optimizer-go/internal/logger"
	"image-optimizer-go/internal/optimizer"
	"image-optimizer-go/internal/scanner"
	"image-optimizer-go/internal/statistics"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	verbose    bool
	quiet      bool
	updateFlag bool
	version    = "0.1.0"
	buildTime  string
	port       int
)

// flagKeys maps CLI flags onto config keys. Bound flags only override the
// config file and environment when set explicitly.
var flagKeys = map[string]string{
	"input":                  "input",
	"output":                 "output_directory",
	"backup":                 "backup",
	"lossless":               "lossless",
	"quality":                "quality",
	"recursive":              "recursive",
	"max-size":               "max_size",
	"workers":                "performance.worker_threads",
	"png-optimization-level": "png.optimization_level",
	"zopfli-iterations":      "png.zopfli_iterations",
	"jpeg-encoder":           "jpeg.encoder",
	"keep-metadata":          "jpeg.keep_metadata",
}

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "image-optimizer",
	Short: "Optimize JPEG, PNG and WebP images in place or into a mirrored tree",
	Long: `image-optimizer re-encodes JPEG, PNG and WebP images with better
settings and keeps the result only when it is smaller than the original.

Features:
- In-place optimization with optional .bak backups
- Separate output directory mirroring the input tree
- Optional downscaling to a maximum edge length
- jpegli JPEG encoding, oxipng PNG optimization, WebP re-encoding
- Parallel or sequential processing
- Self-update from GitHub releases`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if updateFlag {
			return runUpdate(cmd)
		}
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		log := setupLogger(cfg)
		_, err = runOptimize(afero.NewOsFs(), cfg, log, os.Stdout, !quiet)
		return err
	},
}

func init() {
	rootCmd.Version = version
	if buildTime != "" {
		rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	flags := rootCmd.Flags()
	flags.StringP("input", "i", "", "input file or directory")
	flags.StringP("output", "o", "", "output directory (default: optimize in place)")
	flags.Bool("backup", false, "create <file>.bak before replacing an original")
	flags.Bool("lossless", false, "use lossless compression")
	flags.IntP("quality", "q", 85, "JPEG and WebP quality (1-100)")
	flags.BoolP("recursive", "r", false, "scan subdirectories")
	flags.Uint32("max-size", 0, "maximum length of the longer edge in pixels (0 keeps dimensions)")
	flags.Bool("no-parallel", false, "process files one at a time")
	flags.Int("workers", 0, "number of parallel workers (0 = one per CPU)")
	flags.String("png-optimization-level", "2", "PNG optimization level 0-6 or max")
	flags.Bool("no-zopfli", false, "use fast deflate instead of zopfli for PNG")
	flags.Int("zopfli-iterations", 15, "zopfli iterations for PNG")
	flags.String("jpeg-encoder", codec.JPEGEncoderJpegli, "JPEG encoder: jpegli or standard")
	flags.Bool("keep-metadata", false, "copy EXIF metadata into optimized JPEGs (requires exiftool)")
	flags.BoolVar(&updateFlag, "update", false, "update to the latest release and exit")

	serveCmd.Flags().IntVar(&port, "port", 0, "port to run web server on (default from config, 8080)")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the config file and environment, then applies the flags
// that were set explicitly.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	v := viper.New()
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	if f := flags.Lookup("no-parallel"); f != nil && f.Changed {
		v.Set("performance.parallel", false)
	}
	if f := flags.Lookup("no-zopfli"); f != nil && f.Changed {
		v.Set("png.zopfli", false)
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// runOptimize discovers images under cfg.Input and optimizes them, printing
// the summary to out.
func runOptimize(fs afero.Fs, cfg *config.Config, log *logrus.Logger, out io.Writer, showProgress bool) (statistics.Result, error) {
	if cfg.Input == "" {
		return statistics.Result{}, errors.New("input file or directory is required (use --input)")
	}

	sc := scanner.New(fs)
	files, err := sc.Scan(cfg.Input, cfg.Recursive)
	if err != nil {
		if errors.Is(err, scanner.ErrNotExist) {
			return statistics.Result{}, errors.New("Input file or directory does not exist")
		}
		return statistics.Result{}, err
	}

	inputIsFile := sc.IsFile(cfg.Input)
	if len(files) == 0 {
		if inputIsFile {
			fmt.Fprintln(out, "The specified file is not a supported image format")
		} else {
			fmt.Fprintln(out, "No image files found in the specified directory")
		}
		return statistics.Result{}, nil
	}

	display.Info(out, "Found %d image files", len(files))

	req := cfg.Request(inputIsFile)
	registry := codec.NewRegistry(fs, req.Codec, log)
	opt := optimizer.New(fs, registry, req, log)

	var (
		progress optimizer.Progress = optimizer.NopProgress{}
		bar      *optimizer.BarProgress
	)
	if showProgress && cfg.Performance.ShowProgress {
		bar = optimizer.NewBarProgress(os.Stderr, len(files))
		progress = bar
	}

	stats := optimizer.NewCoordinator(opt, req, progress, log).Run(files)
	if bar != nil {
		_ = bar.Close()
	}
	result := stats.Snapshot()

	fmt.Fprintln(out)
	display.Summary(out, result)
	log.Debug(stats.GetFileTypeBreakdown())
	if result.Failed > 0 {
		log.Debug(stats.GetErrorSummary())
	}
	return result, nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := cfg.LoggerConfig()

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

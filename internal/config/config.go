package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"image-optimizer-go/internal/codec"
	"image-optimizer-go/internal/logger"
	"image-optimizer-go/internal/optimizer"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. IMAGE_OPTIMIZER_QUALITY.
const EnvPrefix = "IMAGE_OPTIMIZER"

// Config represents the main configuration structure
type Config struct {
	Input           string            `mapstructure:"input"`
	OutputDirectory string            `mapstructure:"output_directory"`
	Quality         int               `mapstructure:"quality"`
	Lossless        bool              `mapstructure:"lossless"`
	MaxSize         uint32            `mapstructure:"max_size"`
	Backup          bool              `mapstructure:"backup"`
	Recursive       bool              `mapstructure:"recursive"`
	Performance     PerformanceConfig `mapstructure:"performance"`
	PNG             PNGConfig         `mapstructure:"png"`
	JPEG            JPEGConfig        `mapstructure:"jpeg"`
	Update          UpdateConfig      `mapstructure:"update"`
	Web             WebConfig         `mapstructure:"web"`
	Logging         LoggingConfig     `mapstructure:"logging"`
}

// PerformanceConfig contains performance tuning settings
type PerformanceConfig struct {
	Parallel      bool `mapstructure:"parallel"`
	WorkerThreads int  `mapstructure:"worker_threads"` // 0 = one per CPU
	ShowProgress  bool `mapstructure:"show_progress"`
}

// PNGConfig contains PNG optimizer settings
type PNGConfig struct {
	OptimizationLevel string `mapstructure:"optimization_level"` // "0".."6" or "max"
	Zopfli            bool   `mapstructure:"zopfli"`
	ZopfliIterations  int    `mapstructure:"zopfli_iterations"`
	OptimizerPath     string `mapstructure:"optimizer_path"`
}

// JPEGConfig contains JPEG encoder settings
type JPEGConfig struct {
	Encoder           string `mapstructure:"encoder"` // jpegli, standard
	ChromaSubsampling string `mapstructure:"chroma_subsampling"`
	KeepMetadata      bool   `mapstructure:"keep_metadata"`
}

// UpdateConfig points the self-updater at a release feed
type UpdateConfig struct {
	Repository string `mapstructure:"repository"`
	APIURL     string `mapstructure:"api_url"`
}

// WebConfig contains web front end settings
type WebConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Quality: 85,
		Performance: PerformanceConfig{
			Parallel:      true,
			WorkerThreads: 0,
			ShowProgress:  true,
		},
		PNG: PNGConfig{
			OptimizationLevel: "2",
			Zopfli:            true,
			ZopfliIterations:  15,
			OptimizerPath:     "oxipng",
		},
		JPEG: JPEGConfig{
			Encoder:           codec.JPEGEncoderJpegli,
			ChromaSubsampling: "420",
		},
		Update: UpdateConfig{
			Repository: "nixuuu/image-optimizer",
			APIURL:     "https://api.github.com",
		},
		Web: WebConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// SetDefaults registers every default with v so environment variables and
// bound flags resolve for all keys.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("input", d.Input)
	v.SetDefault("output_directory", d.OutputDirectory)
	v.SetDefault("quality", d.Quality)
	v.SetDefault("lossless", d.Lossless)
	v.SetDefault("max_size", d.MaxSize)
	v.SetDefault("backup", d.Backup)
	v.SetDefault("recursive", d.Recursive)
	v.SetDefault("performance.parallel", d.Performance.Parallel)
	v.SetDefault("performance.worker_threads", d.Performance.WorkerThreads)
	v.SetDefault("performance.show_progress", d.Performance.ShowProgress)
	v.SetDefault("png.optimization_level", d.PNG.OptimizationLevel)
	v.SetDefault("png.zopfli", d.PNG.Zopfli)
	v.SetDefault("png.zopfli_iterations", d.PNG.ZopfliIterations)
	v.SetDefault("png.optimizer_path", d.PNG.OptimizerPath)
	v.SetDefault("jpeg.encoder", d.JPEG.Encoder)
	v.SetDefault("jpeg.chroma_subsampling", d.JPEG.ChromaSubsampling)
	v.SetDefault("jpeg.keep_metadata", d.JPEG.KeepMetadata)
	v.SetDefault("update.repository", d.Update.Repository)
	v.SetDefault("update.api_url", d.Update.APIURL)
	v.SetDefault("web.port", d.Web.Port)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file_path", d.Logging.FilePath)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age", d.Logging.MaxAge)
	v.SetDefault("logging.compress", d.Logging.Compress)
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	return Load(viper.New(), configPath)
}

// Load reads configuration into v, which may already carry bound flags.
// Precedence is flag, environment, config file, default.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.image-optimizer")
		v.AddConfigPath("/etc/image-optimizer")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.Quality)
	}

	if _, err := codec.ParsePNGLevel(c.PNG.OptimizationLevel); err != nil {
		return err
	}
	if c.PNG.ZopfliIterations <= 0 {
		c.PNG.ZopfliIterations = 15
	}

	c.JPEG.Encoder = strings.ToLower(c.JPEG.Encoder)
	switch c.JPEG.Encoder {
	case codec.JPEGEncoderJpegli, codec.JPEGEncoderStandard:
	default:
		return fmt.Errorf("invalid jpeg encoder: %s (valid: jpegli, standard)", c.JPEG.Encoder)
	}
	if _, err := codec.ParseChromaSubsampling(c.JPEG.ChromaSubsampling); err != nil {
		return err
	}

	if c.Performance.WorkerThreads < 0 {
		return fmt.Errorf("worker_threads must not be negative, got %d", c.Performance.WorkerThreads)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

// IsInPlace returns true if originals are rewritten instead of mirrored
func (c *Config) IsInPlace() bool {
	return c.OutputDirectory == ""
}

// CodecOptions returns the encoder settings.
func (c *Config) CodecOptions() codec.Options {
	return codec.Options{
		Quality:           c.Quality,
		Lossless:          c.Lossless,
		PNGLevel:          c.PNG.OptimizationLevel,
		Zopfli:            c.PNG.Zopfli,
		ZopfliIterations:  c.PNG.ZopfliIterations,
		PNGOptimizerPath:  c.PNG.OptimizerPath,
		JPEGEncoder:       c.JPEG.Encoder,
		ChromaSubsampling: c.JPEG.ChromaSubsampling,
		KeepMetadata:      c.JPEG.KeepMetadata,
	}
}

// Request builds the run request. inputIsFile selects the file's directory as
// the root that output paths are mirrored from.
func (c *Config) Request(inputIsFile bool) optimizer.Request {
	root := c.Input
	if inputIsFile {
		root = filepath.Dir(c.Input)
	}
	return optimizer.Request{
		InputRoot: root,
		OutputDir: c.OutputDirectory,
		Backup:    c.Backup,
		MaxSize:   c.MaxSize,
		Parallel:  c.Performance.Parallel,
		Workers:   c.Performance.WorkerThreads,
		Codec:     c.CodecOptions(),
	}
}

// LoggerConfig converts the logging section for the logger package.
func (c *Config) LoggerConfig() logger.LoggerConfig {
	return logger.LoggerConfig{
		Level:      strings.ToLower(c.Logging.Level),
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
		Compress:   c.Logging.Compress,
		Console:    true,
		Text:       c.Logging.FilePath == "",
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"image-optimizer-go/internal/codec"
	"image-optimizer-go/internal/config"
	"image-optimizer-go/internal/display"
	"image-optimizer-go/internal/fileops"
	"image-optimizer-go/internal/metadata"
	"image-optimizer-go/internal/scanner"
	"image-optimizer-go/internal/updater"
	"image-optimizer-go/internal/web"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	inspectExiftool bool
	inspectMaxSize  uint32
)

// updateCmd replaces the binary with the latest release.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update image-optimizer to the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdate(cmd)
	},
}

// inspectCmd shows what the optimizer sees in one file.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show format, dimensions, planned resize and metadata of an image",
	Long: `Inspect prints the detected format, size and dimensions of an image,
the dimensions it would be resized to with --max-size, and its EXIF summary.
With --exiftool every tag reported by exiftool is listed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(args[0])
	},
}

// serveCmd starts the web interface server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and WebSocket progress server",
	Long: `Starts a web server that accepts optimization jobs over HTTP and
streams per-file progress to WebSocket clients at /ws.

Endpoints:
- GET  /api/status
- POST /api/optimize
- GET  /api/directories?path=`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectExiftool, "exiftool", false, "list every tag reported by exiftool")
	inspectCmd.Flags().Uint32Var(&inspectMaxSize, "max-size", 0, "show the dimensions after resizing to this edge length")
}

func runUpdate(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := setupLogger(cfg)

	u := updater.New(updater.Options{
		APIURL:         cfg.Update.APIURL,
		Repository:     cfg.Update.Repository,
		CurrentVersion: version,
		Out:            cmd.OutOrStdout(),
		Logger:         log,
	})
	_, err = u.Update(cmd.Context())
	return err
}

func runInspect(path string) error {
	fs := afero.NewOsFs()
	file, err := scanner.New(fs).Open(path)
	if err != nil {
		return err
	}

	size, err := fileops.FileSize(fs, path)
	if err != nil {
		return err
	}

	fields := []display.Field{
		{Label: "Format", Value: file.Format.String()},
		{Label: "Size", Value: fileops.FormatBytes(uint64(size))},
	}

	registry := codec.NewRegistry(fs, codec.DefaultOptions(), nil)
	if img, err := registry.Decode(path); err != nil {
		fields = append(fields, display.Field{Label: "Dimensions", Value: "undecodable: " + err.Error()})
	} else {
		b := img.Bounds()
		fields = append(fields, display.Field{Label: "Dimensions", Value: fmt.Sprintf("%dx%d", b.Dx(), b.Dy())})
		if inspectMaxSize > 0 {
			w, h := fileops.PlanResize(uint32(b.Dx()), uint32(b.Dy()), inspectMaxSize)
			fields = append(fields, display.Field{Label: "Resized", Value: fmt.Sprintf("%dx%d", w, h)})
		}
	}

	if inspectExiftool {
		if !metadata.ExiftoolAvailable() {
			return errors.New("exiftool is not installed")
		}
		tags, err := metadata.ReadAllTags(path)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			fields = append(fields, display.Field{Label: tag.Name, Value: fmt.Sprint(tag.Value)})
		}
	} else {
		fields = append(fields, exifFields(path)...)
	}

	display.Report(os.Stdout, filepath.Base(path), fields)
	return nil
}

func exifFields(path string) []display.Field {
	summary, err := metadata.NewEXIFReader(nil).Read(path)
	if err != nil {
		return []display.Field{{Label: "EXIF", Value: "none"}}
	}

	var fields []display.Field
	add := func(label, value string) {
		if value != "" {
			fields = append(fields, display.Field{Label: label, Value: value})
		}
	}
	add("Camera", strings.TrimSpace(summary.Make+" "+summary.Model))
	add("Software", summary.Software)
	if summary.Orientation != 0 {
		add("Orientation", strconv.Itoa(summary.Orientation)+" ("+metadata.OrientationName(summary.Orientation)+")")
	}
	if summary.DateTime != nil {
		add("Taken", summary.DateTime.Format("2006-01-02 15:04:05"))
	}
	return fields
}

// runServe starts the web server and handles graceful shutdown.
func runServe() error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port == 0 {
		port = cfg.Web.Port
	}

	log := setupLogger(cfg)
	server := web.NewServer(cfg, afero.NewOsFs(), log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	display.Info(os.Stdout, "Web server listening on http://localhost:%d", port)
	display.Info(os.Stdout, "Press Ctrl+C to stop the server")

	<-sigChan
	display.Info(os.Stdout, "Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

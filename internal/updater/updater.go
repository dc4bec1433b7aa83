// Package updater replaces the running binary with the latest GitHub release.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"image-optimizer-go/internal/fileops"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Release is the subset of the GitHub release payload the updater reads.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Options configures an Updater.
type Options struct {
	APIURL         string
	Repository     string
	CurrentVersion string
	// Executable defaults to the running binary.
	Executable string
	// Target defaults to PlatformTarget().
	Target string
	Client *http.Client
	Out    io.Writer
	Logger *logrus.Logger
}

// Updater checks for and installs new releases.
type Updater struct {
	opts Options
}

// New returns an Updater, filling defaults for unset options.
func New(opts Options) *Updater {
	if opts.APIURL == "" {
		opts.APIURL = "https://api.github.com"
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 5 * time.Minute}
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Updater{opts: opts}
}

// LatestRelease fetches the latest release of the configured repository.
func (u *Updater) LatestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", strings.TrimRight(u.opts.APIURL, "/"), u.opts.Repository)
	resp, err := u.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release information: %w", err)
	}
	return &release, nil
}

// Update installs the latest release when it is newer than the running
// version. It reports whether the binary was replaced.
func (u *Updater) Update(ctx context.Context) (bool, error) {
	u.printf("Checking for updates...\n")
	u.printf("Current version: v%s\n", strings.TrimLeft(u.opts.CurrentVersion, "v"))

	release, err := u.LatestRelease(ctx)
	if err != nil {
		return false, err
	}
	u.printf("Latest version: %s\n", release.TagName)

	newer, err := CompareVersions(u.opts.CurrentVersion, release.TagName)
	if err != nil {
		return false, err
	}
	if !newer {
		u.printf("You're already running the latest version!\n")
		return false, nil
	}
	u.printf("New version available: %s\n", release.TagName)

	target := u.opts.Target
	if target == "" {
		if target, err = PlatformTarget(); err != nil {
			return false, err
		}
	}
	asset, ok := findAsset(release.Assets, AssetName(target))
	if !ok {
		return false, fmt.Errorf("no binary found for platform: %s", target)
	}

	u.printf("Downloading update...\n")
	binary, err := u.download(ctx, asset.BrowserDownloadURL)
	if err != nil {
		return false, err
	}

	exe := u.opts.Executable
	if exe == "" {
		if exe, err = currentExecutable(); err != nil {
			return false, err
		}
	}

	backup := withExtension(exe, ".bak")
	u.printf("Creating backup...\n")
	if err := fileops.CopyFile(afero.NewOsFs(), exe, backup); err != nil {
		return false, fmt.Errorf("failed to create backup: %w", err)
	}

	u.printf("Installing update...\n")
	tmp := withExtension(exe, ".tmp")
	if err := os.WriteFile(tmp, binary, 0755); err != nil {
		return false, fmt.Errorf("failed to write updated binary: %w", err)
	}
	if err := os.Rename(tmp, exe); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("failed to install updated binary: %w", err)
	}
	if err := os.Chmod(exe, 0755); err != nil {
		return false, fmt.Errorf("failed to set permissions: %w", err)
	}

	u.opts.Logger.WithField("version", release.TagName).Info("Binary updated")
	u.printf("Successfully updated to %s!\n", release.TagName)
	u.printf("Backup saved to: %s\n", backup)
	return true, nil
}

func (u *Updater) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "image-optimizer/"+strings.TrimLeft(u.opts.CurrentVersion, "v"))

	resp, err := u.opts.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, url)
	}
	return resp, nil
}

func (u *Updater) download(ctx context.Context, url string) ([]byte, error) {
	resp, err := u.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download update: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read update data: %w", err)
	}
	return data, nil
}

func (u *Updater) printf(format string, args ...interface{}) {
	fmt.Fprintf(u.opts.Out, format, args...)
}

func findAsset(assets []Asset, name string) (Asset, bool) {
	for _, a := range assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

func currentExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate current executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

// withExtension replaces the extension of path, or appends one.
func withExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

package updater

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrUnsupportedPlatform is returned for OS/architecture pairs without release binaries.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

var targets = map[string]string{
	"linux/amd64":   "x86_64-unknown-linux-gnu",
	"linux/arm64":   "aarch64-unknown-linux-gnu",
	"darwin/amd64":  "x86_64-apple-darwin",
	"darwin/arm64":  "aarch64-apple-darwin",
	"windows/amd64": "x86_64-pc-windows-msvc",
}

// PlatformTarget returns the release target triple for the running binary.
func PlatformTarget() (string, error) {
	return targetFor(runtime.GOOS, runtime.GOARCH)
}

func targetFor(goos, goarch string) (string, error) {
	t, ok := targets[goos+"/"+goarch]
	if !ok {
		return "", fmt.Errorf("%w: %s-%s", ErrUnsupportedPlatform, goos, goarch)
	}
	return t, nil
}

// AssetName returns the release asset holding the binary for target.
func AssetName(target string) string {
	return "image-optimizer-" + target
}

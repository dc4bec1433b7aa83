package updater

import (
	"fmt"
	"strconv"
	"strings"
)

// CompareVersions reports whether latest is newer than current. Both are
// dotted numeric versions with an optional leading "v". When the shared
// parts are equal, the version with more parts is newer.
func CompareVersions(current, latest string) (bool, error) {
	cur, err := parseVersion(current)
	if err != nil {
		return false, err
	}
	lat, err := parseVersion(latest)
	if err != nil {
		return false, err
	}

	for i := 0; i < min(len(cur), len(lat)); i++ {
		if lat[i] > cur[i] {
			return true, nil
		}
		if cur[i] > lat[i] {
			return false, nil
		}
	}
	return len(lat) > len(cur), nil
}

func parseVersion(v string) ([]uint64, error) {
	parts := strings.Split(strings.TrimLeft(v, "v"), ".")
	nums := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid version format %q: %w", v, err)
		}
		nums[i] = n
	}
	return nums, nil
}

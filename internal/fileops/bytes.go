package fileops

import "fmt"

var byteUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes returns a human-readable size using 1024-based units up to GB.
// Whole bytes are printed without a fraction ("1023 B"), larger units with one
// decimal ("1.5 KB"). Sizes beyond the GB range stay in GB.
func FormatBytes(bytes uint64) string {
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(byteUnits)-1 {
		size /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", bytes, byteUnits[unit])
	}
	return fmt.Sprintf("%.1f %s", size, byteUnits[unit])
}

package discover

import (
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/lumoscope/liquid/envconfig"
)

// GetSystemInfo reports the host configuration the worker pool runs on.
func GetSystemInfo() SystemInfo {
	info := SystemInfo{ThreadCount: envconfig.NumThreads()}

	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		slog.Debug("unable to read system memory", "error", err)
		return info
	}
	info.TotalMemory = uint64(si.Totalram) * uint64(si.Unit)

	return info
}

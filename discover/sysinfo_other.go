//go:build !linux

package discover

import "github.com/lumoscope/liquid/envconfig"

// GetSystemInfo reports the host configuration the worker pool runs on.
// Total memory is only probed on Linux.
func GetSystemInfo() SystemInfo {
	return SystemInfo{ThreadCount: envconfig.NumThreads()}
}

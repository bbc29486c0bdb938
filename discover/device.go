// Package discover enumerates offload-capable compute devices and
// caches compiled device programs for the process lifetime. Offload
// backends (e.g. an OpenCL bridge) register themselves at init; the
// engine only ever sees the Device descriptors reported here.
package discover

import (
	"sort"
	"strings"
)

// Device describes one offload-capable compute device.
type Device struct {
	// ID identifies the device within its backend. It is stable for
	// the process lifetime but may not persist across reboots.
	ID string `json:"id"`

	// Library is the name of the backend that enumerated the device.
	Library string `json:"library"`

	// Name is the device name as labeled by the backend.
	Name string `json:"name"`

	// Vendor is the platform or vendor string, when reported.
	Vendor string `json:"vendor,omitempty"`

	// TotalMemory is the device memory available for buffers.
	TotalMemory uint64 `json:"total_memory,omitempty"`

	// SupportsFP64 reports whether the device can execute
	// double-precision kernels.
	SupportsFP64 bool `json:"supports_fp64"`
}

// SetID returns a stable identifier for a set of devices, used to key
// benchmark history: measurements taken against one device set are not
// comparable to another.
func SetID(devices []Device) string {
	if len(devices) == 0 {
		return "cpu"
	}
	ids := make([]string, len(devices))
	for i, d := range devices {
		ids[i] = d.Library + ":" + d.ID
	}
	sort.Strings(ids)
	return "cpu+" + strings.Join(ids, ",")
}

// SystemInfo describes the host the worker pool runs on.
type SystemInfo struct {
	// ThreadCount is the worker pool size for threaded variants.
	ThreadCount int `json:"threads"`

	// TotalMemory is the total amount of system memory.
	TotalMemory uint64 `json:"total_memory,omitempty"`
}

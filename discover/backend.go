package discover

import (
	"context"
	"fmt"
	"sync"
)

// Backend bridges one device API (OpenCL, CUDA, ...). Implementations
// live outside this repository and register themselves at init time;
// kernel compilation details are theirs alone.
type Backend interface {
	// Name identifies the backend, e.g. "opencl".
	Name() string

	// Enumerate reports the usable devices. Called once per process
	// unless discovery is refreshed.
	Enumerate(ctx context.Context) []Device

	// Compile builds kernel source for a device. The enumerator caches
	// the result per (source, device), so Compile is free to be slow.
	Compile(ctx context.Context, source string, dev Device) (Program, error)
}

// Program is a device-resident compiled kernel, held for the process
// lifetime once built.
type Program interface {
	// Run launches the program over a global work size and blocks until
	// completion.
	Run(ctx context.Context, global []int, args ...any) error

	// Release frees device resources.
	Release()
}

var (
	backendsMu sync.Mutex
	backends   []Backend
)

// Register adds an offload backend. It is typically called from an
// init function in the backend's package.
func Register(b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	for _, existing := range backends {
		if existing.Name() == b.Name() {
			panic(fmt.Sprintf("discover: backend %q registered twice", b.Name()))
		}
	}
	backends = append(backends, b)
}

func registered() []Backend {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	return append([]Backend(nil), backends...)
}

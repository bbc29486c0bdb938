package discover

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumoscope/liquid/envconfig"
	"github.com/lumoscope/liquid/format"
	"github.com/lumoscope/liquid/logutil"
)

// Enumerator discovers devices once per process and owns the compiled
// program cache. The zero value is not usable; call New.
type Enumerator struct {
	mu           sync.Mutex
	bootstrapped bool
	devices      []Device
	programs     map[programKey]Program

	// backends overrides the global registry when non-nil. Used by
	// tests to inject stub backends without global state.
	backends []Backend
}

type programKey struct {
	source  uint64
	library string
	device  string
}

func New() *Enumerator {
	return &Enumerator{programs: make(map[programKey]Program)}
}

// NewWithBackends returns an enumerator restricted to the given
// backends instead of the global registry.
func NewWithBackends(backends ...Backend) *Enumerator {
	e := New()
	e.backends = backends
	return e
}

func (e *Enumerator) backendList() []Backend {
	if e.backends != nil {
		return e.backends
	}
	return registered()
}

// Devices returns the discovered device set, bootstrapping on first
// call. The returned slice is a copy.
func (e *Enumerator) Devices(ctx context.Context) []Device {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.bootstrapped {
		start := time.Now()
		defer func() {
			slog.Debug("device bootstrap discovery took", "duration", time.Since(start))
		}()

		if envconfig.NoOffload() {
			slog.Info("device offload disabled, set LIQUID_NO_OFFLOAD=0 to enable")
		} else {
			slog.Info("discovering available compute devices...")
			for _, b := range e.backendList() {
				for _, dev := range b.Enumerate(ctx) {
					if dev.ID == "" {
						// Some platforms enumerate devices without an
						// identifier; give it one so benchmark history
						// can still be keyed.
						dev.ID = uuid.NewString()
					}
					dev.Library = b.Name()
					slog.Info("discovered device",
						"library", dev.Library,
						"id", dev.ID,
						"name", dev.Name,
						"vendor", dev.Vendor,
						"memory", format.HumanBytes2(dev.TotalMemory),
						"fp64", dev.SupportsFP64,
					)
					e.devices = append(e.devices, dev)
				}
			}
			if len(e.devices) == 0 {
				slog.Debug("no offload-capable devices found")
			}
		}
		e.bootstrapped = true
	}

	return append([]Device(nil), e.devices...)
}

// SetID returns the identifier of the current device set.
func (e *Enumerator) SetID(ctx context.Context) string {
	return SetID(e.Devices(ctx))
}

// Program compiles source for dev, reusing a cached build when the
// same source has already been compiled for the same device.
func (e *Enumerator) Program(ctx context.Context, source string, dev Device) (Program, error) {
	h := fnv.New64a()
	h.Write([]byte(source))
	key := programKey{source: h.Sum64(), library: dev.Library, device: dev.ID}

	e.mu.Lock()
	if p, ok := e.programs[key]; ok {
		e.mu.Unlock()
		logutil.Trace("program cache hit", "library", dev.Library, "device", dev.ID)
		return p, nil
	}
	e.mu.Unlock()

	var backend Backend
	for _, b := range e.backendList() {
		if b.Name() == dev.Library {
			backend = b
			break
		}
	}
	if backend == nil {
		return nil, fmt.Errorf("discover: no backend %q for device %q", dev.Library, dev.ID)
	}

	start := time.Now()
	p, err := backend.Compile(ctx, source, dev)
	if err != nil {
		return nil, fmt.Errorf("compile program for %s/%s: %w", dev.Library, dev.ID, err)
	}
	slog.Debug("compiled device program", "library", dev.Library, "device", dev.ID, "duration", time.Since(start))

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.programs[key]; ok {
		// Lost a compile race; keep the first build.
		p.Release()
		return existing, nil
	}
	e.programs[key] = p
	return p, nil
}

// Close releases every cached program.
func (e *Enumerator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, p := range e.programs {
		p.Release()
		delete(e.programs, key)
	}
}

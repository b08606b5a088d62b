package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/convexlab/qpbridge/logger"
)

var (
	// ErrUnknownBackend is returned when no descriptor is registered under
	// the requested ID.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrBackendUnavailable is returned when a backend is registered but its
	// runtime probe failed.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrDuplicateBackend is returned when a descriptor is registered twice.
	ErrDuplicateBackend = errors.New("backend already registered")
)

// entry pairs a descriptor with its cached availability probe. The probe
// runs at most once between resets. Entry pointers are never replaced after
// Register, so the per-entry mutex alone guards the cached outcome; a
// ResetAvailability racing a solve is safe.
type entry struct {
	desc Descriptor

	mu       sync.Mutex
	probed   bool
	probeErr error
}

var (
	registry  = make(map[ID]*entry)
	registryM sync.RWMutex
)

// Register adds a backend descriptor to the process-wide registry.
func Register(d Descriptor) error {
	if d.ID == UNKNOWN {
		return fmt.Errorf("%w: cannot register the auto sentinel", ErrUnknownBackend)
	}
	if d.New == nil {
		return fmt.Errorf("backend %s: descriptor without adapter constructor", d.ID)
	}
	registryM.Lock()
	defer registryM.Unlock()
	if _, ok := registry[d.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBackend, d.ID)
	}
	registry[d.ID] = &entry{desc: d}
	return nil
}

// MustRegister registers a descriptor and panics on failure. It is meant for
// adapter package init functions, where a duplicate is a programmer error.
func MustRegister(d Descriptor) {
	if err := Register(d); err != nil {
		panic(err)
	}
}

// Describe returns the descriptor registered under id.
func Describe(id ID) (Descriptor, error) {
	registryM.RLock()
	defer registryM.RUnlock()
	e, ok := registry[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}
	return e.desc, nil
}

// IsAvailable probes the backend runtime, caching the outcome for the
// lifetime of the process. It returns ErrUnknownBackend for unregistered
// ids and ErrBackendUnavailable (wrapping the probe failure) when the
// runtime is missing.
func IsAvailable(id ID) error {
	registryM.RLock()
	e, ok := registry[id]
	registryM.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}
	e.mu.Lock()
	if !e.probed {
		e.probed = true
		if e.desc.Probe != nil {
			if err := e.desc.Probe(); err != nil {
				e.probeErr = err
				log := logger.Logger()
				log.Debug().Str("backend", id.String()).Err(err).Msg("backend probe failed")
			}
		}
	}
	probeErr := e.probeErr
	e.mu.Unlock()
	if probeErr != nil {
		return fmt.Errorf("%w: %s: %s", ErrBackendUnavailable, id, probeErr)
	}
	return nil
}

// Available returns the registered backends whose probe succeeds, in
// priority order.
func Available() []ID {
	var out []ID
	for _, id := range Priority() {
		if IsAvailable(id) == nil {
			out = append(out, id)
		}
	}
	// registered backends outside the priority list come last, by id
	registryM.RLock()
	var extra []ID
	for id := range registry {
		if !contains(Priority(), id) {
			extra = append(extra, id)
		}
	}
	registryM.RUnlock()
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	extra = filterAvailable(extra)
	return append(out, extra...)
}

// ResetAvailability discards every cached probe result so the next
// availability query re-probes the runtime. This is the only way the cache
// changes after first use. Safe to call while solves are in flight.
func ResetAvailability() {
	registryM.RLock()
	defer registryM.RUnlock()
	for _, e := range registry {
		e.mu.Lock()
		e.probed = false
		e.probeErr = nil
		e.mu.Unlock()
	}
}

func filterAvailable(ids []ID) []ID {
	var out []ID
	for _, id := range ids {
		if IsAvailable(id) == nil {
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

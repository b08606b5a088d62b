package backend

import "errors"

var (
	// ErrUnsupportedFeature is returned when a problem uses a feature the
	// selected backend does not declare. It is raised before any native
	// call, and re-checked defensively by adapters.
	ErrUnsupportedFeature = errors.New("unsupported problem feature")
	// ErrNoCompatibleBackend is returned when auto-selection exhausts the
	// priority list without finding an available backend covering the
	// problem's features.
	ErrNoCompatibleBackend = errors.New("no compatible backend available")
)

//go:build !debug

// Package debug holds the build-tag controlled debug switch. Building with
// `-tags debug` keeps solver logging enabled under `go test`.
package debug

const Debug = false

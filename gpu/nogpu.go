//go:build nogpu

// Package gpu is empty when built with the nogpu tag; only the software
// compute device is available.
package gpu

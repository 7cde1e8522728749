// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/mandelbrot/internal/parallel"
)

// Dispatch limits that hold on every WebGPU implementation.
const (
	// maxBindingSize is the default maxStorageBufferBindingSize (128 MiB).
	maxBindingSize = 128 << 20

	// offsetAlignment is the default minStorageBufferOffsetAlignment.
	offsetAlignment = 256

	// maxWorkgroups is the default maxComputeWorkgroupsPerDimension.
	maxWorkgroups = 65535

	// paramsSize is the size of the WGSL Params uniform block.
	paramsSize = 32
)

// band is one compute pass: a run of rows bound as its own window of the
// count buffer.
type band struct {
	rowOffset uint32
	rows      uint32
	offset    uint64 // byte offset of the window
	size      uint64 // byte size of the window
}

// planBands splits a width×height dispatch into bands whose buffer windows
// fit a storage binding, start on an aligned offset and need at most
// maxWorkgroups workgroups per dimension. wgX and wgY are the kernel's
// workgroup size.
func planBands(width, height, wgX, wgY uint32) ([]band, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("empty dispatch %dx%d", width, height)
	}
	if wgX == 0 || wgY == 0 {
		return nil, fmt.Errorf("invalid workgroup size %dx%d", wgX, wgY)
	}
	if groups := (uint64(width) + uint64(wgX) - 1) / uint64(wgX); groups > maxWorkgroups {
		return nil, fmt.Errorf("width %d needs %d workgroups, limit is %d", width, groups, maxWorkgroups)
	}

	rowBytes := uint64(width) * 4
	// Band starts must be multiples of rowAlign rows to keep offsets aligned.
	rowAlign := uint64(offsetAlignment) / gcd(rowBytes, offsetAlignment)

	rowsPerBand := uint64(maxBindingSize) / rowBytes
	rowsPerBand = min(rowsPerBand, uint64(maxWorkgroups)*uint64(wgY))
	rowsPerBand -= rowsPerBand % rowAlign
	if rowsPerBand == 0 {
		return nil, fmt.Errorf("row of %d bytes does not fit a %d byte binding", rowBytes, maxBindingSize)
	}

	split := parallel.SplitFixed(int(height), int(rowsPerBand))
	bands := make([]band, len(split))
	for i, b := range split {
		bands[i] = band{
			rowOffset: uint32(b.Start),  //nolint:gosec // bounded by height
			rows:      uint32(b.Rows()), //nolint:gosec // bounded by height
			offset:    uint64(b.Start) * rowBytes,
			size:      uint64(b.Rows()) * rowBytes,
		}
	}
	return bands, nil
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// packParams encodes the Params uniform block of one band.
func packParams(width, height, maxIter uint32, b band) []byte {
	buf := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(buf[0:], width)
	binary.LittleEndian.PutUint32(buf[4:], height)
	binary.LittleEndian.PutUint32(buf[8:], maxIter)
	binary.LittleEndian.PutUint32(buf[12:], b.rowOffset)
	binary.LittleEndian.PutUint32(buf[16:], b.rows)
	// pad0..pad2 stay zero.
	return buf
}

// decodeCounts converts little-endian readback bytes into dst.
func decodeCounts(src []byte, dst []uint32) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(src[i*4:])
	}
}

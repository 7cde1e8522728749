// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mandelbrot/internal/cache"
)

// programCache keeps compiled SPIR-V per WGSL source, so repeated
// evaluations skip naga.
var programCache = cache.New[string, []uint32](8)

// compileWGSL compiles WGSL source to SPIR-V words, consulting the program
// cache first.
func compileWGSL(source string) ([]uint32, error) {
	return programCache.GetOrCreate(source, func() ([]uint32, error) {
		spirvBytes, err := naga.Compile(source)
		if err != nil {
			return nil, fmt.Errorf("compile WGSL: %w", err)
		}
		if len(spirvBytes) == 0 || len(spirvBytes)%4 != 0 {
			return nil, fmt.Errorf("compile WGSL: SPIR-V of %d bytes is not word aligned", len(spirvBytes))
		}
		// SPIR-V is a stream of little-endian 32-bit words.
		words := make([]uint32, len(spirvBytes)/4)
		for i := range words {
			words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
		}
		slogger().Debug("kernel compiled", "spirv_words", len(words))
		return words, nil
	})
}

// program is a compiled compute pipeline with its layouts.
type program struct {
	device     hal.Device
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
	workgroup  [2]uint32
}

// Release destroys the pipeline objects in reverse creation order.
// Release is idempotent.
func (p *program) Release() {
	if p.device == nil {
		return
	}
	if p.pipeline != nil {
		p.device.DestroyComputePipeline(p.pipeline)
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
	}
	*p = program{}
}

var errNoEntryPoint = errors.New("kernel has no entry point")

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan HAL backend.
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/mandelbrot"
)

// DefaultTimeout bounds Finish when DeviceConfig.Timeout is zero.
const DefaultTimeout = 2 * time.Minute

// Device runs the escape-time kernel as a WGSL compute shader through
// wgpu/hal.
//
// The device either opens its own Vulkan adapter (preferring a discrete or
// integrated GPU) or uses a device shared by SetDeviceProvider. A dispatch
// is recorded into one command encoder, one compute pass per row band,
// followed by a copy into a staging buffer; Finish waits on a single fence.
type Device struct {
	mu sync.Mutex

	timeout time.Duration

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  string

	// externalDevice is true when device and queue belong to a provider.
	externalDevice bool

	pending *submission
}

var _ mandelbrot.Device = (*Device)(nil)

// NewDevice creates an unopened wgpu device.
func NewDevice(cfg mandelbrot.DeviceConfig) *Device {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Device{timeout: timeout}
}

// Name returns "wgpu".
func (d *Device) Name() string { return mandelbrot.DeviceWGPU }

// SetLogger sets the logger used by the GPU device.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// Adapter returns the name of the opened adapter, or "" before Open.
func (d *Device) Adapter() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adapter
}

// Open creates the Vulkan device unless a provider device is already set.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		return nil
	}

	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return errors.New("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return errors.New("no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("open device: %w", err)
	}

	d.instance = instance
	d.device = openDev.Device
	d.queue = openDev.Queue
	d.adapter = selected.Info.Name
	slogger().Info("wgpu device opened", "adapter", d.adapter)
	return nil
}

// SetDeviceProvider switches the device to a shared GPU device. The
// provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue. A shared device is never destroyed by Close.
func (d *Device) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return errors.New("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return errors.New("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return errors.New("wgpu: provider HalQueue is not hal.Queue")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.releasePending()
	d.destroyOwned()
	d.device = device
	d.queue = queue
	d.adapter = "shared"
	d.externalDevice = true
	slogger().Debug("wgpu device shared from provider")
	return nil
}

// Close releases any pending dispatch and the device, unless it is shared.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releasePending()
	if d.externalDevice {
		d.device = nil
		d.queue = nil
		d.externalDevice = false
	} else {
		d.destroyOwned()
	}
	d.adapter = ""
}

func (d *Device) destroyOwned() {
	if d.externalDevice {
		return
	}
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
}

// Build compiles the kernel's WGSL to SPIR-V and creates its compute
// pipeline. Binding 0 is the Params uniform, binding 1 the count buffer.
func (d *Device) Build(k *mandelbrot.Kernel) (mandelbrot.Program, error) {
	if k == nil || k.Source == "" {
		return nil, errors.New("kernel has no WGSL source")
	}
	if k.Name == "" {
		return nil, errNoEntryPoint
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return nil, errors.New("device not open")
	}

	spirv, err := compileWGSL(k.Source)
	if err != nil {
		return nil, err
	}

	p := &program{device: d.device, workgroup: k.WorkgroupSize}
	p.shader, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  k.Name,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}

	p.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: k.Name + "_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}

	p.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: k.Name + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	p.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   k.Name + "_pipeline",
		Layout:  p.pipeLayout,
		Compute: hal.ComputeState{Module: p.shader, EntryPoint: k.Name},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("create compute pipeline: %w", err)
	}
	return p, nil
}

// buffer is a storage buffer holding the counts plus the staging buffer it
// is copied into for readback.
type buffer struct {
	device  hal.Device
	storage hal.Buffer
	staging hal.Buffer
	words   int

	// ready is set once a finished dispatch has filled staging.
	ready bool
}

func (b *buffer) Len() int { return b.words }

// Release destroys both buffers. Release is idempotent.
func (b *buffer) Release() {
	if b.device == nil {
		return
	}
	if b.staging != nil {
		b.device.DestroyBuffer(b.staging)
	}
	if b.storage != nil {
		b.device.DestroyBuffer(b.storage)
	}
	*b = buffer{}
}

// Alloc creates a storage buffer of words uint32 slots and its staging
// buffer.
func (d *Device) Alloc(words int) (mandelbrot.DeviceBuffer, error) {
	if words <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", words)
	}
	size := uint64(words) * 4
	if limit := gputypes.DefaultLimits().MaxBufferSize; size > limit {
		return nil, fmt.Errorf("buffer of %d bytes exceeds the %d byte limit", size, limit)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return nil, errors.New("device not open")
	}

	b := &buffer{device: d.device, words: words}
	var err error
	b.storage, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mandelbrot_counts", Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage buffer: %w", err)
	}
	b.staging, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mandelbrot_staging", Size: size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	return b, nil
}

// submission is a dispatch in flight and the resources it holds.
type submission struct {
	device   hal.Device
	cmdBuf   hal.CommandBuffer
	fence    hal.Fence
	uniforms []hal.Buffer
	groups   []hal.BindGroup
	target   *buffer
}

func (s *submission) release() {
	for _, bg := range s.groups {
		if bg != nil {
			s.device.DestroyBindGroup(bg)
		}
	}
	for _, ub := range s.uniforms {
		if ub != nil {
			s.device.DestroyBuffer(ub)
		}
	}
	if s.fence != nil {
		s.device.DestroyFence(s.fence)
	}
	if s.cmdBuf != nil {
		s.device.FreeCommandBuffer(s.cmdBuf)
	}
}

func (d *Device) releasePending() {
	if d.pending != nil {
		d.pending.release()
		d.pending = nil
	}
}

// Enqueue records one compute pass per row band and the staging copy into
// a single command buffer and submits it. It does not wait.
func (d *Device) Enqueue(p mandelbrot.Program, buf mandelbrot.DeviceBuffer, params mandelbrot.KernelParams) error {
	prog, ok := p.(*program)
	if !ok || prog.pipeline == nil {
		return fmt.Errorf("program %T was not built by the wgpu device", p)
	}
	b, ok := buf.(*buffer)
	if !ok || b.storage == nil {
		return fmt.Errorf("buffer %T was not allocated by the wgpu device", buf)
	}
	if b.Len() != params.Pixels() {
		return fmt.Errorf("buffer holds %d slots, dispatch needs %d", b.Len(), params.Pixels())
	}

	bands, err := planBands(params.Width, params.Height, prog.workgroup[0], prog.workgroup[1])
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return errors.New("device not open")
	}
	if d.pending != nil {
		return errors.New("previous dispatch not finished")
	}

	sub := &submission{device: d.device, target: b}
	if err := d.bindBands(sub, prog, b, params, bands); err != nil {
		sub.release()
		return err
	}
	if err := d.encode(sub, prog, b, params, bands); err != nil {
		sub.release()
		return err
	}

	b.ready = false
	d.pending = sub
	slogger().Debug("wgpu dispatch submitted", "bands", len(bands), "width", params.Width, "height", params.Height)
	return nil
}

// bindBands creates the uniform buffer and bind group of every band. All
// bind groups share the count buffer, each bound at its band's window.
func (d *Device) bindBands(sub *submission, prog *program, b *buffer, params mandelbrot.KernelParams, bands []band) error {
	sub.uniforms = make([]hal.Buffer, 0, len(bands))
	sub.groups = make([]hal.BindGroup, 0, len(bands))
	for i, bd := range bands {
		ub, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "mandelbrot_params", Size: paramsSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create uniform buffer %d: %w", i, err)
		}
		sub.uniforms = append(sub.uniforms, ub)
		d.queue.WriteBuffer(ub, 0, packParams(params.Width, params.Height, params.MaxIter, bd))

		bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label: "mandelbrot_bind", Layout: prog.bindLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: paramsSize}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: b.storage.NativeHandle(), Offset: bd.offset, Size: bd.size}},
			},
		})
		if err != nil {
			return fmt.Errorf("create bind group %d: %w", i, err)
		}
		sub.groups = append(sub.groups, bg)
	}
	return nil
}

func (d *Device) encode(sub *submission, prog *program, b *buffer, params mandelbrot.KernelParams, bands []band) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "mandelbrot_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("mandelbrot"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	wgX, wgY := prog.workgroup[0], prog.workgroup[1]
	for i, bd := range bands {
		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "mandelbrot_pass"})
		pass.SetPipeline(prog.pipeline)
		pass.SetBindGroup(0, sub.groups[i], nil)
		pass.Dispatch((params.Width+wgX-1)/wgX, (bd.rows+wgY-1)/wgY, 1)
		pass.End()
	}

	size := uint64(b.words) * 4
	encoder.CopyBufferToBuffer(b.storage, b.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	sub.cmdBuf, err = encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}

	sub.fence, err = d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	if err := d.queue.Submit([]hal.CommandBuffer{sub.cmdBuf}, sub.fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// Finish waits on the fence of the pending dispatch.
func (d *Device) Finish() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sub := d.pending
	if sub == nil {
		return nil
	}
	defer d.releasePending()

	start := time.Now()
	ok, err := d.device.Wait(sub.fence, 1, d.timeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("wait for GPU: timed out after %v", d.timeout)
	}
	sub.target.ready = true
	slogger().Debug("wgpu dispatch complete", "elapsed", time.Since(start))
	return nil
}

// Read copies the staging buffer of a finished dispatch into dst.
func (d *Device) Read(buf mandelbrot.DeviceBuffer, dst []uint32) error {
	b, ok := buf.(*buffer)
	if !ok || b.staging == nil {
		return fmt.Errorf("buffer %T was not allocated by the wgpu device", buf)
	}
	if len(dst) != b.Len() {
		return fmt.Errorf("destination holds %d slots, buffer %d", len(dst), b.Len())
	}
	if !b.ready {
		return errors.New("buffer has no finished dispatch")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue == nil {
		return errors.New("device not open")
	}
	raw := make([]byte, len(dst)*4)
	if err := d.queue.ReadBuffer(b.staging, 0, raw); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	decodeCounts(raw, dst)
	return nil
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpures

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hgraph"
	"github.com/gogpu/hgraph/internal/cache"
)

// ShaderConfig describes a shader module.
type ShaderConfig struct {
	WGSL string

	// Precompile translates the WGSL to SPIR-V with naga before handing it
	// to the device. Translations are cached by source, so recreating the
	// module after a device loss does not compile again.
	Precompile bool
}

// ShaderModule is a compiled shader.
type ShaderModule struct {
	*hgraph.Handle[hal.ShaderModule]
	device DeviceSource
	cfg    ShaderConfig
}

// NewShaderModule registers a shader module handle under device.
func NewShaderModule(g *hgraph.Graph, device DeviceSource, cfg ShaderConfig, opts ...hgraph.HandleOption) *ShaderModule {
	s := &ShaderModule{device: device, cfg: cfg}
	opts = append(opts, hgraph.WithParents(device))
	s.Handle = hgraph.New[hal.ShaderModule](g, s, withKind("shader_module", opts)...)
	return s
}

// SetSource replaces the shader source and recreates the module, and with
// it every pipeline built from it.
func (s *ShaderModule) SetSource(cfg ShaderConfig) bool {
	s.cfg = cfg
	if !s.IsCreated() {
		return false
	}
	return s.Create()
}

// Allocate compiles the shader.
func (s *ShaderModule) Allocate() (hal.ShaderModule, error) {
	gpu, err := gpuOf(s.device)
	if err != nil {
		return nil, err
	}
	src := hal.ShaderSource{WGSL: s.cfg.WGSL}
	if s.cfg.Precompile {
		spirv, err := CompileSPIRV(s.cfg.WGSL)
		if err != nil {
			return nil, fmt.Errorf("shader %s: %w", s.Label(), err)
		}
		src = hal.ShaderSource{SPIRV: spirv}
	}
	module, err := gpu.Device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  s.Label(),
		Source: src,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module %s: %w", s.Label(), err)
	}
	return module, nil
}

// Release destroys the shader module.
func (s *ShaderModule) Release(module hal.ShaderModule) error {
	gpu, err := gpuOf(s.device)
	if err != nil {
		return err
	}
	gpu.Device.DestroyShaderModule(module)
	return nil
}

// spirvCache holds compiled SPIR-V keyed by WGSL source.
var spirvCache = cache.New[string, []uint32](64)

// CompileSPIRV compiles WGSL source to SPIR-V words. Results are cached;
// callers must not modify the returned slice.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	return spirvCache.GetOrCreate(wgsl, func() ([]uint32, error) {
		return compileSPIRV(wgsl)
	})
}

func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	// SPIR-V is a stream of little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// BindGroupLayout describes the bindings of a bind group.
type BindGroupLayout struct {
	*hgraph.Handle[hal.BindGroupLayout]
	device  DeviceSource
	entries []gputypes.BindGroupLayoutEntry
}

// NewBindGroupLayout registers a bind group layout handle under device.
func NewBindGroupLayout(g *hgraph.Graph, device DeviceSource, entries []gputypes.BindGroupLayoutEntry, opts ...hgraph.HandleOption) *BindGroupLayout {
	l := &BindGroupLayout{device: device, entries: entries}
	opts = append(opts, hgraph.WithParents(device))
	l.Handle = hgraph.New[hal.BindGroupLayout](g, l, withKind("bind_group_layout", opts)...)
	return l
}

// Allocate creates the layout.
func (l *BindGroupLayout) Allocate() (hal.BindGroupLayout, error) {
	gpu, err := gpuOf(l.device)
	if err != nil {
		return nil, err
	}
	layout, err := gpu.Device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   l.Label(),
		Entries: l.entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout %s: %w", l.Label(), err)
	}
	return layout, nil
}

// Release destroys the layout.
func (l *BindGroupLayout) Release(layout hal.BindGroupLayout) error {
	gpu, err := gpuOf(l.device)
	if err != nil {
		return err
	}
	gpu.Device.DestroyBindGroupLayout(layout)
	return nil
}

// PipelineLayout combines bind group layouts.
type PipelineLayout struct {
	*hgraph.Handle[hal.PipelineLayout]
	device  DeviceSource
	layouts []*BindGroupLayout
}

// NewPipelineLayout registers a pipeline layout over layouts. Its parents
// are the device and every bind group layout.
func NewPipelineLayout(g *hgraph.Graph, device DeviceSource, layouts []*BindGroupLayout, opts ...hgraph.HandleOption) *PipelineLayout {
	p := &PipelineLayout{device: device, layouts: layouts}
	parents := []hgraph.Node{device}
	for _, l := range layouts {
		parents = append(parents, l)
	}
	opts = append(opts, hgraph.WithParents(parents...))
	p.Handle = hgraph.New[hal.PipelineLayout](g, p, withKind("pipeline_layout", opts)...)
	return p
}

// Allocate creates the pipeline layout.
func (p *PipelineLayout) Allocate() (hal.PipelineLayout, error) {
	gpu, err := gpuOf(p.device)
	if err != nil {
		return nil, err
	}
	layouts := make([]hal.BindGroupLayout, 0, len(p.layouts))
	for _, l := range p.layouts {
		v, ok := l.Get()
		if !ok {
			return nil, fmt.Errorf("bind group layout %s: %w", l.Label(), ErrParentAbsent)
		}
		layouts = append(layouts, v)
	}
	layout, err := gpu.Device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.Label(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout %s: %w", p.Label(), err)
	}
	return layout, nil
}

// Release destroys the pipeline layout.
func (p *PipelineLayout) Release(layout hal.PipelineLayout) error {
	gpu, err := gpuOf(p.device)
	if err != nil {
		return err
	}
	gpu.Device.DestroyPipelineLayout(layout)
	return nil
}

// RenderPipelineConfig describes a render pipeline.
type RenderPipelineConfig struct {
	VertexEntry   string // defaults to "vs_main"
	FragmentEntry string // defaults to "fs_main"

	VertexBuffers []gputypes.VertexBufferLayout

	// Format of the color target. Undefined uses the device's surface
	// format, or BGRA8Unorm if it has none.
	Format gputypes.TextureFormat

	// SampleCount defaults to 1.
	SampleCount uint32
}

// RenderPipeline is a render pipeline built from one shader module.
type RenderPipeline struct {
	*hgraph.Handle[hal.RenderPipeline]
	device DeviceSource
	layout *PipelineLayout
	shader *ShaderModule
	cfg    RenderPipelineConfig
}

// NewRenderPipeline registers a render pipeline. Its parents are the device,
// the pipeline layout and the shader module.
func NewRenderPipeline(g *hgraph.Graph, device DeviceSource, layout *PipelineLayout, shader *ShaderModule, cfg RenderPipelineConfig, opts ...hgraph.HandleOption) *RenderPipeline {
	if cfg.VertexEntry == "" {
		cfg.VertexEntry = "vs_main"
	}
	if cfg.FragmentEntry == "" {
		cfg.FragmentEntry = "fs_main"
	}
	if cfg.SampleCount == 0 {
		cfg.SampleCount = 1
	}
	r := &RenderPipeline{device: device, layout: layout, shader: shader, cfg: cfg}
	opts = append(opts, hgraph.WithParents(device, layout, shader))
	r.Handle = hgraph.New[hal.RenderPipeline](g, r, withKind("render_pipeline", opts)...)
	return r
}

// Allocate creates the pipeline.
func (r *RenderPipeline) Allocate() (hal.RenderPipeline, error) {
	gpu, err := gpuOf(r.device)
	if err != nil {
		return nil, err
	}
	layout, ok := r.layout.Get()
	if !ok {
		return nil, fmt.Errorf("pipeline layout %s: %w", r.layout.Label(), ErrParentAbsent)
	}
	module, ok := r.shader.Get()
	if !ok {
		return nil, fmt.Errorf("shader %s: %w", r.shader.Label(), ErrParentAbsent)
	}
	format := r.cfg.Format
	if format == gputypes.TextureFormatUndefined {
		format = gpu.SurfaceFormat
	}
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	pipeline, err := gpu.Device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  r.Label(),
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: r.cfg.VertexEntry,
			Buffers:    r.cfg.VertexBuffers,
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: r.cfg.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{Format: format, WriteMask: gputypes.ColorWriteMaskAll},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: r.cfg.SampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline %s: %w", r.Label(), err)
	}
	return pipeline, nil
}

// Release destroys the pipeline.
func (r *RenderPipeline) Release(pipeline hal.RenderPipeline) error {
	gpu, err := gpuOf(r.device)
	if err != nil {
		return err
	}
	gpu.Device.DestroyRenderPipeline(pipeline)
	return nil
}

// ComputePipeline is a compute pipeline.
type ComputePipeline struct {
	*hgraph.Handle[hal.ComputePipeline]
	device     DeviceSource
	layout     *PipelineLayout
	shader     *ShaderModule
	entryPoint string
}

// NewComputePipeline registers a compute pipeline. entryPoint defaults to
// "cs_main".
func NewComputePipeline(g *hgraph.Graph, device DeviceSource, layout *PipelineLayout, shader *ShaderModule, entryPoint string, opts ...hgraph.HandleOption) *ComputePipeline {
	if entryPoint == "" {
		entryPoint = "cs_main"
	}
	c := &ComputePipeline{device: device, layout: layout, shader: shader, entryPoint: entryPoint}
	opts = append(opts, hgraph.WithParents(device, layout, shader))
	c.Handle = hgraph.New[hal.ComputePipeline](g, c, withKind("compute_pipeline", opts)...)
	return c
}

// Allocate creates the pipeline.
func (c *ComputePipeline) Allocate() (hal.ComputePipeline, error) {
	gpu, err := gpuOf(c.device)
	if err != nil {
		return nil, err
	}
	layout, ok := c.layout.Get()
	if !ok {
		return nil, fmt.Errorf("pipeline layout %s: %w", c.layout.Label(), ErrParentAbsent)
	}
	module, ok := c.shader.Get()
	if !ok {
		return nil, fmt.Errorf("shader %s: %w", c.shader.Label(), ErrParentAbsent)
	}
	pipeline, err := gpu.Device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  c.Label(),
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: c.entryPoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline %s: %w", c.Label(), err)
	}
	return pipeline, nil
}

// Release destroys the pipeline.
func (c *ComputePipeline) Release(pipeline hal.ComputePipeline) error {
	gpu, err := gpuOf(c.device)
	if err != nil {
		return err
	}
	gpu.Device.DestroyComputePipeline(pipeline)
	return nil
}

// BufferEntry binds a buffer to a binding slot of a bind group.
type BufferEntry struct {
	Binding uint32
	Buffer  *Buffer
}

// BindGroup binds buffers according to a layout.
type BindGroup struct {
	*hgraph.Handle[hal.BindGroup]
	device  DeviceSource
	layout  *BindGroupLayout
	entries []BufferEntry
}

// NewBindGroup registers a bind group. Its parents are the device, the
// layout and every bound buffer.
func NewBindGroup(g *hgraph.Graph, device DeviceSource, layout *BindGroupLayout, entries []BufferEntry, opts ...hgraph.HandleOption) *BindGroup {
	b := &BindGroup{device: device, layout: layout, entries: entries}
	parents := []hgraph.Node{device, layout}
	for _, e := range entries {
		parents = append(parents, e.Buffer)
	}
	opts = append(opts, hgraph.WithParents(parents...))
	b.Handle = hgraph.New[hal.BindGroup](g, b, withKind("bind_group", opts)...)
	return b
}

// Allocate creates the bind group.
func (b *BindGroup) Allocate() (hal.BindGroup, error) {
	gpu, err := gpuOf(b.device)
	if err != nil {
		return nil, err
	}
	layout, ok := b.layout.Get()
	if !ok {
		return nil, fmt.Errorf("bind group layout %s: %w", b.layout.Label(), ErrParentAbsent)
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(b.entries))
	for _, e := range b.entries {
		buf, ok := e.Buffer.Get()
		if !ok {
			return nil, fmt.Errorf("buffer %s: %w", e.Buffer.Label(), ErrParentAbsent)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: e.Binding,
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(), Offset: 0, Size: e.Buffer.Size(),
			},
		})
	}
	group, err := gpu.Device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   b.Label(),
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group %s: %w", b.Label(), err)
	}
	return group, nil
}

// Release destroys the bind group.
func (b *BindGroup) Release(group hal.BindGroup) error {
	gpu, err := gpuOf(b.device)
	if err != nil {
		return err
	}
	gpu.Device.DestroyBindGroup(group)
	return nil
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpures

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hgraph"
)

// TextureSource is a node that provides a texture to views.
type TextureSource interface {
	hgraph.Node
	HalTexture() hal.Texture
	TextureFormat() gputypes.TextureFormat
	Device() DeviceSource
}

// TextureConfig describes a 2D texture.
type TextureConfig struct {
	Width, Height uint32

	// Format defaults to BGRA8Unorm.
	Format gputypes.TextureFormat

	// Usage defaults to RenderAttachment | CopySrc.
	Usage gputypes.TextureUsage

	// SampleCount defaults to 1.
	SampleCount uint32

	// MipLevelCount defaults to 1.
	MipLevelCount uint32
}

func (c TextureConfig) withDefaults() TextureConfig {
	if c.Format == gputypes.TextureFormatUndefined {
		c.Format = gputypes.TextureFormatBGRA8Unorm
	}
	if c.Usage == 0 {
		c.Usage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc
	}
	if c.SampleCount == 0 {
		c.SampleCount = 1
	}
	if c.MipLevelCount == 0 {
		c.MipLevelCount = 1
	}
	return c
}

// Texture is a texture owned by the graph.
type Texture struct {
	*hgraph.Handle[hal.Texture]
	device DeviceSource
	cfg    TextureConfig
}

// NewTexture registers a texture handle under device.
func NewTexture(g *hgraph.Graph, device DeviceSource, cfg TextureConfig, opts ...hgraph.HandleOption) *Texture {
	t := &Texture{device: device, cfg: cfg.withDefaults()}
	opts = append(opts, hgraph.WithParents(device))
	t.Handle = hgraph.New[hal.Texture](g, t, withKind("texture", opts)...)
	return t
}

// Config returns the current texture configuration.
func (t *Texture) Config() TextureConfig { return t.cfg }

// HalTexture returns the texture, or nil if absent.
func (t *Texture) HalTexture() hal.Texture { return t.Value() }

// TextureFormat returns the configured format.
func (t *Texture) TextureFormat() gputypes.TextureFormat { return t.cfg.Format }

// Device returns the device the texture is allocated on.
func (t *Texture) Device() DeviceSource { return t.device }

// Resize changes the texture size. If the texture exists it is recreated
// together with every view and bind group depending on it. Resizing to the
// current size does nothing.
func (t *Texture) Resize(width, height uint32) bool {
	if width == t.cfg.Width && height == t.cfg.Height {
		return t.IsCreated()
	}
	t.cfg.Width, t.cfg.Height = width, height
	if !t.IsCreated() {
		return false
	}
	return t.Create()
}

// Allocate creates the texture.
func (t *Texture) Allocate() (hal.Texture, error) {
	gpu, err := gpuOf(t.device)
	if err != nil {
		return nil, err
	}
	return createTexture(gpu, t.Label(), t.cfg)
}

// Release destroys the texture.
func (t *Texture) Release(tex hal.Texture) error {
	gpu, err := gpuOf(t.device)
	if err != nil {
		return err
	}
	gpu.Device.DestroyTexture(tex)
	return nil
}

func createTexture(gpu *GPU, label string, cfg TextureConfig) (hal.Texture, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("create texture %s: empty size %dx%d", label, cfg.Width, cfg.Height)
	}
	tex, err := gpu.Device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: cfg.Width, Height: cfg.Height, DepthOrArrayLayers: 1},
		MipLevelCount: cfg.MipLevelCount,
		SampleCount:   cfg.SampleCount,
		Dimension:     gputypes.TextureDimension2D,
		Format:        cfg.Format,
		Usage:         cfg.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	return tex, nil
}

// AcquireFunc returns a texture owned by someone else, typically the next
// swapchain image of a surface.
type AcquireFunc func() (hal.Texture, error)

// SurfaceTexture is a texture the graph does not own. It is never
// destroyed by the graph, but views created from it are.
type SurfaceTexture struct {
	*hgraph.Handle[hal.Texture]
	device  DeviceSource
	acquire AcquireFunc
	format  gputypes.TextureFormat
}

// NewSurfaceTexture registers a non-destroyable texture handle. If format is
// Undefined the device's surface format is used.
func NewSurfaceTexture(g *hgraph.Graph, device DeviceSource, format gputypes.TextureFormat, acquire AcquireFunc, opts ...hgraph.HandleOption) *SurfaceTexture {
	s := &SurfaceTexture{device: device, acquire: acquire, format: format}
	opts = append(opts, hgraph.WithParents(device), hgraph.External())
	s.Handle = hgraph.New[hal.Texture](g, s, withKind("surface_texture", opts)...)
	return s
}

// HalTexture returns the acquired texture, or nil if absent.
func (s *SurfaceTexture) HalTexture() hal.Texture { return s.Value() }

// TextureFormat returns the surface format.
func (s *SurfaceTexture) TextureFormat() gputypes.TextureFormat {
	if s.format == gputypes.TextureFormatUndefined {
		if gpu := s.device.GPU(); gpu != nil && gpu.SurfaceFormat != gputypes.TextureFormatUndefined {
			return gpu.SurfaceFormat
		}
		return gputypes.TextureFormatBGRA8Unorm
	}
	return s.format
}

// Device returns the device the texture belongs to.
func (s *SurfaceTexture) Device() DeviceSource { return s.device }

// Allocate acquires the texture.
func (s *SurfaceTexture) Allocate() (hal.Texture, error) {
	if _, err := gpuOf(s.device); err != nil {
		return nil, err
	}
	return s.acquire()
}

// Release is never called for a surface texture.
func (s *SurfaceTexture) Release(hal.Texture) error { return nil }

// TextureView is a view of a texture.
type TextureView struct {
	*hgraph.Handle[hal.TextureView]
	texture TextureSource
}

// NewTextureView registers a view of texture.
func NewTextureView(g *hgraph.Graph, texture TextureSource, opts ...hgraph.HandleOption) *TextureView {
	v := &TextureView{texture: texture}
	opts = append(opts, hgraph.WithParents(texture))
	v.Handle = hgraph.New[hal.TextureView](g, v, withKind("texture_view", opts)...)
	return v
}

// Allocate creates the view.
func (v *TextureView) Allocate() (hal.TextureView, error) {
	gpu, err := gpuOf(v.texture.Device())
	if err != nil {
		return nil, err
	}
	tex := v.texture.HalTexture()
	if tex == nil {
		return nil, fmt.Errorf("texture %s: %w", v.texture.Label(), ErrParentAbsent)
	}
	view, err := gpu.Device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         v.Label(),
		Format:        v.texture.TextureFormat(),
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture view %s: %w", v.Label(), err)
	}
	return view, nil
}

// Release destroys the view.
func (v *TextureView) Release(view hal.TextureView) error {
	gpu, err := gpuOf(v.texture.Device())
	if err != nil {
		return err
	}
	gpu.Device.DestroyTextureView(view)
	return nil
}

// SamplerConfig describes a sampler. The zero value is a linear,
// clamp-to-edge sampler.
type SamplerConfig struct {
	Nearest bool // nearest filtering instead of linear
	Repeat  bool // repeat addressing instead of clamp-to-edge
}

func (c SamplerConfig) modes() (gputypes.AddressMode, gputypes.FilterMode) {
	addr, filter := gputypes.AddressModeClampToEdge, gputypes.FilterModeLinear
	if c.Repeat {
		addr = gputypes.AddressModeRepeat
	}
	if c.Nearest {
		filter = gputypes.FilterModeNearest
	}
	return addr, filter
}

// Sampler is a texture sampler.
type Sampler struct {
	*hgraph.Handle[hal.Sampler]
	device DeviceSource
	cfg    SamplerConfig
}

// NewSampler registers a sampler handle under device.
func NewSampler(g *hgraph.Graph, device DeviceSource, cfg SamplerConfig, opts ...hgraph.HandleOption) *Sampler {
	s := &Sampler{device: device, cfg: cfg}
	opts = append(opts, hgraph.WithParents(device))
	s.Handle = hgraph.New[hal.Sampler](g, s, withKind("sampler", opts)...)
	return s
}

// Allocate creates the sampler.
func (s *Sampler) Allocate() (hal.Sampler, error) {
	gpu, err := gpuOf(s.device)
	if err != nil {
		return nil, err
	}
	addr, filter := s.cfg.modes()
	sampler, err := gpu.Device.CreateSampler(&hal.SamplerDescriptor{
		Label:        s.Label(),
		AddressModeU: addr,
		AddressModeV: addr,
		AddressModeW: addr,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler %s: %w", s.Label(), err)
	}
	return sampler, nil
}

// Release destroys the sampler.
func (s *Sampler) Release(sampler hal.Sampler) error {
	gpu, err := gpuOf(s.device)
	if err != nil {
		return err
	}
	gpu.Device.DestroySampler(sampler)
	return nil
}

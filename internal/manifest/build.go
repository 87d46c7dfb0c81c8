// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package manifest

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // image decoders for image_texture
	_ "image/png"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hgraph"
	"github.com/gogpu/hgraph/gpures"
)

// Kinds lists the resource kinds a manifest may declare.
var Kinds = []string{
	"instance", "device", "texture", "texture_view", "sampler", "buffer",
	"image_texture", "shader_module", "bind_group_layout", "pipeline_layout",
	"render_pipeline", "compute_pipeline", "bind_group", "fence",
}

// BuildOptions adjusts how a manifest is turned into a graph.
type BuildOptions struct {
	// Backend overrides the backend of every instance ("noop", "vulkan").
	Backend string
}

// Built is a manifest registered in a graph.
type Built struct {
	Graph *hgraph.Graph

	// Order holds the resource names in declaration order.
	Order []string

	nodes map[string]hgraph.Node
}

// Lookup returns the node declared under name.
func (b *Built) Lookup(name string) (hgraph.Node, error) {
	n, ok := b.nodes[name]
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", name)
	}
	return n, nil
}

// CreateAll creates every resource in declaration order. It keeps going
// after failures and returns them joined.
func (b *Built) CreateAll() error {
	var errs []error
	for _, name := range b.Order {
		n := b.nodes[name]
		if n.IsCreated() {
			continue
		}
		if !n.Create() {
			errs = append(errs, fmt.Errorf("create %s: %w", name, nodeErr(n)))
		}
	}
	return errors.Join(errs...)
}

// nodeErr returns the last hook error of n, if n exposes one.
func nodeErr(n hgraph.Node) error {
	if e, ok := n.(interface{ Err() error }); ok && e.Err() != nil {
		return e.Err()
	}
	return errors.New("not created")
}

// Build registers every resource of m in g.
func (m *Manifest) Build(g *hgraph.Graph, opts BuildOptions) (*Built, error) {
	b := &Built{Graph: g, nodes: make(map[string]hgraph.Node, len(m.Resources))}
	for _, r := range m.Resources {
		n, err := m.build(b, r, opts)
		if err != nil {
			return nil, fmt.Errorf("resource %s %q: %w", r.Kind, r.Name, err)
		}
		b.nodes[r.Name] = n
		b.Order = append(b.Order, r.Name)
	}
	return b, nil
}

func (m *Manifest) build(b *Built, r *Resource, opts BuildOptions) (hgraph.Node, error) {
	if !slices.Contains(Kinds, r.Kind) {
		return nil, fmt.Errorf("unknown kind (want one of %s)", strings.Join(Kinds, ", "))
	}
	g := b.Graph
	label := hgraph.WithLabel(r.Name)

	switch r.Kind {
	case "instance":
		backend := r.Backend
		if opts.Backend != "" {
			backend = opts.Backend
		}
		factory, err := instanceFactory(backend)
		if err != nil {
			return nil, err
		}
		return gpures.NewInstance(g, factory, label), nil

	case "device":
		inst, err := ref[*gpures.Instance](b, r.Parent, "instance")
		if err != nil {
			return nil, err
		}
		return gpures.NewDevice(g, inst, gpures.DeviceConfig{AllowSoftware: true}, label), nil

	case "texture_view":
		tex, err := ref[gpures.TextureSource](b, r.Parent, "texture")
		if err != nil {
			return nil, err
		}
		return gpures.NewTextureView(g, tex, label), nil
	}

	// Everything else lives on a device.
	dev, err := ref[gpures.DeviceSource](b, r.Parent, "device")
	if err != nil {
		return nil, err
	}

	switch r.Kind {
	case "texture":
		format, err := parseFormat(r.Format)
		if err != nil {
			return nil, err
		}
		usage, err := parseTextureUsage(r.Usage)
		if err != nil {
			return nil, err
		}
		return gpures.NewTexture(g, dev, gpures.TextureConfig{
			Width:       r.Width,
			Height:      r.Height,
			Format:      format,
			Usage:       usage,
			SampleCount: r.SampleCount,
		}, label), nil

	case "sampler":
		return gpures.NewSampler(g, dev, gpures.SamplerConfig{Nearest: r.Nearest, Repeat: r.Repeat}, label), nil

	case "buffer":
		usage, err := parseBufferUsage(r.Usage)
		if err != nil {
			return nil, err
		}
		cfg := gpures.BufferConfig{Size: r.Size, Usage: usage}
		if r.Contents != "" {
			cfg.Contents = []byte(r.Contents)
		}
		return gpures.NewBuffer(g, dev, cfg, label), nil

	case "image_texture":
		img, err := m.loadImage(r.Image)
		if err != nil {
			return nil, err
		}
		return gpures.NewImageTexture(g, dev, img, r.Width, r.Height, label), nil

	case "shader_module":
		src := r.WGSL
		if r.WGSLFile != "" {
			data, err := os.ReadFile(m.path(r.WGSLFile))
			if err != nil {
				return nil, fmt.Errorf("read shader: %w", err)
			}
			src = string(data)
		}
		if src == "" {
			return nil, errors.New("wgsl or wgsl_file is required")
		}
		return gpures.NewShaderModule(g, dev, gpures.ShaderConfig{WGSL: src, Precompile: r.Precompile}, label), nil

	case "bind_group_layout":
		entries := make([]gputypes.BindGroupLayoutEntry, r.Uniforms)
		for i := range entries {
			entries[i] = gputypes.BindGroupLayoutEntry{
				Binding:    uint32(i), //nolint:gosec // bounded by r.Uniforms
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment | gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			}
		}
		return gpures.NewBindGroupLayout(g, dev, entries, label), nil

	case "pipeline_layout":
		layouts := make([]*gpures.BindGroupLayout, 0, len(r.Layouts))
		for _, name := range r.Layouts {
			l, err := ref[*gpures.BindGroupLayout](b, name, "bind_group_layout")
			if err != nil {
				return nil, err
			}
			layouts = append(layouts, l)
		}
		return gpures.NewPipelineLayout(g, dev, layouts, label), nil

	case "render_pipeline", "compute_pipeline":
		layout, err := ref[*gpures.PipelineLayout](b, r.Layout, "pipeline_layout")
		if err != nil {
			return nil, err
		}
		shader, err := ref[*gpures.ShaderModule](b, r.Shader, "shader_module")
		if err != nil {
			return nil, err
		}
		if r.Kind == "compute_pipeline" {
			return gpures.NewComputePipeline(g, dev, layout, shader, r.EntryPoint, label), nil
		}
		format, err := parseFormat(r.Format)
		if err != nil {
			return nil, err
		}
		return gpures.NewRenderPipeline(g, dev, layout, shader, gpures.RenderPipelineConfig{
			Format:      format,
			SampleCount: r.SampleCount,
		}, label), nil

	case "bind_group":
		layout, err := ref[*gpures.BindGroupLayout](b, r.Layout, "bind_group_layout")
		if err != nil {
			return nil, err
		}
		entries := make([]gpures.BufferEntry, 0, len(r.Buffers))
		for i, name := range r.Buffers {
			buf, err := ref[*gpures.Buffer](b, name, "buffer")
			if err != nil {
				return nil, err
			}
			entries = append(entries, gpures.BufferEntry{Binding: uint32(i), Buffer: buf}) //nolint:gosec // small index
		}
		return gpures.NewBindGroup(g, dev, layout, entries, label), nil

	case "fence":
		return gpures.NewFence(g, dev, label), nil
	}
	panic("unreachable: kind " + r.Kind)
}

// ref resolves a reference to an earlier resource of type T.
func ref[T hgraph.Node](b *Built, name, want string) (T, error) {
	var zero T
	if name == "" {
		return zero, fmt.Errorf("missing reference to a %s", want)
	}
	n, ok := b.nodes[name]
	if !ok {
		return zero, fmt.Errorf("unknown resource %q (resources must be declared after what they depend on)", name)
	}
	t, ok := n.(T)
	if !ok {
		return zero, fmt.Errorf("resource %q is a %s, want %s", name, n.Kind(), want)
	}
	return t, nil
}

func (m *Manifest) path(p string) string {
	if filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}

func (m *Manifest) loadImage(p string) (image.Image, error) {
	if p == "" {
		return nil, errors.New("image is required")
	}
	f, err := os.Open(m.path(p))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", p, err)
	}
	return img, nil
}

func instanceFactory(backend string) (gpures.InstanceFactory, error) {
	switch backend {
	case "", "noop":
		return gpures.NoopInstance, nil
	case "vulkan":
		return gpures.BackendInstance(gputypes.BackendVulkan), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want noop or vulkan)", backend)
	}
}

var textureFormats = map[string]gputypes.TextureFormat{
	"bgra8unorm":           gputypes.TextureFormatBGRA8Unorm,
	"rgba8unorm":           gputypes.TextureFormatRGBA8Unorm,
	"depth24plus-stencil8": gputypes.TextureFormatDepth24PlusStencil8,
}

func parseFormat(s string) (gputypes.TextureFormat, error) {
	if s == "" {
		return gputypes.TextureFormatUndefined, nil
	}
	f, ok := textureFormats[strings.ToLower(s)]
	if !ok {
		return gputypes.TextureFormatUndefined, fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(keys(textureFormats), ", "))
	}
	return f, nil
}

var textureUsages = map[string]gputypes.TextureUsage{
	"copy_src":          gputypes.TextureUsageCopySrc,
	"copy_dst":          gputypes.TextureUsageCopyDst,
	"texture_binding":   gputypes.TextureUsageTextureBinding,
	"render_attachment": gputypes.TextureUsageRenderAttachment,
}

func parseTextureUsage(names []string) (gputypes.TextureUsage, error) {
	var u gputypes.TextureUsage
	for _, name := range names {
		bit, ok := textureUsages[name]
		if !ok {
			return 0, fmt.Errorf("unknown texture usage %q (want one of %s)", name, strings.Join(keys(textureUsages), ", "))
		}
		u |= bit
	}
	return u, nil
}

var bufferUsages = map[string]gputypes.BufferUsage{
	"map_read": gputypes.BufferUsageMapRead,
	"copy_src": gputypes.BufferUsageCopySrc,
	"copy_dst": gputypes.BufferUsageCopyDst,
	"uniform":  gputypes.BufferUsageUniform,
	"storage":  gputypes.BufferUsageStorage,
	"vertex":   gputypes.BufferUsageVertex,
	"index":    gputypes.BufferUsageIndex,
}

func parseBufferUsage(names []string) (gputypes.BufferUsage, error) {
	var u gputypes.BufferUsage
	for _, name := range names {
		bit, ok := bufferUsages[name]
		if !ok {
			return 0, fmt.Errorf("unknown buffer usage %q (want one of %s)", name, strings.Join(keys(bufferUsages), ", "))
		}
		u |= bit
	}
	return u, nil
}

func keys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package manifest

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/gogpu/hgraph"
	"github.com/gogpu/hgraph/gpures"
)

const sample = `
variable "width" {
  default = 320
}

variable "label" {
  default = "main"
}

resource "instance" "inst" {}

resource "device" "gpu" {
  parent = "inst"
}

resource "texture" "color" {
  parent = "gpu"
  width  = var.width
  height = 240
  format = "bgra8unorm"
  usage  = ["render_attachment", "copy_src"]
}

resource "texture_view" "color_view" {
  parent = "color"
}

resource "sampler" "linear" {
  parent = "gpu"
}

resource "buffer" "uniforms" {
  parent   = "gpu"
  size     = 64
  usage    = ["uniform"]
  contents = "hello"
}

resource "bind_group_layout" "globals" {
  parent   = "gpu"
  uniforms = 1
}

resource "pipeline_layout" "layout" {
  parent  = "gpu"
  layouts = ["globals"]
}

resource "shader_module" "shader" {
  parent = "gpu"
  wgsl   = "@compute @workgroup_size(1) fn cs_main() {}"
}

resource "compute_pipeline" "compute" {
  parent = "gpu"
  layout = "layout"
  shader = "shader"
}

resource "render_pipeline" "draw" {
  parent = "gpu"
  layout = "layout"
  shader = "shader"
}

resource "bind_group" "globals_group" {
  parent  = "gpu"
  layout  = "globals"
  buffers = ["uniforms"]
}

resource "fence" "frame" {
  parent = "gpu"
}
`

func ctyEqual(a, b cty.Value) bool {
	return a.Type().Equals(b.Type()) && a.Equals(b).True()
}

func TestParseVariables(t *testing.T) {
	m, err := Parse([]byte(sample), "sample.hcl", nil)
	require.NoError(t, err)

	assert.True(t, ctyEqual(m.Variables["width"], cty.NumberIntVal(320)))
	assert.True(t, ctyEqual(m.Variables["label"], cty.StringVal("main")))
	require.Len(t, m.Resources, 13)
	assert.Equal(t, "instance", m.Resources[0].Kind)
	assert.Equal(t, uint32(320), m.Resources[2].Width)
	assert.Equal(t, []string{"render_attachment", "copy_src"}, m.Resources[2].Usage)
}

func TestParseOverrides(t *testing.T) {
	m, err := Parse([]byte(sample), "sample.hcl", map[string]string{
		"width": "1024",
		"label": "other",
	})
	require.NoError(t, err)

	assert.Equal(t, uint32(1024), m.Resources[2].Width)
	assert.True(t, ctyEqual(m.Variables["label"], cty.StringVal("other")))
}

func TestParseOverrideValues(t *testing.T) {
	tests := []struct {
		raw  string
		want cty.Value
	}{
		{"800", cty.NumberIntVal(800)},
		{"true", cty.True},
		{`"quoted"`, cty.StringVal("quoted")},
		{"noop", cty.StringVal("noop")},
		{"a b", cty.StringVal("a b")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := parseOverride(tt.raw)
			assert.True(t, ctyEqual(got, tt.want), "got %#v", got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		overrides map[string]string
		want      string
	}{
		{"syntax", `resource "device" {`, nil, "failed to parse"},
		{"undeclared override", `variable "a" { default = 1 }`, map[string]string{"b": "2"}, `undeclared variable "b"`},
		{"missing value", `variable "a" {}`, nil, `variable "a" has no value`},
		{"duplicate variable", "variable \"a\" { default = 1 }\nvariable \"a\" { default = 2 }", nil, "declared twice"},
		{"duplicate resource", "resource \"instance\" \"x\" {}\nresource \"fence\" \"x\" {}", nil, `resource "x" declared twice`},
		{"unknown attribute", `resource "instance" "x" { colour = 1 }`, nil, "failed to decode resources"},
		{"unknown variable", `resource "instance" "x" { backend = var.nope }`, nil, "failed to decode resources"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.hcl", tt.overrides)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildAndCreate(t *testing.T) {
	m, err := Parse([]byte(sample), "sample.hcl", nil)
	require.NoError(t, err)

	g := hgraph.NewGraph()
	t.Cleanup(g.Close)
	b, err := m.Build(g, BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, b.CreateAll())

	assert.Equal(t, 13, g.Len())
	for _, name := range b.Order {
		n, err := b.Lookup(name)
		require.NoError(t, err)
		assert.True(t, n.IsCreated(), name)
	}

	colorNode, err := b.Lookup("color")
	require.NoError(t, err)
	tex, ok := colorNode.(*gpures.Texture)
	require.True(t, ok)
	assert.Equal(t, uint32(320), tex.Config().Width)

	// The pipeline layout depends on both the device and the bind group
	// layout, so recreating the layout rebuilds it and both pipelines.
	globals, err := b.Lookup("globals")
	require.NoError(t, err)
	require.True(t, globals.Create())
	for _, name := range []string{"layout", "compute", "draw", "globals_group"} {
		n, _ := b.Lookup(name)
		assert.True(t, n.IsCreated(), name)
	}

	_, err = b.Lookup("missing")
	assert.Error(t, err)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts BuildOptions
		want string
	}{
		{"unknown kind", `resource "swapchain" "s" {}`, BuildOptions{}, "unknown kind"},
		{"missing parent", `resource "fence" "f" {}`, BuildOptions{}, "missing reference to a device"},
		{
			"forward reference",
			"resource \"device\" \"gpu\" { parent = \"inst\" }\nresource \"instance\" \"inst\" {}",
			BuildOptions{}, "must be declared after",
		},
		{
			"wrong kind",
			"resource \"instance\" \"inst\" {}\nresource \"fence\" \"f\" { parent = \"inst\" }",
			BuildOptions{}, "is a instance, want device",
		},
		{"bad backend", `resource "instance" "i" { backend = "metal" }`, BuildOptions{}, "unknown backend"},
		{"bad backend override", `resource "instance" "i" {}`, BuildOptions{Backend: "dx12"}, "unknown backend"},
		{
			"bad format",
			"resource \"instance\" \"i\" {}\nresource \"device\" \"d\" { parent = \"i\" }\nresource \"texture\" \"t\" {\n parent = \"d\"\n format = \"rgb565\"\n}",
			BuildOptions{}, "unknown format",
		},
		{
			"bad usage",
			"resource \"instance\" \"i\" {}\nresource \"device\" \"d\" { parent = \"i\" }\nresource \"buffer\" \"b\" {\n parent = \"d\"\n usage = [\"sampled\"]\n}",
			BuildOptions{}, "unknown buffer usage",
		},
		{
			"shader without source",
			"resource \"instance\" \"i\" {}\nresource \"device\" \"d\" { parent = \"i\" }\nresource \"shader_module\" \"s\" { parent = \"d\" }",
			BuildOptions{}, "wgsl or wgsl_file is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.src), "bad.hcl", nil)
			require.NoError(t, err)
			_, err = m.Build(hgraph.NewGraph(), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCreateAllReportsFailures(t *testing.T) {
	src := `
resource "instance" "i" {}
resource "device" "d" { parent = "i" }
resource "texture" "empty" { parent = "d" }
resource "texture_view" "v" { parent = "empty" }
resource "fence" "f" { parent = "d" }
`
	m, err := Parse([]byte(src), "partial.hcl", nil)
	require.NoError(t, err)
	g := hgraph.NewGraph()
	t.Cleanup(g.Close)
	b, err := m.Build(g, BuildOptions{})
	require.NoError(t, err)

	err = b.CreateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create empty")
	assert.Contains(t, err.Error(), "create v")

	f, _ := b.Lookup("f")
	assert.True(t, f.IsCreated(), "independent resources are still created")
}

func TestLoadResolvesRelativeFiles(t *testing.T) {
	dir := t.TempDir()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{B: 255, A: 255})
	f, err := os.Create(filepath.Join(dir, "tile.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	shader := "@compute @workgroup_size(1) fn cs_main() {}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.wgsl"), []byte(shader), 0o600))

	src := `
resource "instance" "i" {}
resource "device" "d" { parent = "i" }
resource "image_texture" "tile" {
  parent = "d"
  image  = "tile.png"
}
resource "texture_view" "tile_view" { parent = "tile" }
resource "shader_module" "s" {
  parent    = "d"
  wgsl_file = "main.wgsl"
}
`
	path := filepath.Join(dir, "scene.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	m, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, m.Dir)

	g := hgraph.NewGraph()
	t.Cleanup(g.Close)
	b, err := m.Build(g, BuildOptions{Backend: "noop"})
	require.NoError(t, err)
	require.NoError(t, b.CreateAll())

	n, err := b.Lookup("tile")
	require.NoError(t, err)
	it, ok := n.(*gpures.ImageTexture)
	require.True(t, ok)
	assert.Equal(t, uint32(2), it.Config().Width)

	_, err = Load(filepath.Join(dir, "missing.hcl"), nil)
	assert.Error(t, err)
}

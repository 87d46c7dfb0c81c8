// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package manifest loads GPU resource graphs described in HCL.
//
// A manifest declares variables and resources. Resources are registered in
// declaration order, so a resource may only name resources declared above it:
//
//	variable "width" { default = 800 }
//
//	resource "instance" "main" {}
//	resource "device" "gpu" { parent = "main" }
//	resource "texture" "color" {
//	  parent = "gpu"
//	  width  = var.width
//	  height = 600
//	}
//	resource "texture_view" "color_view" { parent = "color" }
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Manifest is a decoded manifest.
type Manifest struct {
	// Variables holds the effective variable values after overrides.
	Variables map[string]cty.Value

	// Resources in declaration order.
	Resources []*Resource

	// Dir is the directory relative file references are resolved against.
	Dir string
}

// Resource is one resource block. Which attributes apply depends on Kind.
type Resource struct {
	Kind string `hcl:"kind,label"`
	Name string `hcl:"name,label"`

	// Parent is the primary dependency: the instance of a device, the
	// texture of a view and the device of everything else.
	Parent string `hcl:"parent,optional"`

	Layout  string   `hcl:"layout,optional"`
	Shader  string   `hcl:"shader,optional"`
	Layouts []string `hcl:"layouts,optional"`
	Buffers []string `hcl:"buffers,optional"`

	Backend     string   `hcl:"backend,optional"`
	Width       uint32   `hcl:"width,optional"`
	Height      uint32   `hcl:"height,optional"`
	Format      string   `hcl:"format,optional"`
	Usage       []string `hcl:"usage,optional"`
	SampleCount uint32   `hcl:"sample_count,optional"`
	Size        uint64   `hcl:"size,optional"`
	Contents    string   `hcl:"contents,optional"`
	Image       string   `hcl:"image,optional"`
	WGSL        string   `hcl:"wgsl,optional"`
	WGSLFile    string   `hcl:"wgsl_file,optional"`
	Precompile  bool     `hcl:"precompile,optional"`
	EntryPoint  string   `hcl:"entry_point,optional"`
	Uniforms    uint32   `hcl:"uniforms,optional"`
	Nearest     bool     `hcl:"nearest,optional"`
	Repeat      bool     `hcl:"repeat,optional"`
}

type hclVariable struct {
	Name    string    `hcl:"name,label"`
	Default cty.Value `hcl:"default,optional"`
}

// hclHeader is the first decoding pass: variables only.
type hclHeader struct {
	Variables []*hclVariable `hcl:"variable,block"`
	Remain    hcl.Body       `hcl:",remain"`
}

// hclBody is the second pass, evaluated with the variables in scope.
type hclBody struct {
	Resources []*Resource `hcl:"resource,block"`
}

// Load reads and decodes the manifest at path. overrides replace variable
// defaults; values are parsed as HCL expressions and fall back to plain
// strings.
func Load(path string, overrides map[string]string) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(src, path, overrides)
	if err != nil {
		return nil, err
	}
	m.Dir = filepath.Dir(path)
	return m, nil
}

// Parse decodes a manifest from src. filename is used in diagnostics.
func Parse(src []byte, filename string, overrides map[string]string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filename, diags)
	}

	var header hclHeader
	if diags := gohcl.DecodeBody(file.Body, nil, &header); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode variables in %s: %w", filename, diags)
	}

	vars := make(map[string]cty.Value, len(header.Variables))
	for _, v := range header.Variables {
		if _, dup := vars[v.Name]; dup {
			return nil, fmt.Errorf("%s: variable %q declared twice", filename, v.Name)
		}
		vars[v.Name] = v.Default
	}
	for name, raw := range overrides {
		if _, ok := vars[name]; !ok {
			return nil, fmt.Errorf("%s: override for undeclared variable %q", filename, name)
		}
		vars[name] = parseOverride(raw)
	}
	for name, val := range vars {
		if val.IsNull() {
			return nil, fmt.Errorf("%s: variable %q has no value", filename, name)
		}
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": cty.ObjectVal(vars)},
	}
	var body hclBody
	if diags := gohcl.DecodeBody(header.Remain, evalCtx, &body); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode resources in %s: %w", filename, diags)
	}

	seen := make(map[string]bool, len(body.Resources))
	for _, r := range body.Resources {
		if seen[r.Name] {
			return nil, fmt.Errorf("%s: resource %q declared twice", filename, r.Name)
		}
		seen[r.Name] = true
	}

	return &Manifest{Variables: vars, Resources: body.Resources}, nil
}

// parseOverride evaluates raw as a constant HCL expression, so "800" is a
// number and "true" a bool. Anything else is taken as a string.
func parseOverride(raw string) cty.Value {
	expr, diags := hclsyntax.ParseExpression([]byte(raw), "<override>", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return cty.StringVal(raw)
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() || !val.IsWhollyKnown() {
		return cty.StringVal(raw)
	}
	return val
}

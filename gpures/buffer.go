// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpures

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hgraph"
)

// BufferConfig describes a GPU buffer.
type BufferConfig struct {
	// Size in bytes. Zero means len(Contents).
	Size uint64

	Usage gputypes.BufferUsage

	// Contents, if set, are written to the start of the buffer after every
	// allocation. CopyDst is added to Usage automatically.
	Contents []byte
}

// Buffer is a GPU buffer.
type Buffer struct {
	*hgraph.Handle[hal.Buffer]
	device DeviceSource
	cfg    BufferConfig
}

// NewBuffer registers a buffer handle under device.
func NewBuffer(g *hgraph.Graph, device DeviceSource, cfg BufferConfig, opts ...hgraph.HandleOption) *Buffer {
	if cfg.Size == 0 {
		cfg.Size = uint64(len(cfg.Contents))
	}
	if cfg.Contents != nil {
		cfg.Usage |= gputypes.BufferUsageCopyDst
	}
	b := &Buffer{device: device, cfg: cfg}
	opts = append(opts, hgraph.WithParents(device))
	b.Handle = hgraph.New[hal.Buffer](g, b, withKind("buffer", opts)...)
	return b
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.cfg.Size }

// Allocate creates the buffer and uploads the initial contents.
func (b *Buffer) Allocate() (hal.Buffer, error) {
	gpu, err := gpuOf(b.device)
	if err != nil {
		return nil, err
	}
	if uint64(len(b.cfg.Contents)) > b.cfg.Size {
		return nil, fmt.Errorf("create buffer %s: %d bytes of contents exceed size %d", b.Label(), len(b.cfg.Contents), b.cfg.Size)
	}
	buf, err := gpu.Device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.Label(),
		Size:  b.cfg.Size,
		Usage: b.cfg.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", b.Label(), err)
	}
	if len(b.cfg.Contents) > 0 {
		gpu.Queue.WriteBuffer(buf, 0, b.cfg.Contents)
	}
	return buf, nil
}

// Release destroys the buffer.
func (b *Buffer) Release(buf hal.Buffer) error {
	gpu, err := gpuOf(b.device)
	if err != nil {
		return err
	}
	gpu.Device.DestroyBuffer(buf)
	return nil
}

// Fence is a GPU fence used to wait for submitted work.
type Fence struct {
	*hgraph.Handle[hal.Fence]
	device DeviceSource
}

// NewFence registers a fence handle under device.
func NewFence(g *hgraph.Graph, device DeviceSource, opts ...hgraph.HandleOption) *Fence {
	f := &Fence{device: device}
	opts = append(opts, hgraph.WithParents(device))
	f.Handle = hgraph.New[hal.Fence](g, f, withKind("fence", opts)...)
	return f
}

// Allocate creates the fence.
func (f *Fence) Allocate() (hal.Fence, error) {
	gpu, err := gpuOf(f.device)
	if err != nil {
		return nil, err
	}
	fence, err := gpu.Device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence %s: %w", f.Label(), err)
	}
	return fence, nil
}

// Release destroys the fence.
func (f *Fence) Release(fence hal.Fence) error {
	gpu, err := gpuOf(f.device)
	if err != nil {
		return err
	}
	gpu.Device.DestroyFence(fence)
	return nil
}

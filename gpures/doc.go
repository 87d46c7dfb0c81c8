// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpures provides hgraph handles for gogpu HAL objects.
//
// Every kind wraps an [hgraph.Handle] and supplies the allocate/release
// hooks for one HAL object. The parent edges follow the real dependencies,
// so recreating a device rebuilds every texture, view, buffer and pipeline
// that was alive on it, and resizing a texture rebuilds only its views and
// the bind groups that use them:
//
//	g := hgraph.NewGraph()
//	inst := gpures.NewInstance(g, gpures.NoopInstance)
//	dev := gpures.NewDevice(g, inst, gpures.DeviceConfig{})
//	tex := gpures.NewTexture(g, dev, gpures.TextureConfig{Width: 800, Height: 600})
//	view := gpures.NewTextureView(g, tex)
//
//	inst.Create()
//	dev.Create()
//	tex.Create()
//	view.Create()
//
//	tex.Resize(1024, 768) // recreates tex, then view
//
// A device shared by a host application is registered with
// [NewExternalDevice]. It is never destroyed by the graph, but everything
// allocated on it is.
package gpures

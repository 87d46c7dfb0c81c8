// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command hgraph builds GPU resource graphs from HCL manifests and shows how
// destroy and recreate cascade through them.
//
//	hgraph tree scene.hcl
//	hgraph recreate scene.hcl gpu --var width=1024
//	hgraph destroy scene.hcl color --backend vulkan
package main

import (
	"os"

	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the vulkan backend
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

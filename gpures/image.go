// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpures

import (
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hgraph"
)

// ErrNoImage is returned when an ImageTexture has no source image.
var ErrNoImage = errors.New("gpures: image texture has no source image")

// ImageTexture is a sampled RGBA8 texture uploaded from an image. The image
// is converted, and scaled if a size is configured, on every allocation, so
// recreating the device uploads it again.
type ImageTexture struct {
	*Texture
	src image.Image
}

// NewImageTexture registers a texture holding img. A zero width or height
// keeps the image size.
func NewImageTexture(g *hgraph.Graph, device DeviceSource, img image.Image, width, height uint32, opts ...hgraph.HandleOption) *ImageTexture {
	it := &ImageTexture{
		Texture: &Texture{device: device},
		src:     img,
	}
	it.cfg = it.configFor(width, height)
	opts = append(opts, hgraph.WithParents(device))
	it.Handle = hgraph.New[hal.Texture](g, it, withKind("image_texture", opts)...)
	return it
}

func (it *ImageTexture) configFor(width, height uint32) TextureConfig {
	if (width == 0 || height == 0) && it.src != nil {
		b := it.src.Bounds()
		width, height = uint32(b.Dx()), uint32(b.Dy()) //nolint:gosec // image bounds are non-negative
	}
	return TextureConfig{
		Width:  width,
		Height: height,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}.withDefaults()
}

// SetImage replaces the source image and uploads it again. The texture
// keeps its configured size.
func (it *ImageTexture) SetImage(img image.Image) bool {
	it.src = img
	if !it.IsCreated() {
		return false
	}
	return it.Create()
}

// Allocate creates the texture and uploads the image.
func (it *ImageTexture) Allocate() (hal.Texture, error) {
	if it.src == nil {
		return nil, ErrNoImage
	}
	gpu, err := gpuOf(it.device)
	if err != nil {
		return nil, err
	}
	tex, err := createTexture(gpu, it.Label(), it.cfg)
	if err != nil {
		return nil, err
	}
	rgba := toRGBA(it.src, int(it.cfg.Width), int(it.cfg.Height))
	gpu.Queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
		},
		rgba.Pix,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(rgba.Stride), //nolint:gosec // stride of a bounded image
			RowsPerImage: it.cfg.Height,
		},
		&hal.Extent3D{Width: it.cfg.Width, Height: it.cfg.Height, DepthOrArrayLayers: 1},
	)
	return tex, nil
}

// toRGBA converts src into a tightly packed RGBA image of the given size.
func toRGBA(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	sb := src.Bounds()
	if sb.Dx() == width && sb.Dy() == height {
		xdraw.Draw(dst, dst.Bounds(), src, sb.Min, xdraw.Src)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	return dst
}

// String describes the texture for diagnostics.
func (it *ImageTexture) String() string {
	return fmt.Sprintf("%s %dx%d", it.Label(), it.cfg.Width, it.cfg.Height)
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hgraph

import "fmt"

// Version is a packed 32-bit API version: 3 bits variant, 7 bits major,
// 10 bits minor and 12 bits patch, most significant first. Packed versions
// order the same way as their components.
type Version uint32

// APIVersion is the version of the hgraph API.
var APIVersion = MakeVersion(0, 0, 1, 0)

// MakeVersion packs the components. Out-of-range components are truncated
// to their field width.
func MakeVersion(variant, major, minor, patch uint32) Version {
	return Version((variant&0x7)<<29 | (major&0x7f)<<22 | (minor&0x3ff)<<12 | patch&0xfff)
}

// Variant returns the variant component.
func (v Version) Variant() uint32 { return uint32(v) >> 29 }

// Major returns the major component.
func (v Version) Major() uint32 { return uint32(v) >> 22 & 0x7f }

// Minor returns the minor component.
func (v Version) Minor() uint32 { return uint32(v) >> 12 & 0x3ff }

// Patch returns the patch component.
func (v Version) Patch() uint32 { return uint32(v) & 0xfff }

// IsZero reports whether v is the unset version.
func (v Version) IsZero() bool { return v == 0 }

// Compare returns -1, 0 or +1 depending on whether v orders before, equal to
// or after w.
func (v Version) Compare(w Version) int {
	switch {
	case v < w:
		return -1
	case v > w:
		return 1
	default:
		return 0
	}
}

// String formats v as "major.minor.patch", prefixed with the variant when it
// is not zero.
func (v Version) String() string {
	if v.Variant() != 0 {
		return fmt.Sprintf("%d:%d.%d.%d", v.Variant(), v.Major(), v.Minor(), v.Patch())
	}
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hgraph

import "testing"

func TestMakeVersion(t *testing.T) {
	tests := []struct {
		name                         string
		variant, major, minor, patch uint32
		want                         string
	}{
		{"zero", 0, 0, 0, 0, "0.0.0"},
		{"api 1.3", 0, 1, 3, 0, "1.3.0"},
		{"patch", 0, 1, 2, 198, "1.2.198"},
		{"variant", 1, 2, 0, 5, "1:2.0.5"},
		{"max fields", 7, 127, 1023, 4095, "7:127.1023.4095"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := MakeVersion(tt.variant, tt.major, tt.minor, tt.patch)
			if v.Variant() != tt.variant || v.Major() != tt.major || v.Minor() != tt.minor || v.Patch() != tt.patch {
				t.Errorf("components = %d.%d.%d.%d, want %d.%d.%d.%d",
					v.Variant(), v.Major(), v.Minor(), v.Patch(), tt.variant, tt.major, tt.minor, tt.patch)
			}
			if got := v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionPacking(t *testing.T) {
	// Vulkan 1.0 packs to 1<<22.
	if got := MakeVersion(0, 1, 0, 0); uint32(got) != 1<<22 {
		t.Errorf("MakeVersion(0,1,0,0) = %#x, want %#x", uint32(got), 1<<22)
	}
	if got := MakeVersion(0, 0, 0, 0x1fff); got.Patch() != 0xfff {
		t.Errorf("patch should truncate to 12 bits, got %#x", got.Patch())
	}
}

func TestVersionCompare(t *testing.T) {
	a := MakeVersion(0, 1, 2, 0)
	b := MakeVersion(0, 1, 3, 0)
	c := MakeVersion(0, 2, 0, 0)

	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Error("minor ordering broken")
	}
	if b.Compare(c) != -1 {
		t.Error("major must dominate minor")
	}
	if !Version(0).IsZero() || APIVersion.IsZero() {
		t.Error("IsZero mismatch")
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpures

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/hgraph"
)

var (
	// ErrParentAbsent is returned by allocate hooks when a parent the
	// resource is built from has no value.
	ErrParentAbsent = errors.New("gpures: parent not created")

	// ErrNoAdapter is returned when the instance exposes no adapter.
	ErrNoAdapter = errors.New("gpures: no GPU adapters found")

	// ErrNoBackend is returned when the requested HAL backend is not
	// compiled in.
	ErrNoBackend = errors.New("gpures: backend not available")

	// ErrNoHAL is returned when a device provider does not expose HAL
	// device and queue objects.
	ErrNoHAL = errors.New("gpures: provider does not expose HAL types")
)

// InstanceFactory creates a HAL instance.
type InstanceFactory func() (hal.Instance, error)

// NoopInstance creates an instance of the noop backend. It needs no GPU and
// is used for tests and dry runs.
func NoopInstance() (hal.Instance, error) {
	return noop.API{}.CreateInstance(nil)
}

// BackendInstance returns a factory for a registered HAL backend. Backends
// register themselves when their package is imported.
func BackendInstance(b gputypes.Backend) InstanceFactory {
	return func() (hal.Instance, error) {
		backend, ok := hal.GetBackend(b)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrNoBackend, b)
		}
		return backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	}
}

// Instance is the root of a GPU resource graph.
type Instance struct {
	*hgraph.Handle[hal.Instance]
	factory InstanceFactory
}

// NewInstance registers an instance handle.
func NewInstance(g *hgraph.Graph, factory InstanceFactory, opts ...hgraph.HandleOption) *Instance {
	i := &Instance{factory: factory}
	i.Handle = hgraph.New[hal.Instance](g, i, withKind("instance", opts)...)
	return i
}

// Allocate creates the instance.
func (i *Instance) Allocate() (hal.Instance, error) {
	inst, err := i.factory()
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	return inst, nil
}

// Release destroys the instance.
func (i *Instance) Release(inst hal.Instance) error {
	inst.Destroy()
	return nil
}

// GPU is an open device with its queue.
type GPU struct {
	Device  hal.Device
	Queue   hal.Queue
	Adapter string

	// SurfaceFormat is the preferred presentation format, or Undefined if
	// the device is not tied to a surface.
	SurfaceFormat gputypes.TextureFormat
}

// DeviceSource is a node that provides an open device to its children.
// It is implemented by [Device] and [ExternalDevice].
type DeviceSource interface {
	hgraph.Node
	GPU() *GPU
}

// DeviceConfig selects and opens an adapter.
type DeviceConfig struct {
	// Features requested from the adapter.
	Features gputypes.Features

	// Limits requested from the adapter. Zero means gputypes.DefaultLimits.
	Limits *gputypes.Limits

	// AllowSoftware accepts CPU and virtual adapters when no discrete or
	// integrated GPU is present. The first adapter is used as a fallback
	// either way.
	AllowSoftware bool
}

// Device is a device owned by the graph, opened on an Instance.
type Device struct {
	*hgraph.Handle[*GPU]
	instance *Instance
	cfg      DeviceConfig
}

// NewDevice registers a device handle under inst.
func NewDevice(g *hgraph.Graph, inst *Instance, cfg DeviceConfig, opts ...hgraph.HandleOption) *Device {
	d := &Device{instance: inst, cfg: cfg}
	opts = append(opts, hgraph.WithParents(inst))
	d.Handle = hgraph.New[*GPU](g, d, withKind("device", opts)...)
	return d
}

// GPU returns the open device, or nil if absent.
func (d *Device) GPU() *GPU { return d.Value() }

// Allocate picks an adapter and opens it.
func (d *Device) Allocate() (*GPU, error) {
	inst, ok := d.instance.Get()
	if !ok {
		return nil, fmt.Errorf("device: instance: %w", ErrParentAbsent)
	}
	adapters := inst.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
		if d.cfg.AllowSoftware {
			hgraph.Logger().Debug("gpures: no hardware adapter, using fallback", "adapter", selected.Info.Name)
		}
	}

	limits := gputypes.DefaultLimits()
	if d.cfg.Limits != nil {
		limits = *d.cfg.Limits
	}
	openDev, err := selected.Adapter.Open(d.cfg.Features, limits)
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	hgraph.Logger().Debug("gpures: device opened", "handle", d.Label(), "adapter", selected.Info.Name)
	return &GPU{
		Device:  openDev.Device,
		Queue:   openDev.Queue,
		Adapter: selected.Info.Name,
	}, nil
}

// Release destroys the device.
func (d *Device) Release(gpu *GPU) error {
	gpu.Device.Destroy()
	return nil
}

// ExternalDevice is a device shared by a host application through a
// gpucontext.DeviceProvider. The graph never destroys it; resources
// allocated on it are destroyed normally.
//
// The provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
type ExternalDevice struct {
	*hgraph.Handle[*GPU]
	provider gpucontext.DeviceProvider
}

// NewExternalDevice registers a non-destroyable device handle.
func NewExternalDevice(g *hgraph.Graph, provider gpucontext.DeviceProvider, opts ...hgraph.HandleOption) *ExternalDevice {
	d := &ExternalDevice{provider: provider}
	opts = append(opts, hgraph.External())
	d.Handle = hgraph.New[*GPU](g, d, withKind("external_device", opts)...)
	return d
}

// GPU returns the shared device, or nil if absent.
func (d *ExternalDevice) GPU() *GPU { return d.Value() }

// SetProvider switches to another host device. Everything allocated on the
// old device is destroyed and allocated again on the new one.
func (d *ExternalDevice) SetProvider(provider gpucontext.DeviceProvider) bool {
	d.provider = provider
	return d.Create()
}

// Allocate adopts the provider's device.
func (d *ExternalDevice) Allocate() (*GPU, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if d.provider == nil {
		return nil, ErrNoHAL
	}
	hp, ok := d.provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	return &GPU{
		Device:        device,
		Queue:         queue,
		Adapter:       "external",
		SurfaceFormat: d.provider.SurfaceFormat(),
	}, nil
}

// Release is never called for an external device.
func (d *ExternalDevice) Release(*GPU) error { return nil }

// gpuOf returns the open device of src.
func gpuOf(src DeviceSource) (*GPU, error) {
	if gpu := src.GPU(); gpu != nil {
		return gpu, nil
	}
	return nil, fmt.Errorf("device %s: %w", src.Label(), ErrParentAbsent)
}

// withKind prepends the default kind so caller options can override it.
func withKind(kind string, opts []hgraph.HandleOption) []hgraph.HandleOption {
	return append([]hgraph.HandleOption{hgraph.WithKind(kind)}, opts...)
}

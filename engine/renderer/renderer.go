package renderer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
	"github.com/spaghettifunk/prism/engine/renderer/retained"
)

const HeadlessBackend = "headless"

// BackendFactory opens a device for the given configuration.
type BackendFactory func(cfg *core.Config) (gpu.Device, error)

// FrameDevice is implemented by devices that submit real command streams.
// Devices without it are drawn into a recording pass.
type FrameDevice interface {
	BeginFrame() (gpu.Pass, error)
	EndFrame(pass gpu.Pass) error
}

var (
	backendsMu sync.RWMutex
	backends   = map[string]BackendFactory{
		HeadlessBackend: func(cfg *core.Config) (gpu.Device, error) {
			return gpu.NewHeadlessDevice(cfg.Atlas.MaxSize), nil
		},
	}
)

// RegisterBackend makes a device factory available under name. Registering
// the same name twice replaces the previous factory.
func RegisterBackend(name string, factory BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = factory
}

// Backends lists the registered backend names in order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDevice opens the backend named by cfg.Renderer.Backend.
func NewDevice(cfg *core.Config) (gpu.Device, error) {
	backendsMu.RLock()
	factory, ok := backends[cfg.Renderer.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("renderer backend %q is not registered: %w", cfg.Renderer.Backend, core.ErrBackendUnavailable)
	}
	device, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q backend: %w", cfg.Renderer.Backend, err)
	}
	core.LogInfo("Renderer backend '%s' initialized.", cfg.Renderer.Backend)
	return device, nil
}

// Frontend drives one frame: synchronize the retained scene, then draw it
// into whatever pass the device offers.
type Frontend struct {
	device    gpu.Device
	scene     *retained.Renderer
	metrics   *core.Metrics
	recording *gpu.RecordingPass
}

func NewFrontend(device gpu.Device, scene *retained.Renderer, metrics *core.Metrics) *Frontend {
	return &Frontend{
		device:    device,
		scene:     scene,
		metrics:   metrics,
		recording: gpu.NewRecordingPass(),
	}
}

func (f *Frontend) DrawFrame() error {
	if err := f.scene.Synchronize(); err != nil {
		return err
	}

	if fd, ok := f.device.(FrameDevice); ok {
		pass, err := fd.BeginFrame()
		if err != nil {
			return err
		}
		f.scene.Draw(pass)
		if err := fd.EndFrame(pass); err != nil {
			return err
		}
	} else {
		f.recording.Reset()
		f.scene.Draw(f.recording)
	}

	if f.metrics != nil {
		stats := f.scene.Stats()
		f.metrics.RecordRender(uint64(stats.Writes), uint64(stats.BytesWritten), uint64(stats.Draws))
	}
	return nil
}

// LastRecording holds the draws of the last frame when the device has no
// command stream of its own.
func (f *Frontend) LastRecording() *gpu.RecordingPass {
	return f.recording
}

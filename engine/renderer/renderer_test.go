package renderer

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/prism/engine/atlas"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
	"github.com/spaghettifunk/prism/engine/renderer/retained"
	"github.com/spaghettifunk/prism/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type framedDevice struct {
	*gpu.HeadlessDevice
	pass   *gpu.RecordingPass
	begun  int
	ended  int
	endErr error
}

func (d *framedDevice) BeginFrame() (gpu.Pass, error) {
	d.begun++
	d.pass.Reset()
	return d.pass, nil
}

func (d *framedDevice) EndFrame(pass gpu.Pass) error {
	d.ended++
	return d.endErr
}

func newScene(t *testing.T, device gpu.Device) *retained.Renderer {
	t.Helper()
	a, err := atlas.NewAtlas(device, atlas.AtlasConfig{InitialSize: 64, MaxSize: 256, Padding: 1})
	require.NoError(t, err)
	gs, err := systems.NewGeometrySystem(systems.GeometrySystemConfig{MaxGeometryCount: 8}, device)
	require.NoError(t, err)
	scene, err := retained.NewRenderer(device, a, gs, nil, retained.RendererConfig{})
	require.NoError(t, err)
	return scene
}

func TestHeadlessIsAlwaysRegistered(t *testing.T) {
	assert.Contains(t, Backends(), HeadlessBackend)

	cfg := core.DefaultConfig()
	device, err := NewDevice(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Atlas.MaxSize, device.MaxTextureSize())
}

func TestUnknownBackend(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Renderer.Backend = "metal"
	_, err := NewDevice(cfg)
	assert.ErrorIs(t, err, core.ErrBackendUnavailable)
}

func TestRegisteredBackendErrorsAreWrapped(t *testing.T) {
	boom := errors.New("no adapter")
	RegisterBackend("broken", func(*core.Config) (gpu.Device, error) { return nil, boom })

	cfg := core.DefaultConfig()
	cfg.Renderer.Backend = "broken"
	_, err := NewDevice(cfg)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, Backends(), "broken")
}

func TestDrawFrameRecordsWithoutFrameDevice(t *testing.T) {
	device := gpu.NewHeadlessDevice(1024)
	scene := newScene(t, device)
	scene.CreateMesh(retained.MeshDesc{})
	scene.CreateMesh(retained.MeshDesc{})

	metrics := core.NewMetrics()
	frontend := NewFrontend(device, scene, metrics)
	require.NoError(t, frontend.DrawFrame())

	draws := frontend.LastRecording().Draws
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(2), draws[0].InstanceCount)
	assert.Equal(t, uint64(1), metrics.LastDraws)
	assert.Equal(t, uint64(1), metrics.LastWrites)

	// nothing changed, nothing written, same draw
	require.NoError(t, frontend.DrawFrame())
	assert.Len(t, frontend.LastRecording().Draws, 1)
	assert.Zero(t, metrics.LastWrites)
}

func TestDrawFrameUsesFrameDevice(t *testing.T) {
	device := &framedDevice{HeadlessDevice: gpu.NewHeadlessDevice(1024), pass: gpu.NewRecordingPass()}
	scene := newScene(t, device)
	scene.CreateMesh(retained.MeshDesc{})

	frontend := NewFrontend(device, scene, nil)
	require.NoError(t, frontend.DrawFrame())
	assert.Equal(t, 1, device.begun)
	assert.Equal(t, 1, device.ended)
	assert.Len(t, device.pass.Draws, 1)
	assert.Empty(t, frontend.LastRecording().Draws)

	device.endErr = core.ErrUnknown
	assert.ErrorIs(t, frontend.DrawFrame(), core.ErrUnknown)
}

package vulkan

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/renderer/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassRecordsDrawsWithoutIssuingThem(t *testing.T) {
	d := gpu.NewHeadlessDevice(64)
	vb, err := d.CreateBuffer(gpu.BufferDescriptor{Label: "v", Size: 64, Usage: gpu.BufferUsageVertex})
	require.NoError(t, err)
	ib, err := d.CreateBuffer(gpu.BufferDescriptor{Label: "i", Size: 24, Usage: gpu.BufferUsageIndex})
	require.NoError(t, err)

	// buffers from another device are never bound on the command buffer
	p := &VulkanPass{RecordingPass: gpu.NewRecordingPass()}
	p.SetVertexBuffer(gpu.SlotVertex, vb, 0)
	p.SetIndexBuffer(ib, 0)
	p.DrawIndexed(6, 3, 0, 0, 2)

	require.Len(t, p.Draws, 1)
	assert.Equal(t, uint32(6), p.Draws[0].IndexCount)
	assert.Equal(t, uint32(3), p.Draws[0].InstanceCount)
	assert.Equal(t, uint32(2), p.Draws[0].FirstInstance)
	assert.Equal(t, vb, p.Draws[0].VertexBuffer)
}

package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
)

// VulkanPass binds the frame's vertex, instance and index streams on the
// frame command buffer and keeps the draw list alongside it.
type VulkanPass struct {
	*gpu.RecordingPass
	cmd *VulkanCommandBuffer
}

func (p *VulkanPass) SetVertexBuffer(slot uint32, buf gpu.Buffer, offset uint64) {
	p.RecordingPass.SetVertexBuffer(slot, buf, offset)
	vb, ok := buf.(*VulkanBuffer)
	if !ok {
		return
	}
	vk.CmdBindVertexBuffers(p.cmd.Handle, slot, 1, []vk.Buffer{vb.Handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (p *VulkanPass) SetIndexBuffer(buf gpu.Buffer, offset uint64) {
	p.RecordingPass.SetIndexBuffer(buf, offset)
	vb, ok := buf.(*VulkanBuffer)
	if !ok {
		return
	}
	vk.CmdBindIndexBuffer(p.cmd.Handle, vb.Handle, vk.DeviceSize(offset), vk.IndexTypeUint32)
}

// DrawIndexed records the draw in the pass's draw list without issuing
// vkCmdDrawIndexed, which needs a bound graphics pipeline inside a render
// pass. The backend keeps no pipeline state, so buffer bindings and the draw
// list are what a frame produces.
func (p *VulkanPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.RecordingPass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
)

// VulkanBuffer is host visible and coherent, mapped for its whole lifetime.
// Writes land directly in the mapping; buffer-to-buffer copies go through
// the graphics queue.
type VulkanBuffer struct {
	label  string
	size   uint64
	Handle vk.Buffer
	Memory vk.DeviceMemory
	mapped unsafe.Pointer
}

func (b *VulkanBuffer) Label() string { return b.label }
func (b *VulkanBuffer) Size() uint64  { return b.size }

func bufferUsageFlags(usage gpu.BufferUsage) vk.BufferUsageFlagBits {
	// every buffer can take part in copies
	flags := vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit
	if usage&(gpu.BufferUsageVertex|gpu.BufferUsageInstance) != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if usage&gpu.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	return flags
}

func NewVulkanBuffer(context *VulkanContext, label string, size uint64, usage vk.BufferUsageFlagBits) (*VulkanBuffer, error) {
	device := context.Device.LogicalDevice
	buffer := &VulkanBuffer{label: label, size: size}
	// zero sized buffers are not allowed, keep a minimal allocation behind them
	allocSize := max(size, 4)

	err := context.Locks.SafeCall(BufferManagement, func() error {
		bufferInfo := vk.BufferCreateInfo{
			SType:       vk.StructureTypeBufferCreateInfo,
			Size:        vk.DeviceSize(allocSize),
			Usage:       vk.BufferUsageFlags(usage),
			SharingMode: vk.SharingModeExclusive,
		}
		var handle vk.Buffer
		if res := vk.CreateBuffer(device, &bufferInfo, context.Allocator, &handle); res != vk.Success {
			return fmt.Errorf("failed to create buffer %q: %w", label, vkError(res))
		}
		buffer.Handle = handle
		return nil
	})
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer.Handle, &requirements)
	requirements.Deref()

	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if memoryType == -1 {
		buffer.Destroy(context)
		return nil, fmt.Errorf("buffer %q: no host visible memory: %w", label, core.ErrBackendUnavailable)
	}

	err = context.Locks.SafeCall(MemoryManagement, func() error {
		allocateInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  requirements.Size,
			MemoryTypeIndex: uint32(memoryType),
		}
		var memory vk.DeviceMemory
		if res := vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory); res != vk.Success {
			return fmt.Errorf("failed to allocate memory for buffer %q: %w", label, vkError(res))
		}
		buffer.Memory = memory
		if res := vk.BindBufferMemory(device, buffer.Handle, buffer.Memory, 0); res != vk.Success {
			return fmt.Errorf("failed to bind memory for buffer %q: %w", label, vkError(res))
		}
		var mapped unsafe.Pointer
		if res := vk.MapMemory(device, buffer.Memory, 0, vk.DeviceSize(vk.WholeSize), 0, &mapped); res != vk.Success {
			return fmt.Errorf("failed to map buffer %q: %w", label, vkError(res))
		}
		buffer.mapped = mapped
		return nil
	})
	if err != nil {
		core.LogError("%s", err)
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}

// Bytes is a view over the mapped memory. It is only valid until Destroy.
func (b *VulkanBuffer) Bytes() []byte {
	if b.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(b.mapped), b.size)
}

func (b *VulkanBuffer) Write(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("write of %d bytes at %d into %q (%d bytes): %w", len(data), offset, b.label, b.size, core.ErrOutOfBounds)
	}
	if len(data) == 0 {
		return nil
	}
	vk.Memcopy(unsafe.Add(b.mapped, offset), data)
	return nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if b.mapped != nil {
		vk.UnmapMemory(device, b.Memory)
		b.mapped = nil
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, b.Memory, context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
}

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
)

const imageFormat = vk.FormatR8g8b8a8Unorm

// VulkanImage is an RGBA8 device-local image. Layout is tracked on the host
// so every transfer can insert the right barrier.
type VulkanImage struct {
	label  string
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	width  uint32
	height uint32
	Layout vk.ImageLayout
}

func (img *VulkanImage) Label() string  { return img.label }
func (img *VulkanImage) Width() uint32  { return img.width }
func (img *VulkanImage) Height() uint32 { return img.height }

var colorSubresourceRange = vk.ImageSubresourceRange{
	AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	LevelCount: 1,
	LayerCount: 1,
}

var colorSubresourceLayers = vk.ImageSubresourceLayers{
	AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	LayerCount: 1,
}

func NewVulkanImage(context *VulkanContext, label string, width, height uint32) (*VulkanImage, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("image %q %dx%d: %w", label, width, height, core.ErrInvalidSize)
	}
	device := context.Device.LogicalDevice
	img := &VulkanImage{label: label, width: width, height: height, Layout: vk.ImageLayoutUndefined}

	err := context.Locks.SafeCall(ImageManagement, func() error {
		imageInfo := vk.ImageCreateInfo{
			SType:     vk.StructureTypeImageCreateInfo,
			ImageType: vk.ImageType2d,
			Format:    imageFormat,
			Extent: vk.Extent3D{
				Width:  width,
				Height: height,
				Depth:  1,
			},
			MipLevels:     1,
			ArrayLayers:   1,
			Samples:       vk.SampleCount1Bit,
			Tiling:        vk.ImageTilingOptimal,
			Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
			SharingMode:   vk.SharingModeExclusive,
			InitialLayout: vk.ImageLayoutUndefined,
		}
		var handle vk.Image
		if res := vk.CreateImage(device, &imageInfo, context.Allocator, &handle); res != vk.Success {
			return fmt.Errorf("failed to create image %q: %w", label, vkError(res))
		}
		img.Handle = handle
		return nil
	})
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, img.Handle, &requirements)
	requirements.Deref()

	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if memoryType == -1 {
		img.Destroy(context)
		return nil, fmt.Errorf("image %q: no device local memory: %w", label, core.ErrBackendUnavailable)
	}

	err = context.Locks.SafeCall(MemoryManagement, func() error {
		allocateInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  requirements.Size,
			MemoryTypeIndex: uint32(memoryType),
		}
		var memory vk.DeviceMemory
		if res := vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory); res != vk.Success {
			return fmt.Errorf("failed to allocate memory for image %q: %w", label, vkError(res))
		}
		img.Memory = memory
		if res := vk.BindImageMemory(device, img.Handle, img.Memory, 0); res != vk.Success {
			return fmt.Errorf("failed to bind memory for image %q: %w", label, vkError(res))
		}
		return nil
	})
	if err != nil {
		core.LogError("%s", err)
		img.Destroy(context)
		return nil, err
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            img.Handle,
		ViewType:         vk.ImageViewType2d,
		Format:           imageFormat,
		SubresourceRange: colorSubresourceRange,
	}
	var view vk.ImageView
	if res := vk.CreateImageView(device, &viewInfo, context.Allocator, &view); res != vk.Success {
		err := fmt.Errorf("failed to create view for image %q: %w", label, vkError(res))
		core.LogError("%s", err)
		img.Destroy(context)
		return nil, err
	}
	img.View = view
	return img, nil
}

/**
 * @brief Records a barrier moving the image to newLayout. Nothing is recorded
 * when the image is already in that layout.
 */
func (img *VulkanImage) TransitionLayout(cmd *VulkanCommandBuffer, newLayout vk.ImageLayout) {
	if img.Layout == newLayout {
		return
	}
	srcAccess, srcStage := layoutAccess(img.Layout)
	dstAccess, dstStage := layoutAccess(newLayout)

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           img.Layout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Handle,
		SubresourceRange:    colorSubresourceRange,
	}
	vk.CmdPipelineBarrier(cmd.Handle, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	img.Layout = newLayout
}

func layoutAccess(layout vk.ImageLayout) (vk.AccessFlags, vk.PipelineStageFlags) {
	switch layout {
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.AccessFlags(vk.AccessTransferReadBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		return 0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
}

func (img *VulkanImage) region(x, y, width, height uint32) vk.BufferImageCopy {
	return vk.BufferImageCopy{
		ImageSubresource: colorSubresourceLayers,
		ImageOffset:      vk.Offset3D{X: int32(x), Y: int32(y)},
		ImageExtent:      vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
}

func (img *VulkanImage) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if img.View != vk.NullImageView {
		vk.DestroyImageView(device, img.View, context.Allocator)
		img.View = vk.NullImageView
	}
	if img.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, img.Memory, context.Allocator)
		img.Memory = vk.NullDeviceMemory
	}
	if img.Handle != vk.NullImage {
		vk.DestroyImage(device, img.Handle, context.Allocator)
		img.Handle = vk.NullImage
	}
}

package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

func init() {
	renderer.RegisterBackend("vulkan", func(cfg *core.Config) (gpu.Device, error) {
		return NewBackend(BackendConfig{
			ApplicationName: cfg.Application.Name,
			Validation:      cfg.Renderer.Validation,
		})
	})
}

type BackendConfig struct {
	ApplicationName string
	// Validation enables the Khronos validation layer when it is installed.
	Validation bool
}

// Backend is a gpu.Device on top of a Vulkan logical device. Every transfer
// is recorded into a single-use command buffer and waited on before the call
// returns, so resources can be released as soon as the caller is done.
type Backend struct {
	platform    *platform.Platform
	context     *VulkanContext
	validation  bool
	FrameNumber uint64
}

func NewBackend(config BackendConfig) (*Backend, error) {
	p := platform.New()
	if err := p.Startup(config.ApplicationName, 0, 0, false); err != nil {
		return nil, fmt.Errorf("vulkan loader unavailable: %w", err)
	}

	b := &Backend{
		platform: p,
		context: &VulkanContext{
			Allocator: nil,
			Device:    &VulkanDevice{GraphicsQueueIndex: -1},
			Locks:     NewVulkanLockPool(),
		},
		validation: config.Validation,
	}
	if err := b.initialize(config.ApplicationName); err != nil {
		b.Destroy()
		return nil, err
	}
	core.LogInfo("Vulkan renderer initialized successfully.")
	return b, nil
}

func (b *Backend) initialize(appName string) error {
	procAddr := b.platform.VulkanProcAddr()
	if procAddr == nil {
		return fmt.Errorf("GetInstanceProcAddress is nil: %w", core.ErrBackendUnavailable)
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize vk: %w", err)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Prism"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := []string{}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			vk.KhrGetPhysicalDeviceProperties2ExtensionName,
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	layers := []string{}
	if b.validation {
		found, err := hasInstanceLayer(validationLayer)
		if err != nil {
			return err
		}
		if found {
			layers = append(layers, validationLayer)
			extensions = append(extensions, vk.ExtDebugReportExtensionName)
			core.LogInfo("Validation layers enabled.")
		} else {
			core.LogWarn("Validation layer %s is not installed, continuing without it.", validationLayer)
			b.validation = false
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, b.context.Allocator, &instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance: %w", vkError(res))
		core.LogError("%s", err)
		return err
	}
	b.context.Instance = instance
	if err := vk.InitInstance(b.context.Instance); err != nil {
		core.LogError("%s", err)
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if b.validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(b.context.Instance, &debugCreateInfo, b.context.Allocator, &dbg); res != vk.Success {
			err := fmt.Errorf("vk.CreateDebugReportCallback failed: %w", vkError(res))
			core.LogError("%s", err)
			return err
		}
		b.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:    true,
		Transfer:    true,
		DiscreteGPU: runtime.GOOS != "darwin",
	}
	return DeviceCreate(b.context, requirements)
}

func hasInstanceLayer(name string) (bool, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false, fmt.Errorf("failed to enumerate instance layers: %w", vkError(res))
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false, fmt.Errorf("failed to enumerate instance layers: %w", vkError(res))
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].LayerName[:]) == name {
			return true, nil
		}
	}
	return false, nil
}

// submit records fn into a single-use command buffer on the graphics queue
// and blocks until the GPU has executed it.
func (b *Backend) submit(fn func(cmd *VulkanCommandBuffer)) error {
	device := b.context.Device
	var cmd *VulkanCommandBuffer
	err := b.context.Locks.SafeCall(CommandManagement, func() error {
		var err error
		cmd, err = AllocateAndBeginSingleUse(b.context, device.GraphicsCommandPool)
		return err
	})
	if err != nil {
		return err
	}
	fn(cmd)
	return b.context.Locks.SafeCall(CommandManagement, func() error {
		return cmd.EndSingleUse(b.context, device.GraphicsCommandPool, device.GraphicsQueue, uint32(device.GraphicsQueueIndex))
	})
}

func (b *Backend) buffer(buf gpu.Buffer) (*VulkanBuffer, error) {
	vb, ok := buf.(*VulkanBuffer)
	if !ok || vb.Handle == vk.NullBuffer {
		return nil, fmt.Errorf("buffer is not a live vulkan buffer: %w", core.ErrNotFound)
	}
	return vb, nil
}

func (b *Backend) image(tex gpu.Texture) (*VulkanImage, error) {
	img, ok := tex.(*VulkanImage)
	if !ok || img.Handle == vk.NullImage {
		return nil, fmt.Errorf("texture is not a live vulkan image: %w", core.ErrNotFound)
	}
	return img, nil
}

func (b *Backend) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	buf, err := NewVulkanBuffer(b.context, desc.Label, desc.Size, bufferUsageFlags(desc.Usage))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *Backend) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	vb, err := b.buffer(buf)
	if err != nil {
		return err
	}
	return vb.Write(offset, data)
}

func (b *Backend) CopyBuffer(src, dst gpu.Buffer, regions []gpu.BufferCopy) error {
	if len(regions) == 0 {
		return nil
	}
	from, err := b.buffer(src)
	if err != nil {
		return err
	}
	to, err := b.buffer(dst)
	if err != nil {
		return err
	}

	copies := make([]vk.BufferCopy, len(regions))
	for i, r := range regions {
		if r.SrcOffset+r.Size > from.size || r.DstOffset+r.Size > to.size {
			return fmt.Errorf("copy region %d from %q to %q: %w", i, from.label, to.label, core.ErrOutOfBounds)
		}
		copies[i] = vk.BufferCopy{
			SrcOffset: vk.DeviceSize(r.SrcOffset),
			DstOffset: vk.DeviceSize(r.DstOffset),
			Size:      vk.DeviceSize(r.Size),
		}
	}
	return b.submit(func(cmd *VulkanCommandBuffer) {
		vk.CmdCopyBuffer(cmd.Handle, from.Handle, to.Handle, uint32(len(copies)), copies)
	})
}

func (b *Backend) DestroyBuffer(buf gpu.Buffer) {
	if vb, err := b.buffer(buf); err == nil {
		vb.Destroy(b.context)
	}
}

func (b *Backend) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	if max := b.MaxTextureSize(); desc.Width > max || desc.Height > max {
		return nil, fmt.Errorf("texture %q %dx%d exceeds device limit %d: %w", desc.Label, desc.Width, desc.Height, max, core.ErrCapacityExceeded)
	}
	img, err := NewVulkanImage(b.context, desc.Label, desc.Width, desc.Height)
	if err != nil {
		return nil, err
	}
	// new images start transparent
	zero := make([]byte, uint64(desc.Width)*uint64(desc.Height)*uint64(desc.Format.BytesPerPixel()))
	if err := b.WriteTexture(img, 0, 0, desc.Width, desc.Height, zero); err != nil {
		img.Destroy(b.context)
		return nil, err
	}
	return img, nil
}

func checkRect(img *VulkanImage, x, y, width, height uint32) error {
	if x+width > img.width || y+height > img.height {
		return fmt.Errorf("rect %d,%d %dx%d outside %q (%dx%d): %w", x, y, width, height, img.label, img.width, img.height, core.ErrOutOfBounds)
	}
	return nil
}

func (b *Backend) WriteTexture(tex gpu.Texture, x, y, width, height uint32, pixels []byte) error {
	img, err := b.image(tex)
	if err != nil {
		return err
	}
	if err := checkRect(img, x, y, width, height); err != nil {
		return err
	}
	size := uint64(width) * uint64(height) * uint64(gpu.TextureFormatRGBA8.BytesPerPixel())
	if uint64(len(pixels)) != size {
		return fmt.Errorf("write to %q expects %d bytes, got %d: %w", img.label, size, len(pixels), core.ErrInvalidSize)
	}
	if size == 0 {
		return nil
	}

	staging, err := NewVulkanBuffer(b.context, img.label+"_staging", size, vk.BufferUsageTransferSrcBit)
	if err != nil {
		return err
	}
	defer staging.Destroy(b.context)
	if err := staging.Write(0, pixels); err != nil {
		return err
	}

	return b.submit(func(cmd *VulkanCommandBuffer) {
		img.TransitionLayout(cmd, vk.ImageLayoutTransferDstOptimal)
		region := img.region(x, y, width, height)
		vk.CmdCopyBufferToImage(cmd.Handle, staging.Handle, img.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
		img.TransitionLayout(cmd, vk.ImageLayoutShaderReadOnlyOptimal)
	})
}

func (b *Backend) CopyTexture(src, dst gpu.Texture, width, height uint32) error {
	from, err := b.image(src)
	if err != nil {
		return err
	}
	to, err := b.image(dst)
	if err != nil {
		return err
	}
	if err := checkRect(from, 0, 0, width, height); err != nil {
		return err
	}
	if err := checkRect(to, 0, 0, width, height); err != nil {
		return err
	}

	return b.submit(func(cmd *VulkanCommandBuffer) {
		from.TransitionLayout(cmd, vk.ImageLayoutTransferSrcOptimal)
		to.TransitionLayout(cmd, vk.ImageLayoutTransferDstOptimal)
		region := vk.ImageCopy{
			SrcSubresource: colorSubresourceLayers,
			DstSubresource: colorSubresourceLayers,
			Extent:         vk.Extent3D{Width: width, Height: height, Depth: 1},
		}
		vk.CmdCopyImage(cmd.Handle, from.Handle, vk.ImageLayoutTransferSrcOptimal, to.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageCopy{region})
		from.TransitionLayout(cmd, vk.ImageLayoutShaderReadOnlyOptimal)
		to.TransitionLayout(cmd, vk.ImageLayoutShaderReadOnlyOptimal)
	})
}

func (b *Backend) ReadTexture(tex gpu.Texture, x, y, width, height uint32) ([]byte, error) {
	img, err := b.image(tex)
	if err != nil {
		return nil, err
	}
	if err := checkRect(img, x, y, width, height); err != nil {
		return nil, err
	}
	size := uint64(width) * uint64(height) * uint64(gpu.TextureFormatRGBA8.BytesPerPixel())
	if size == 0 {
		return []byte{}, nil
	}

	readback, err := NewVulkanBuffer(b.context, img.label+"_readback", size, vk.BufferUsageTransferDstBit)
	if err != nil {
		return nil, err
	}
	defer readback.Destroy(b.context)

	err = b.submit(func(cmd *VulkanCommandBuffer) {
		img.TransitionLayout(cmd, vk.ImageLayoutTransferSrcOptimal)
		region := img.region(x, y, width, height)
		vk.CmdCopyImageToBuffer(cmd.Handle, img.Handle, vk.ImageLayoutTransferSrcOptimal, readback.Handle, 1, []vk.BufferImageCopy{region})
		img.TransitionLayout(cmd, vk.ImageLayoutShaderReadOnlyOptimal)
	})
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, readback.Bytes())
	return out, nil
}

func (b *Backend) DestroyTexture(tex gpu.Texture) {
	if img, err := b.image(tex); err == nil {
		img.Destroy(b.context)
	}
}

func (b *Backend) MaxTextureSize() uint32 {
	return b.context.Device.Properties.Limits.MaxImageDimension2D
}

// BeginFrame opens the command buffer the frame's bindings are recorded in.
func (b *Backend) BeginFrame() (gpu.Pass, error) {
	device := b.context.Device
	var cmd *VulkanCommandBuffer
	err := b.context.Locks.SafeCall(CommandManagement, func() error {
		var err error
		cmd, err = AllocateAndBeginSingleUse(b.context, device.GraphicsCommandPool)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &VulkanPass{RecordingPass: gpu.NewRecordingPass(), cmd: cmd}, nil
}

func (b *Backend) EndFrame(pass gpu.Pass) error {
	vp, ok := pass.(*VulkanPass)
	if !ok {
		return fmt.Errorf("pass was not opened by this backend: %w", core.ErrNotFound)
	}
	device := b.context.Device
	err := b.context.Locks.SafeCall(CommandManagement, func() error {
		return vp.cmd.EndSingleUse(b.context, device.GraphicsCommandPool, device.GraphicsQueue, uint32(device.GraphicsQueueIndex))
	})
	if err != nil {
		return err
	}
	b.FrameNumber++
	return nil
}

func (b *Backend) Destroy() {
	if b.context.Device != nil && b.context.Device.LogicalDevice != nil {
		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(b.context)
	}
	if b.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(b.context.Instance, b.context.debugMessenger, b.context.Allocator)
		b.context.debugMessenger = vk.NullDebugReportCallback
	}
	if b.context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(b.context.Instance, b.context.Allocator)
		b.context.Instance = nil
	}
	if b.platform != nil {
		b.platform.Shutdown()
		b.platform = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

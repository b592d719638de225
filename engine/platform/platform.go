package platform

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/prism/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the glfw runtime. A window is only created when one was
// asked for; the offscreen renderer only needs the Vulkan loader.
type Platform struct {
	Window    *glfw.Window
	startTime float64
}

func New() *Platform {
	return &Platform{}
}

func (p *Platform) Startup(applicationName string, width, height uint32, withWindow bool) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return core.ErrBackendUnavailable
	}

	if withWindow {
		glfw.WindowHint(glfw.Visible, glfw.False)
		glfw.WindowHint(glfw.Resizable, glfw.False)
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

		window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
		if err != nil {
			glfw.Terminate()
			core.LogError("failed to create window: %s", err)
			return err
		}
		p.Window = window
		p.Window.Show()
	}

	p.startTime = glfw.GetTime()
	return nil
}

// VulkanProcAddr is the loader entry point handed to the Vulkan bindings.
func (p *Platform) VulkanProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// RequiredExtensionNames lists the instance extensions the window surface needs.
func (p *Platform) RequiredExtensionNames() []string {
	if p.Window == nil {
		return nil
	}
	return p.Window.GetRequiredInstanceExtensions()
}

// AbsoluteTime is the number of seconds since Startup.
func (p *Platform) AbsoluteTime() float64 {
	return glfw.GetTime() - p.startTime
}

func (p *Platform) PumpMessages() {
	if p.Window != nil {
		glfw.PollEvents()
	}
}

func (p *Platform) ShouldClose() bool {
	return p.Window != nil && p.Window.ShouldClose()
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

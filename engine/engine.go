package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/atlas"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/retained"
	"github.com/spaghettifunk/prism/engine/systems"
	"github.com/spaghettifunk/prism/engine/text"
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *core.Config
	isRunning    atomic.Bool

	device        gpu.Device
	atlas         *atlas.Atlas
	systemManager *systems.SystemManager
	scene         *retained.Renderer
	frontend      *renderer.Frontend
	assetManager  *assets.AssetManager
	events        *core.EventBus
	metrics       *core.Metrics
	telemetry     *core.Telemetry
	clock         *core.Clock
	lastTime      float64
	frameCount    uint64
}

// New prepares an engine for g. A nil cfg falls back to g.Config and then to
// the defaults.
func New(g *Game, cfg *core.Config) (*Engine, error) {
	if cfg == nil {
		cfg = g.Config
	}
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		core.LogWarn("invalid log level %q, keeping the current one", cfg.Log.Level)
	}
	g.Config = cfg

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		events:       core.NewEventBus(),
		metrics:      core.NewMetrics(),
		clock:        core.NewClock(),
	}, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("engine already %s", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	if err := e.initialize(); err != nil {
		e.release()
		e.currentStage = EngineStageUninitialized
		return err
	}

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized with the %s backend", e.config.Renderer.Backend)
	return nil
}

func (e *Engine) initialize() error {
	cfg := e.config

	device, err := renderer.NewDevice(cfg)
	if err != nil {
		return err
	}
	e.device = device

	e.atlas, err = atlas.NewAtlas(device, atlas.AtlasConfig{
		Label:       "atlas",
		InitialSize: cfg.Atlas.InitialSize,
		MaxSize:     cfg.Atlas.MaxSize,
		Padding:     cfg.Atlas.Padding,
	})
	if err != nil {
		return err
	}
	e.atlas.OnGrow(func(width, height uint32) {
		e.events.Fire(core.EVENT_CODE_ATLAS_GROWN, e, core.EventContext{Width: width, Height: height})
	})

	e.systemManager, err = systems.NewSystemManager(cfg, device)
	if err != nil {
		return err
	}

	var shaper text.Shaper
	switch cfg.Renderer.Shaper {
	case "advance":
		shaper = text.NewAdvanceShaper()
	default:
		shaper = text.NewHarfbuzzShaper()
	}
	e.scene, err = retained.NewRenderer(device, e.atlas, e.systemManager.GeometrySystem, shaper, retained.RendererConfig{
		InstanceCapacity: cfg.Renderer.InstanceCapacity,
		GlyphCapacity:    cfg.Renderer.GlyphCapacity,
		DebugFont:        cfg.Renderer.DebugFont,
	})
	if err != nil {
		return err
	}
	e.frontend = renderer.NewFrontend(device, e.scene, e.metrics)

	e.assetManager = assets.NewAssetManager(cfg.Assets.Dir, e.systemManager.JobSystem)
	if cfg.Assets.Watch {
		if err := e.assetManager.Watch(); err != nil {
			// hot reload is optional
			core.LogWarn("asset watching disabled: %s", err)
		}
	}

	if cfg.Telemetry.Enabled {
		e.telemetry = core.NewTelemetry(cfg.Telemetry.Interval.Duration, cfg.Telemetry.History)
	}
	return nil
}

/**
 * @brief Runs the frame loop until ctx is done, a quit event fires, a game
 * callback fails or the configured frame budget is used up.
 */
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("cannot run an engine that is %s", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	if e.telemetry != nil {
		e.telemetry.Start(ctx)
		defer e.telemetry.Stop()
	}

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64
	if fps := e.config.Application.TargetFPS; fps > 0 {
		targetFrameSeconds = 1.0 / float64(fps)
	}
	budget := e.config.Application.Frames

	defer func() { e.currentStage = EngineStageInitialized }()

	for e.isRunning.Load() {
		select {
		case <-ctx.Done():
			core.LogInfo("engine context done, leaving the frame loop")
			return nil
		default:
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStart := time.Now()

		if err := e.frame(delta); err != nil {
			return err
		}

		frameElapsed := time.Since(frameStart).Seconds()
		e.metrics.Update(frameElapsed)
		e.frameCount++
		e.lastTime = currentTime

		if budget > 0 && e.frameCount >= budget {
			core.LogInfo("frame budget of %d reached", budget)
			e.isRunning.Store(false)
			break
		}

		if remaining := targetFrameSeconds - frameElapsed; remaining > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Duration(remaining * float64(time.Second))):
			}
		}
	}
	return nil
}

func (e *Engine) frame(delta float64) error {
	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(e, delta); err != nil {
			core.LogError("game update failed: %s", err)
			return err
		}
	}
	e.scene.Animate(float32(delta))

	// re-packs happen here, never on the watcher goroutine
	e.applyReloads()

	if e.gameInstance.FnRender != nil {
		if err := e.gameInstance.FnRender(e, delta); err != nil {
			core.LogError("game render failed: %s", err)
			return err
		}
	}
	return e.frontend.DrawFrame()
}

// applyReloads re-packs every changed image under its existing label and
// marks the objects sampling it dirty.
func (e *Engine) applyReloads() {
	for _, req := range e.assetManager.Drain() {
		if req.Type != metadata.ResourceTypeImage {
			core.LogDebug("ignoring change to %s, only images reload", req.Path)
			continue
		}
		res, err := e.assetManager.Load(req.Path)
		if err == nil {
			_, err = e.atlas.Replace(req.Label, res.Data.(*metadata.ImageResourceData))
		}
		if err != nil {
			core.LogWarn("failed to reload %q: %s", req.Label, err)
			e.assetManager.Track(req.Label, req.Path)
			e.events.Fire(core.EVENT_CODE_ASSET_FAILED, e, core.EventContext{Label: req.Label, Err: err})
			continue
		}
		// Load re-tracked the file under its base name
		e.assetManager.Track(req.Label, req.Path)
		e.scene.InvalidateTexture(req.Label)
		e.events.Fire(core.EVENT_CODE_ASSET_RELOADED, e, core.EventContext{Label: req.Label})
		core.LogInfo("reloaded %q from %s", req.Label, req.Path)
	}
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var err error
	if e.gameInstance.FnShutdown != nil && e.scene != nil {
		err = e.gameInstance.FnShutdown(e)
	}
	e.events.Shutdown()
	e.release()
	e.currentStage = EngineStageShutdown
	core.LogInfo("engine shut down after %d frames", e.frameCount)
	return err
}

func (e *Engine) release() {
	if e.assetManager != nil {
		if err := e.assetManager.Close(); err != nil {
			core.LogError("failed to close asset manager: %s", err)
		}
		e.assetManager = nil
	}
	if e.scene != nil {
		e.scene.Destroy()
		e.scene = nil
	}
	if e.systemManager != nil {
		if err := e.systemManager.Shutdown(); err != nil {
			core.LogError("failed to shut systems down: %s", err)
		}
		e.systemManager = nil
	}
	if e.atlas != nil {
		e.atlas.Destroy()
		e.atlas = nil
	}
	if e.device != nil {
		e.device.Destroy()
		e.device = nil
	}
}

// Quit stops the frame loop at the end of the current frame.
func (e *Engine) Quit() {
	e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

// PackImage decodes an encoded image and packs it under label. An empty label
// gets a generated one, which is returned.
func (e *Engine) PackImage(label string, data []byte) (string, error) {
	img, err := loaders.DecodeImage(data)
	if err != nil {
		return "", err
	}
	if label == "" {
		label = uuid.NewString()
	}
	if _, err := e.atlas.PackImage(label, img); err != nil {
		return "", err
	}
	return label, nil
}

// PackImageFile loads an image from the asset directory and packs it under
// its file name. The file is reloaded when it changes on disk.
func (e *Engine) PackImageFile(path string) (string, error) {
	res, err := e.assetManager.Load(path)
	if err != nil {
		return "", err
	}
	img, ok := res.Data.(*metadata.ImageResourceData)
	if !ok {
		return "", fmt.Errorf("%s is a %s, not an image: %w", path, res.Type, core.ErrNotFound)
	}
	if _, err := e.atlas.PackImage(res.Name, img); err != nil {
		return "", err
	}
	return res.Name, nil
}

// PackImageFiles decodes paths on the job system and packs them in order.
func (e *Engine) PackImageFiles(paths []string) ([]string, error) {
	resources, err := e.assetManager.DecodeAll(paths)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(resources))
	for i, res := range resources {
		img, ok := res.Data.(*metadata.ImageResourceData)
		if !ok {
			return nil, fmt.Errorf("%s is a %s, not an image: %w", paths[i], res.Type, core.ErrNotFound)
		}
		if _, err := e.atlas.PackImage(res.Name, img); err != nil {
			return nil, err
		}
		labels[i] = res.Name
	}
	return labels, nil
}

// PackGlyphs rasterizes the printable ASCII range of a TrueType or OpenType
// font at size and packs it as fontLabel.
func (e *Engine) PackGlyphs(fontLabel string, font []byte, size float32) (*atlas.GlyphSet, error) {
	return e.atlas.PackGlyphs(fontLabel, font, size, printableASCII())
}

// PackGlyphRunes packs runes of an already known or new font.
func (e *Engine) PackGlyphRunes(fontLabel string, font []byte, size float32, runes []rune) (*atlas.GlyphSet, error) {
	return e.atlas.PackGlyphs(fontLabel, font, size, runes)
}

// PackBitmapFont packs a BMFont descriptor and its pages as label.
func (e *Engine) PackBitmapFont(label, path string) (*atlas.GlyphSet, error) {
	bf, err := loaders.LoadBitmapFont(e.resolve(path))
	if err != nil {
		return nil, err
	}
	return e.atlas.PackBitmapFont(label, bf)
}

// PackSpriteSheet packs the image of a YAML sprite sheet under the sheet's
// file name and returns that label with the frames. The image is reloaded
// when it changes on disk.
func (e *Engine) PackSpriteSheet(path string) (string, *metadata.SpriteSheetResourceData, error) {
	res, err := e.assetManager.Load(path)
	if err != nil {
		return "", nil, err
	}
	sheet, ok := res.Data.(*metadata.SpriteSheetResourceData)
	if !ok {
		return "", nil, fmt.Errorf("%s is a %s, not a sprite sheet: %w", path, res.Type, core.ErrNotFound)
	}
	img, err := e.assetManager.Load(sheet.Image)
	if err != nil {
		return "", nil, err
	}
	if _, err := e.atlas.PackImage(res.Name, img.Data.(*metadata.ImageResourceData)); err != nil {
		return "", nil, err
	}
	e.assetManager.Track(res.Name, sheet.Image)
	return res.Name, sheet, nil
}

func (e *Engine) resolve(path string) string {
	if filepath.IsAbs(path) || e.config.Assets.Dir == "" {
		return path
	}
	return filepath.Join(e.config.Assets.Dir, path)
}

func (e *Engine) Config() *core.Config            { return e.config }
func (e *Engine) Stage() Stage                    { return e.currentStage }
func (e *Engine) Device() gpu.Device              { return e.device }
func (e *Engine) Atlas() *atlas.Atlas             { return e.atlas }
func (e *Engine) Renderer() *retained.Renderer    { return e.scene }
func (e *Engine) Frontend() *renderer.Frontend    { return e.frontend }
func (e *Engine) Systems() *systems.SystemManager { return e.systemManager }
func (e *Engine) Assets() *assets.AssetManager    { return e.assetManager }
func (e *Engine) Events() *core.EventBus          { return e.events }
func (e *Engine) Metrics() *core.Metrics          { return e.metrics }
func (e *Engine) Telemetry() *core.Telemetry      { return e.telemetry }
func (e *Engine) FrameCount() uint64              { return e.frameCount }

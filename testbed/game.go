package testbed

import (
	"fmt"

	"golang.org/x/exp/rand"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/retained"
	"github.com/spaghettifunk/prism/engine/systems"
)

const (
	cubeCount   = 64
	spriteCount = 16
	fontLabel   = "go-regular"
	sheetLabel  = "spinner"
	checkLabel  = "checker"

	sceneLayer   = 0
	overlayLayer = 1
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	rng *rand.Rand

	cube    *metadata.Geometry
	cubes   []containers.Handle
	sprites []containers.Handle
	label   containers.Handle

	elapsed float64
}

func NewTestGame(cfg *core.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Config: cfg,
			State: &gameState{
				rng: rand.New(rand.NewSource(42)),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

// checker builds a two-tone RGBA8 checkerboard.
func checker(size, cell uint32) []byte {
	px := make([]byte, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			v := byte(64)
			if (x/cell+y/cell)%2 == 0 {
				v = 224
			}
			i := (y*size + x) * 4
			px[i], px[i+1], px[i+2], px[i+3] = v, v, v, 255
		}
	}
	return px
}

// spinnerSheet builds a strip of frames, each a bar at a different column.
func spinnerSheet(frame, frames uint32) ([]byte, []metadata.SpriteFrame) {
	width := frame * frames
	px := make([]byte, width*frame*4)
	out := make([]metadata.SpriteFrame, frames)
	for f := uint32(0); f < frames; f++ {
		col := f*frame + f*(frame/frames)
		for y := uint32(0); y < frame; y++ {
			i := (y*width + col) * 4
			px[i], px[i+1], px[i+2], px[i+3] = 255, 160, 32, 255
		}
		out[f] = metadata.SpriteFrame{X: f * frame, Y: 0, Width: frame, Height: frame, Duration: 0.08}
	}
	return px, out
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.state()
	atlas := e.Atlas()
	scene := e.Renderer()

	if _, err := atlas.PackPixels(checkLabel, 64, 64, checker(64, 8)); err != nil {
		return err
	}
	pixels, frames := spinnerSheet(16, 4)
	if _, err := atlas.PackPixels(sheetLabel, 64, 16, pixels); err != nil {
		return err
	}
	if _, err := e.PackGlyphs(fontLabel, goregular.TTF, 18); err != nil {
		return err
	}
	if _, err := e.PackGlyphs(e.Config().Renderer.DebugFont, goregular.TTF, 12); err != nil {
		return err
	}

	cube, err := e.Systems().GeometrySystem.Acquire(systems.GenerateCubeConfig(1, 1, 1, 1, 1, "testbed_cube"))
	if err != nil {
		return err
	}
	state.cube = cube

	for i := 0; i < cubeCount; i++ {
		material := metadata.NewUntextured(math.NewColor(state.rng.Float32(), state.rng.Float32(), state.rng.Float32(), 1))
		if i%2 == 0 {
			material = metadata.NewTextured(checkLabel, math.ColorWhite)
		}
		state.cubes = append(state.cubes, scene.CreateMesh(retained.MeshDesc{
			Geometry: cube,
			Position: math.NewVec3(state.rng.Float32()*20-10, state.rng.Float32()*20-10, -20),
			Rotation: math.NewVec3(state.rng.Float32(), state.rng.Float32(), 0),
			Material: material,
			Layer:    sceneLayer,
		}))
	}

	for i := 0; i < spriteCount; i++ {
		state.sprites = append(state.sprites, scene.CreateSprite(retained.SpriteDesc{
			Sheet:    sheetLabel,
			Frames:   frames,
			Position: math.NewVec3(float32(i*20), 40, 0),
			Layer:    sceneLayer,
		}))
	}

	state.label = scene.CreateText(retained.TextDesc{
		Font:     fontLabel,
		Content:  "prism",
		Position: math.NewVec3(10, 10, 0),
		Color:    math.ColorGreen,
		Layer:    overlayLayer,
	})
	core.LogInfo("testbed scene ready with %d objects", scene.Len())
	return nil
}

func (g *TestGame) Update(e *engine.Engine, deltaTime float64) error {
	state := g.state()
	scene := e.Renderer()

	// spin a few cubes, leave the rest static
	for i, h := range state.cubes {
		if i%4 != 0 {
			continue
		}
		m, err := scene.Mesh(h)
		if err != nil {
			return err
		}
		m.Rotate(math.NewVec3(0, float32(0.5*deltaTime), 0))
	}

	state.elapsed += deltaTime
	if state.elapsed >= 0.5 {
		state.elapsed = 0
		txt, err := scene.Text(state.label)
		if err != nil {
			return err
		}
		fps, ms := e.Metrics().Frame()
		txt.SetContent(fmt.Sprintf("%.0f fps %.2f ms", fps, ms))
	}
	return nil
}

func (g *TestGame) Render(e *engine.Engine, deltaTime float64) error {
	e.Renderer().DrawDebugText(overlayLayer, fmt.Sprintf("frame %d", e.FrameCount()), math.NewVec2(10, 30))

	stats := e.Renderer().Stats()
	if stats.Rebuilt {
		core.LogDebug("instances regrouped: %d groups, %d instances", stats.Groups, stats.Instances)
	}
	return nil
}

func (g *TestGame) Shutdown(e *engine.Engine) error {
	state := g.state()
	scene := e.Renderer()
	for _, h := range append(state.cubes, state.sprites...) {
		if err := scene.Remove(h); err != nil {
			return err
		}
	}
	if state.cube != nil {
		e.Systems().GeometrySystem.Release(state.cube)
	}
	usage := e.Atlas().Usage()
	core.Logger().Info("testbed finished",
		"frames", e.FrameCount(),
		"atlas_regions", usage.Regions,
		"atlas_usage", fmt.Sprintf("%.1f%%", usage.Ratio()*100))
	return nil
}

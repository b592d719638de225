package engine

import "github.com/spaghettifunk/prism/engine/core"

type Game struct {
	Config       *core.Config
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnShutdown   Shutdown
}

type Initialize func(e *Engine) error
type Update func(e *Engine, deltaTime float64) error
type Render func(e *Engine, deltaTime float64) error
type Shutdown func(e *Engine) error

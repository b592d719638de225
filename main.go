/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
	_ "github.com/spaghettifunk/prism/engine/renderer/vulkan"
	"github.com/spaghettifunk/prism/testbed"
)

func main() {
	configPath := pflag.StringP("config", "c", "prism.toml", "path to the TOML configuration")
	backend := pflag.StringP("backend", "b", "", "renderer backend, overrides the configuration")
	frames := pflag.Uint64P("frames", "n", 0, "number of frames to run, 0 runs until interrupted")
	validation := pflag.Bool("validation", false, "enable the Vulkan validation layer")
	pflag.Parse()

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}
	if *backend != "" {
		cfg.Renderer.Backend = *backend
	}
	if pflag.CommandLine.Changed("frames") {
		cfg.Application.Frames = *frames
	}
	if *validation {
		cfg.Renderer.Validation = true
	}

	tb := testbed.NewTestGame(cfg)

	e, err := engine.New(tb.Game, cfg)
	if err != nil {
		core.LogFatal("%s", err)
	}

	if err := e.Initialize(); err != nil {
		core.LogFatal("%s", err)
	}

	// cancel the frame loop on sigterm and other system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown failed: %s", err)
	}
	if runErr != nil {
		core.LogFatal("%s", runErr)
	}
}

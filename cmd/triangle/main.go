package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"glwindow/internal/config"
	"glwindow/internal/game"
	"glwindow/internal/gpu"
	"glwindow/internal/graphics"
	"glwindow/internal/input"
	"glwindow/internal/platform"
	"glwindow/internal/scene"

	"github.com/xlab/closer"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	sceneName := flag.String("scene", "", fmt.Sprintf("scene to draw %v", scene.Names()))
	debug := flag.Bool("debug", false, "log at debug level and check every draw call")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	if *sceneName != "" {
		cfg.Render.Scene = *sceneName
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *debug {
		level = slog.LevelDebug
		cfg.Render.CheckCalls = true
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	gpu.SetLogger(logger)

	sc, err := scene.Lookup(cfg.Render.Scene)
	if err != nil {
		logger.Error("invalid scene", "err", err)
		os.Exit(2)
	}
	if sc.Sources, err = scene.LoadSources(cfg.Shaders.Vertex, cfg.Shaders.Fragment, sc.Sources); err != nil {
		logger.Error("could not load shaders", "err", err)
		os.Exit(1)
	}

	window, err := platform.NewWindow(cfg.Window)
	if err != nil {
		logger.Error("could not open window", "err", err)
		os.Exit(1)
	}
	rc := gpu.NewRenderContext(window.Driver)
	rc.SetCheckCalls(cfg.Render.CheckCalls)
	gpu.QueryInfo(rc).Log()

	var (
		geom *graphics.Geometry
		prog *graphics.Program
	)
	// GL objects and GLFW belong to this thread, so they are released here
	// and the closer hook only interrupts the loop and waits.
	done := make(chan struct{})
	var teardown sync.Once
	release := func() {
		teardown.Do(func() {
			prog.Release(rc)
			geom.Release(rc)
			window.Destroy()
			close(done)
		})
	}
	closer.Bind(func() {
		window.Interrupt()
		<-done
		logger.Info("Goodbye!")
	})

	geom, err = graphics.Upload(rc, sc.Vertices, sc.Indices, sc.Format)
	if err != nil {
		release()
		closer.Fatalln("could not upload geometry:", err)
	}
	builder := graphics.Builder{LogLimit: cfg.Render.LogLimit}
	if prog, err = builder.BuildProgram(rc, sc.Sources, geom); err != nil {
		release()
		closer.Fatalln("could not build shader program:", err)
	}

	loop, err := game.NewLoop(rc, window, input.NewManager(), prog, geom, game.Options{
		ClearColor: cfg.Render.ClearColorVec(),
		FPSLimit:   cfg.Render.FPSLimit,
		SlowFrame:  50 * time.Millisecond,
	})
	if err != nil {
		release()
		closer.Fatalln(err)
	}
	loop.Run()

	release()
	closer.Close()
}

// Package main provides the latch CLI.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/latch-ml/latch/backend/hostmem"
	"github.com/latch-ml/latch/backend/wgpu"
	"github.com/latch-ml/latch/scope"
	"github.com/latch-ml/latch/tensor"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("latch %s\n", version)
	case "devices":
		devices()
	case "leakcheck":
		path := ""
		if len(os.Args) > 2 {
			path = os.Args[2]
		}
		if err := leakcheck(path); err != nil {
			fmt.Fprintf(os.Stderr, "leakcheck: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("latch - native tensor runtime binding for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version              Show version")
	fmt.Println("  devices              List usable native runtimes")
	fmt.Println("  leakcheck [config]   Run a scoped allocation cycle and report leaks")
}

func devices() {
	fmt.Println("hostmem: available")
	if wgpu.IsAvailable() {
		fmt.Println("webgpu:  available")
	} else {
		fmt.Println("webgpu:  not available")
	}
}

// leakcheck allocates under nested dispose scopes and verifies that the
// native allocator is back to zero live allocations afterwards.
func leakcheck(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := cfg.buildLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	scope.SetLogger(logger)

	lib, live, closeLib, err := openDevice(cfg.Device)
	if err != nil {
		return err
	}
	defer closeLib()
	rt := tensor.NewRuntime(lib, tensor.WithLogger(logger))

	for i := 0; i < cfg.Iterations; i++ {
		if err := oneCycle(rt); err != nil {
			return err
		}
	}

	if hm, ok := lib.(*hostmem.Lib); ok {
		stats := hm.Stats()
		logger.Info("leakcheck finished",
			zap.String("device", cfg.Device),
			zap.Int("live", stats.Live),
			zap.Uint64("allocs", stats.TotalAllocs),
			zap.Uint64("frees", stats.TotalFrees),
			zap.Uint64("double_frees", stats.DoubleFrees))
	} else {
		logger.Info("leakcheck finished",
			zap.String("device", cfg.Device),
			zap.Int("live", live()))
	}
	if leaked := live(); leaked != 0 {
		return fmt.Errorf("%d native allocations leaked on %s", leaked, cfg.Device)
	}
	fmt.Printf("ok: %s, 0 live allocations\n", cfg.Device)
	return nil
}

// openDevice creates the native runtime named by the config's device
// field. Returns the library, a live-allocation counter for leak
// reporting, and a close function.
func openDevice(device string) (tensor.Lib, func() int, func(), error) {
	switch device {
	case "hostmem":
		lib := hostmem.New()
		return lib, func() int { return lib.Stats().Live }, func() {}, nil
	case "webgpu":
		lib, err := wgpu.New()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("webgpu unavailable: %w", err)
		}
		return lib, func() int { return lib.MemoryStats().LiveBuffers }, lib.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown device %q (want hostmem or webgpu)", device)
	}
}

// oneCycle builds tensors under a nested scope, moves one result out, and
// lets the scopes release everything else.
func oneCycle(rt *tensor.Runtime) error {
	outer := rt.NewScope()
	defer outer.Exit()

	x, err := tensor.Full(rt, tensor.Shape{64, 64}, 1.5)
	if err != nil {
		return err
	}

	inner := rt.NewScope()
	scratch, err := x.Clone()
	if err != nil {
		inner.Exit()
		return err
	}
	result, err := scratch.Clone()
	if err != nil {
		inner.Exit()
		return err
	}
	if err := result.MoveToOuterScope(); err != nil {
		inner.Exit()
		return err
	}
	inner.Exit()

	if result.IsDisposed() || !scratch.IsDisposed() {
		return fmt.Errorf("scope discipline violated")
	}
	return nil
}

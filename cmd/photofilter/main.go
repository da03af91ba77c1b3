package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"photofilter/internal/backend/cvfilter"
	"photofilter/internal/backend/native"
	"photofilter/internal/config"
	"photofilter/internal/engine"
	"photofilter/internal/filter"
	"photofilter/internal/logger"
	"photofilter/internal/shutdown"
	"photofilter/internal/sink"
	"photofilter/internal/source"
)

const (
	AppName    = "photofilter"
	AppVersion = "1.0.0"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	fs := config.Flags(AppName)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.LoadConfig(context.Background(), fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log := logger.New(cfg.LogFormat, logger.ParseLevel(cfg.EffectiveLogLevel()))
	log.Debug("Main", "starting", map[string]interface{}{
		"version":    AppVersion,
		"backend":    cfg.Backend,
		"go_version": runtime.Version(),
		"num_cpu":    runtime.NumCPU(),
	})

	down := shutdown.NewManager(log, 10*time.Second)
	ctx, stop := down.Listen(context.Background())
	defer stop()

	eng := engine.New(filter.NewCatalog(newLibrary(cfg, log)), engine.WithLogger(log))
	down.Register("engine", eng.Close)

	code := 0
	if cfg.List {
		listKinds(eng, stdout)
	} else if err := render(ctx, cfg, eng, log, down, stdout); err != nil {
		log.Error("Main", err, map[string]interface{}{"input": cfg.Input})
		code = 1
	}

	if err := down.Shutdown(); err != nil {
		log.Error("Main", err, nil)
		code = 1
	}
	return code
}

func newLibrary(cfg *config.Config, log logger.Logger) filter.Library {
	if cfg.Backend == "opencv" {
		return cvfilter.New(log)
	}
	return native.New(native.WithParallelization(cfg.Parallel))
}

// listKinds prints every kind with the parameters its handle declares.
func listKinds(eng *engine.Engine, w io.Writer) {
	for _, kind := range eng.Catalog().Kinds() {
		inst, err := eng.NewInstance(kind)
		if err != nil {
			fmt.Fprintf(w, "%-20s unavailable: %v\n", kind, err)
			continue
		}
		fmt.Fprintf(w, "%-20s %s\n", kind, inst.ApplicableParameters())
	}
}

func render(ctx context.Context, cfg *config.Config, eng *engine.Engine, log logger.Logger, down *shutdown.Manager, stdout io.Writer) error {
	picked, err := source.LoadFile(cfg.Input)
	if err != nil {
		return err
	}

	inst, err := eng.NewInstance(cfg.Kind())
	if err != nil {
		return err
	}
	inst.Bind(picked.Image)
	for p, v := range map[filter.Parameter]float64{
		filter.Intensity: cfg.Intensity,
		filter.Radius:    cfg.Radius,
		filter.Scale:     cfg.Scale,
	} {
		if err := inst.SetParameter(p, v); err != nil {
			return err
		}
	}

	result, err := eng.Render(ctx, inst)
	if err != nil {
		return err
	}

	format, err := sink.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return err
	}
	out := sink.New(sink.FuncPreviewer{
		MaxSide: cfg.ThumbnailSize,
		Show: func(thumb image.Image) {
			log.Info("Main", "preview ready", map[string]interface{}{
				"width":  thumb.Bounds().Dx(),
				"height": thumb.Bounds().Dy(),
			})
		},
	}, sink.NewFileStore(cfg.OutputDir, format, cfg.JPEGQuality), log)
	down.Register("sink", func() error {
		out.Wait()
		return nil
	})

	out.Preview(result)

	var persistErr error
	out.Persist(result, func(location string) {
		fmt.Fprintln(stdout, location)
	}, func(err error) {
		persistErr = err
	})
	out.Wait()
	return persistErr
}

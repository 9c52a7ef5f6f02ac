package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/lintang-b-s/navigatorx-pt/pkg/config"
	"github.com/lintang-b-s/navigatorx-pt/pkg/dataset"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
)

var (
	configFile = flag.String("config", "config.yml", "config file, env NAVX_* overrides it")
	mapFile    = flag.String("f", "", "openstreeetmap file buat foot network graphnya, default dari config")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *mapFile != "" {
		cfg.Data.OsmFile = *mapFile
	}
	log := logger.InitLogger(cfg.Log.LoggerConfig())

	if *cpuprofile != "" {
		// https://go.dev/blog/pprof
		// ./bin/navigatorx-preprocessing -cpuprofile=navigatorxcpu.prof -memprofile=navigatorxmem.mprof
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("create cpu profile", "error", err)
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("start cpu profile", "error", err)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	if err := dataset.Build(ctx, cfg, log); err != nil {
		log.Error("preprocessing failed", "error", err)
		pprof.StopCPUProfile()
		os.Exit(1)
	}
	recordMemProfile(memprofile, "finish_preprocessing", log)

	log.Info("preprocessing done, foot network + time expanded network ready!!",
		"data_dir", cfg.Data.Dir, "took", time.Since(start).String())
}

func recordMemProfile(memprofile *string, name string, log logger.Logger) {
	if *memprofile == "" {
		return
	}
	path := strings.Replace(*memprofile, ".mprof", fmt.Sprintf("%s.mprof", name), -1)
	f, err := os.Create(path)
	if err != nil {
		log.Error("create memory profile", "error", err)
		return
	}
	defer f.Close()
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Error("write memory profile", "error", err)
	}
}

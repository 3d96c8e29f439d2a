// Command flexrender is the coordinator's entrypoint: it loads a
// config script and a scene script, exposes render progress on
// Prometheus, and drives the render to completion.
package main

import (
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ogre/flexrender/internal/engine"
	"github.com/ogre/flexrender/internal/monitor"
	"github.com/ogre/flexrender/internal/script"
	"github.com/ogre/flexrender/internal/settings"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if len(os.Args) != 5 {
		log.Fatal("improper parameters",
			zap.String("usage", "flexrender <config_path> <scene_path> <max_intervals> <linear_scan>"))
	}

	configPath, scenePath := os.Args[1], os.Args[2]

	maxIntervals, err := strconv.Atoi(os.Args[3])
	if err != nil {
		log.Fatal("could not parse max_intervals", zap.String("value", os.Args[3]), zap.Error(err))
	}

	linearScan, err := strconv.ParseBool(os.Args[4])
	if err != nil {
		log.Fatal("could not parse linear_scan", zap.String("value", os.Args[4]), zap.Error(err))
	}

	cfg, err := script.LoadConfig(configPath)
	if err != nil {
		log.Fatal("could not load config script", zap.String("path", configPath), zap.Error(err))
	}
	cfg.MaxIntervals = maxIntervals
	cfg.LinearScan = linearScan

	scene, err := script.LoadScene(scenePath)
	if err != nil {
		log.Fatal("could not load scene script", zap.String("path", scenePath), zap.Error(err))
	}

	tunables, err := settings.Load()
	if err != nil {
		log.Fatal("could not load tunable overrides", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	metrics := monitor.NewMetrics(reg)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		log.Info("metrics listening", zap.String("addr", tunables.MetricsAddr))
		if err := http.ListenAndServe(tunables.MetricsAddr, mux); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	e := engine.New(log, engine.Config{
		Workers:      cfg.Workers,
		Runaway:      cfg.Runaway,
		ImageWidth:   cfg.ImageWidth,
		ImageHeight:  cfg.ImageHeight,
		ImageName:    cfg.ImageName,
		Buffers:      cfg.Buffers,
		SceneMin:     cfg.SceneMin,
		SceneMax:     cfg.SceneMax,
		LinearScan:   cfg.LinearScan,
		MaxIntervals: cfg.MaxIntervals,
		Tunables:     tunables,
	}, scene, metrics)

	if err := e.Run(); err != nil {
		log.Fatal("render failed", zap.Error(err))
	}
}

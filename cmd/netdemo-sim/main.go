package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/milk9111/enemyai/config"
	"github.com/milk9111/enemyai/sim"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults are built in)")
	ticks := flag.Int("ticks", 0, "ticks to simulate (0 uses sim.ticks)")
	debug := flag.Bool("debug", false, "enable debug logging")
	hotReload := flag.Bool("watch", false, "reload prefabs from prefabs.dir when they change")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if *hotReload {
		cfg.Prefabs.HotReload = true
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := sim.New(*cfg, logger)
	if err != nil {
		logger.Fatal("build simulation", zap.Error(err))
	}
	defer s.Close()

	sum, err := s.Run(ctx, *ticks)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("simulation stopped", zap.Error(err))
	}

	logger.Info("simulation finished",
		zap.Uint64("ticks", sum.Ticks),
		zap.Float64("time", sum.Time),
		zap.Int("shots", sum.Shots),
		zap.Int("blocked", sum.Blocked),
		zap.Int("reloads", sum.Reloads),
		zap.Any("states", sum.States))
	for _, team := range sum.Teams() {
		logger.Info("team",
			zap.String("team", team),
			zap.Int("alive", sum.Alive[team]),
			zap.Int("lost", sum.Losses[team]))
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

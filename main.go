package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"ridesim/actor"
	"ridesim/config"
	"ridesim/mapmodel"
	"ridesim/routing"
	"ridesim/simlog"
	"ridesim/telemetry"
)

func main() {
	cfg := config.Load()

	log, err := simlog.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ridesim: logger init:", err)
		os.Exit(1)
	}
	defer log.Sync()

	rm, err := loadMap(cfg.MapName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ridesim: loading map %q: %v\n", cfg.MapName, err)
		os.Exit(1)
	}

	planner := routing.NewPlanner(rm)

	queue := actor.NewPassengerQueue(rm, planner, log, cfg.MaxPassengers, cfg.MinWaitSec, cfg.JitterSec)
	vehicles := actor.NewVehicleManager(rm, planner, log, cfg.MaxVehicles)

	matchType := actor.MatchSimple
	if cfg.MatchType == "closest" {
		matchType = actor.MatchClosest
	}
	mapDimension := rm.Bounds.MaxLat - rm.Bounds.MinLat
	matcher := actor.NewRideMatcher(queue, vehicles, log, matchType, mapDimension)

	// Seed the initial population before the tick loops start, per spec
	// sections 4.3/4.4's construction-time generation.
	queue.Start()
	vehicles.Start()

	reader := telemetry.NewReader(queue, vehicles, 200*time.Millisecond, nil)
	server := telemetry.NewServer(reader, log, cfg.RedisAddr)
	reader.SetPublish(server.Publish)

	log.Infof("ridesim: map=%s passengers<=%d vehicles<=%d match=%s http=%s", cfg.MapName, cfg.MaxPassengers, cfg.MaxVehicles, cfg.MatchType, cfg.HTTPAddr)

	// Four long-lived workers, per spec section 5: PassengerQueue,
	// VehicleManager, and RideMatcher tick loops, plus the visualisation
	// reader. No cancellation is provided at the CLI level — shutdown is
	// by process exit — but errgroup still gives each goroutine a clean
	// failure path if one of them returns an error.
	ctx := context.Background()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return queue.Run(gctx) })
	g.Go(func() error { return vehicles.Run(gctx) })
	g.Go(func() error { return matcher.Run(gctx) })
	g.Go(func() error { return reader.Run(gctx) })
	g.Go(func() error { return server.Serve(gctx, cfg.HTTPAddr) })

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "ridesim:", err)
		os.Exit(1)
	}
}

// loadMap opens <name>.osm from the maps/ directory, per spec section 6.
func loadMap(name string) (*mapmodel.RouteModel, error) {
	path := filepath.Join("maps", name+".osm")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return mapmodel.LoadOSM(f)
}

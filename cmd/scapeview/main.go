// Package main is the headless scape viewer: it mirrors the server's roster
// into an in-memory scene graph and resolves pointer clicks read from stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/scape/internal/config"
	"github.com/Faultbox/scape/internal/logger"
	"github.com/Faultbox/scape/internal/poller"
	"github.com/Faultbox/scape/internal/scene"
	"github.com/Faultbox/scape/pkg/geom"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.InitFromConfig(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== scape viewer ===",
		zap.String("server", cfg.Viewer.ServerURL),
		zap.String("room", cfg.Viewer.Room))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && ctx.Err() == nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}

func run(ctx context.Context, cfg *config.Config) error {
	client, err := poller.NewClient(cfg.Viewer.ServerURL, cfg.Viewer.RequestTimeout)
	if err != nil {
		return err
	}

	box := roomBounds(ctx, client, cfg.Viewer.Room)
	v := newView(cfg.Viewer, box)

	graph := scene.NewGraph(v.projector)
	registry := scene.NewRegistry(graph, logger.Named("scene"))
	registry.SetRadii(scene.Radii{
		scene.KindDevice:      cfg.Viewer.DeviceRadius,
		scene.KindParticipant: cfg.Viewer.ParticipantRadius,
	})
	registry.OnClick(func(e scene.Entity) {
		logger.Info("entity clicked",
			zap.Stringer("key", e.Key()),
			zap.String("name", e.Name),
			zap.String("status", e.Status))
	})

	p := poller.New(client, registry, cfg.Viewer.PollInterval, logger.Named("poller"))
	p.OnChange(func(d scene.Diff) {
		logger.Info("scene updated",
			zap.Int("created", len(d.Created)),
			zap.Int("updated", len(d.Updated)),
			zap.Int("destroyed", len(d.Destroyed)),
			zap.Int("markers", registry.Len()))
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		return v.interact(gctx, bufio.NewScanner(os.Stdin), registry, graph, os.Stdout)
	})
	if err := g.Wait(); !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

// fallbackRoom is used when the model cannot be fetched.
var fallbackRoom = geom.Box{Min: geom.Vec3{X: -5, Y: 0, Z: -5}, Max: geom.Vec3{X: 5, Y: 3, Z: 5}}

// roomBounds fetches the room model's bounding box, falling back to a
// default room so markers still render.
func roomBounds(ctx context.Context, client *poller.Client, room string) geom.Box {
	model, err := client.FetchModel(ctx, room)
	if err != nil {
		logger.Warn("room model unavailable, using fallback room", zap.String("room", room), zap.Error(err))
		return fallbackRoom
	}
	if model.BoundingBox.Empty() {
		logger.Warn("room model has no geometry, using fallback room", zap.String("room", room))
		return fallbackRoom
	}
	logger.Info("room model loaded",
		zap.String("room", room),
		zap.Int("meshes", len(model.Meshes)),
		zap.Int("triangles", model.TriangleCount()),
		zap.Int("materials", len(model.Materials)))
	return model.BoundingBox.Box
}

// view is the active projection plus the inverse mapping for floor picks.
type view struct {
	projector scene.Projector
	floor     func(x, y float32) (geom.Vec3, bool)
}

func newView(cfg config.ViewerConfig, box geom.Box) *view {
	vp := geom.Viewport{Width: float32(cfg.Width), Height: float32(cfg.Height)}

	if cfg.Projection == config.ProjectionTopDown {
		td := scene.FitTopDown(box, vp, cfg.TopDown.Margin)
		return &view{
			projector: td,
			floor: func(x, y float32) (geom.Vec3, bool) {
				p := td.Unproject(x, y)
				p.Y = box.Min.Y
				return p, true
			},
		}
	}

	cam := scene.NewOrbitCamera(cfg.FOVDegrees * math.Pi / 180)
	cam.FitToBox(box)
	pp := scene.NewPerspectiveProjection(cam, vp)
	return &view{
		projector: pp,
		floor: func(x, y float32) (geom.Vec3, bool) {
			return pp.RoomPoint(x, y, box)
		},
	}
}

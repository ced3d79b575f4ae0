package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/scape/internal/logger"
	"github.com/Faultbox/scape/internal/scene"
)

// interact reads commands line by line until EOF or ctx ends:
//
//	<x> <y>   click at surface pixel (x, y)
//	list      print the entities on screen
//	nodes     dump the scene graph as JSON
//	quit      stop the viewer
func (v *view) interact(ctx context.Context, in *bufio.Scanner, registry *scene.Registry, graph *scene.Graph, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for in.Scan() {
			select {
			case lines <- in.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				// Stdin closed: keep polling until interrupted.
				<-ctx.Done()
				return ctx.Err()
			}
			if quit := v.command(strings.TrimSpace(line), registry, graph, out); quit {
				return errQuit
			}
		}
	}
}

var errQuit = errors.New("quit requested")

func (v *view) command(line string, registry *scene.Registry, graph *scene.Graph, out io.Writer) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "exit", "q":
		return true
	case "list", "ls":
		for _, e := range registry.Entities() {
			p, ok := v.projector.ProjectPoint(e.Position)
			if !ok {
				fmt.Fprintf(out, "%-28s (off screen)\n", e.Key())
				continue
			}
			fmt.Fprintf(out, "%-28s %7.1f %7.1f  %s\n", e.Key(), p.X, p.Y, e.Status)
		}
	case "nodes":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(graph.Nodes())
	default:
		x, y, err := parsePoint(fields)
		if err != nil {
			fmt.Fprintf(out, "?? %v\n", err)
			return false
		}
		if e, ok := registry.Click(x, y); ok {
			fmt.Fprintf(out, "hit %s %q\n", e.Key(), e.Name)
			return false
		}
		if p, ok := v.floor(x, y); ok {
			logger.Debug("floor click", zap.Float32("x", p.X), zap.Float32("z", p.Z))
			fmt.Fprintf(out, "floor %.3f %.3f %.3f\n", p.X, p.Y, p.Z)
			return false
		}
		fmt.Fprintln(out, "miss")
	}
	return false
}

func parsePoint(fields []string) (float32, float32, error) {
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected \"<x> <y>\", list, nodes or quit")
	}
	x, err := strconv.ParseFloat(fields[0], 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bad x: %w", err)
	}
	y, err := strconv.ParseFloat(fields[1], 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bad y: %w", err)
	}
	return float32(x), float32(y), nil
}

// glbinfo is a CLI utility for inspecting binary glTF room models.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Faultbox/scape/internal/logger"
	"github.com/Faultbox/scape/pkg/glb"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "meshes", "ls":
		cmdMeshes(args)
	case "materials", "mat":
		cmdMaterials(args)
	case "json":
		cmdJSON(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`glbinfo - binary glTF room model utility

Usage:
  glbinfo <command> [options] <file.glb>

Commands:
  info <file.glb>                  Show container and model summary
  meshes [-n N] <file.glb>         List extracted mesh primitives
  materials <file.glb>             List material summaries
  json [-indent] <file.glb>        Print the processed model as JSON

Options:
  -v                               Log skipped primitives (any command)

Examples:
  glbinfo info rooms/lobby.glb
  glbinfo meshes -n 20 rooms/lobby.glb
  glbinfo json -indent rooms/lobby.glb > lobby.json`)
}

// load processes path, exiting on failure.
func load(path string, verbose bool) *glb.ProcessedGLB {
	level := "error"
	if verbose {
		level = "warn"
	}
	_ = logger.InitWithFileConfig(level, logger.FileConfig{}, true)
	defer logger.Sync()

	model, err := glb.NewProcessor(logger.Named("glb")).ProcessFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(path, err))
		os.Exit(1)
	}
	return model
}

// describeError phrases a ProcessFile failure for the terminal.
func describeError(path string, err error) string {
	var ioErr *glb.IOError
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Sprintf("%s does not exist", path)
	case errors.As(err, &ioErr):
		return fmt.Sprintf("cannot read %s: %v", path, ioErr.Err)
	case errors.Is(err, glb.ErrFormat):
		return fmt.Sprintf("%s is not a valid GLB: %v", path, err)
	}
	return err.Error()
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Log skipped primitives")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: glbinfo info <file.glb>")
		os.Exit(1)
	}

	model := load(fs.Arg(0), *verbose)
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	c, err := glb.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(fs.Arg(0), err))
		os.Exit(1)
	}

	fmt.Printf("File:       %s\n", fs.Arg(0))
	fmt.Printf("Size:       %.2f KB\n", float64(c.Header.Length)/1024)
	fmt.Printf("JSON chunk: %d bytes\n", len(c.JSON))
	fmt.Printf("BIN chunk:  %d bytes\n", len(c.BIN))
	fmt.Println()
	fmt.Printf("Meshes:     %d\n", len(model.Meshes))
	fmt.Printf("Vertices:   %d\n", model.VertexCount())
	fmt.Printf("Triangles:  %d\n", model.TriangleCount())
	fmt.Printf("Materials:  %d\n", len(model.Materials))

	if model.BoundingBox.Empty() {
		fmt.Println("Bounds:     (empty)")
	} else {
		b := model.BoundingBox
		size := b.Size()
		fmt.Printf("Bounds:     min (%.3f, %.3f, %.3f) max (%.3f, %.3f, %.3f)\n",
			b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
		fmt.Printf("Size:       %.3f x %.3f x %.3f\n", size.X, size.Y, size.Z)
	}

	if len(model.Warnings) > 0 {
		fmt.Println()
		fmt.Printf("Skipped (%d):\n", len(model.Warnings))
		for _, w := range model.Warnings {
			fmt.Printf("  %v\n", w)
		}
	}
}

func cmdMeshes(args []string) {
	fs := flag.NewFlagSet("meshes", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N meshes (0 = all)")
	verbose := fs.Bool("v", false, "Log skipped primitives")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: glbinfo meshes [-n N] <file.glb>")
		os.Exit(1)
	}

	model := load(fs.Arg(0), *verbose)

	fmt.Printf("%-32s %8s %9s %s\n", "NAME", "VERTICES", "TRIANGLES", "ATTRIBUTES")
	for i, m := range model.Meshes {
		if *limit > 0 && i >= *limit {
			fmt.Printf("... and %d more\n", len(model.Meshes)-*limit)
			break
		}
		attrs := []string{"position"}
		if m.Indices != nil {
			attrs = append(attrs, "indices")
		}
		if len(m.Normals) > 0 {
			attrs = append(attrs, "normal")
		}
		if len(m.UVs) > 0 {
			attrs = append(attrs, "uv")
		}
		fmt.Printf("%-32s %8d %9d %s\n", m.Name, m.VertexCount(), m.TriangleCount(), strings.Join(attrs, ","))
	}
}

func cmdMaterials(args []string) {
	fs := flag.NewFlagSet("materials", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Log skipped primitives")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: glbinfo materials <file.glb>")
		os.Exit(1)
	}

	model := load(fs.Arg(0), *verbose)

	// Group primitives by material name
	uses := make(map[string][]string)
	byName := make(map[string]glb.MaterialSummary)
	for _, m := range model.Materials {
		uses[m.Name] = append(uses[m.Name], m.Mesh)
		byName[m.Name] = m
	}
	names := make([]string, 0, len(uses))
	for name := range uses {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := byName[name]
		fmt.Printf("%s\n", name)
		fmt.Printf("  base color: %.3f %.3f %.3f %.3f\n", m.BaseColor[0], m.BaseColor[1], m.BaseColor[2], m.BaseColor[3])
		fmt.Printf("  metallic:   %.3f\n", m.Metallic)
		fmt.Printf("  roughness:  %.3f\n", m.Roughness)
		fmt.Printf("  used by:    %s\n", strings.Join(uses[name], ", "))
	}
}

func cmdJSON(args []string) {
	fs := flag.NewFlagSet("json", flag.ExitOnError)
	indent := fs.Bool("indent", false, "Pretty-print output")
	verbose := fs.Bool("v", false, "Log skipped primitives")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: glbinfo json [-indent] <file.glb>")
		os.Exit(1)
	}

	model := load(fs.Arg(0), *verbose)

	enc := json.NewEncoder(os.Stdout)
	if *indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(model); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package glb

import (
	"errors"
	"fmt"
	"os"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/scape/pkg/geom"
)

// Processor turns GLB files into ProcessedGLB summaries. It holds no
// per-file state and is safe for concurrent use.
type Processor struct {
	log *zap.Logger

	// MaxFileSize rejects larger files before reading them. Zero disables
	// the check.
	MaxFileSize int64
}

// NewProcessor creates a processor. A nil logger discards warnings.
func NewProcessor(log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{log: log}
}

// ProcessFile reads path and summarizes it. Filesystem failures are returned
// as *IOError, container and document failures wrap ErrFormat.
func (p *Processor) ProcessFile(path string) (*ProcessedGLB, error) {
	if p.MaxFileSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, &IOError{Path: path, Err: err}
		}
		if info.Size() > p.MaxFileSize {
			return nil, &IOError{Path: path, Err: fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, info.Size(), p.MaxFileSize)}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	out, err := p.Process(data)
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", path, err)
	}
	return out, nil
}

// Process summarizes an in-memory GLB.
func (p *Processor) Process(data []byte) (*ProcessedGLB, error) {
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc, err := c.Document()
	if err != nil {
		return nil, err
	}

	r := &accessorReader{doc: doc, bin: c.BIN}
	out := &ProcessedGLB{
		Meshes:      []MeshPrimitive{},
		BoundingBox: BoundingBox{Box: geom.EmptyBox()},
		Materials:   []MaterialSummary{},
	}

	for mi, mesh := range doc.Meshes {
		if mesh == nil {
			continue
		}
		meshName := mesh.Name
		if meshName == "" {
			meshName = "Mesh"
		}

		for pi, prim := range mesh.Primitives {
			if prim == nil {
				continue
			}
			name := fmt.Sprintf("%s_%d_%d", meshName, mi, pi)

			mp, warnings, err := p.primitive(r, name, prim)
			for _, w := range warnings {
				out.warn(p.log, name, pi, w)
			}
			if err != nil {
				if errors.Is(err, ErrFormat) {
					return nil, fmt.Errorf("mesh %s primitive %d: %w", meshName, pi, err)
				}
				out.warn(p.log, name, pi, err)
				continue
			}

			out.BoundingBox.ExtendFlat(mp.Vertices)
			out.Meshes = append(out.Meshes, *mp)

			if prim.Material != nil {
				mat, err := material(doc, *prim.Material)
				if err != nil {
					out.warn(p.log, name, pi, err)
					continue
				}
				mat.Mesh = name
				out.Materials = append(out.Materials, mat)
			}
		}
	}

	p.log.Debug("processed GLB",
		zap.Int("meshes", len(out.Meshes)),
		zap.Int("materials", len(out.Materials)),
		zap.Int("vertices", out.VertexCount()),
		zap.Int("warnings", len(out.Warnings)))

	return out, nil
}

func (out *ProcessedGLB) warn(log *zap.Logger, mesh string, primitive int, err error) {
	w := PartialDataWarning{Mesh: mesh, Primitive: primitive, Err: err}
	out.Warnings = append(out.Warnings, w)
	log.Warn("partial GLB data",
		zap.String("mesh", mesh),
		zap.Int("primitive", primitive),
		zap.String("reason", err.Error()))
}

// primitive decodes one primitive. Optional attributes that cannot be used
// are returned as warnings; a non-nil error means the primitive is dropped.
func (p *Processor) primitive(r *accessorReader, name string, prim *gltf.Primitive) (*MeshPrimitive, []error, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, nil, fmt.Errorf("%w: mode %v", errPrimitiveMode, prim.Mode)
	}

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, nil, errMissingPosition
	}
	vertices, err := r.floats(posIdx, gltf.AccessorVec3)
	if err != nil {
		return nil, nil, err
	}
	vertexCount := len(vertices) / 3

	mp := &MeshPrimitive{
		Name:     name,
		Vertices: vertices,
		Normals:  []float32{},
		UVs:      []float32{},
	}

	var warnings []error

	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := r.floats(idx, gltf.AccessorVec3)
		switch {
		case errors.Is(err, ErrFormat):
			return nil, nil, err
		case err != nil:
			warnings = append(warnings, fmt.Errorf("NORMAL dropped: %w", err))
		case len(normals)/3 != vertexCount:
			warnings = append(warnings, fmt.Errorf("NORMAL dropped: %w: %d normals for %d vertices", errAccessorLayout, len(normals)/3, vertexCount))
		default:
			mp.Normals = normals
		}
	}

	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := r.floats(idx, gltf.AccessorVec2)
		switch {
		case errors.Is(err, ErrFormat):
			return nil, nil, err
		case err != nil:
			warnings = append(warnings, fmt.Errorf("TEXCOORD_0 dropped: %w", err))
		case len(uvs)/2 != vertexCount:
			warnings = append(warnings, fmt.Errorf("TEXCOORD_0 dropped: %w: %d uvs for %d vertices", errAccessorLayout, len(uvs)/2, vertexCount))
		default:
			mp.UVs = uvs
		}
	}

	if prim.Indices != nil {
		indices, err := r.indices(*prim.Indices)
		if err != nil {
			return nil, nil, err
		}
		if len(indices)%3 != 0 {
			return nil, nil, fmt.Errorf("%w: %d", errIndexCount, len(indices))
		}
		for i, v := range indices {
			if int(v) >= vertexCount {
				return nil, nil, fmt.Errorf("%w: index %d is %d, primitive has %d vertices", errIndexRange, i, v, vertexCount)
			}
		}
		mp.Indices = indices
	}

	return mp, warnings, nil
}

// material extracts the PBR scalars, applying glTF defaults for anything
// the document leaves out.
func material(doc *gltf.Document, idx uint32) (MaterialSummary, error) {
	if int(idx) >= len(doc.Materials) || doc.Materials[idx] == nil {
		return MaterialSummary{}, fmt.Errorf("material %d not defined (have %d)", idx, len(doc.Materials))
	}
	m := doc.Materials[idx]

	s := MaterialSummary{
		Name:      m.Name,
		BaseColor: [4]float32{1, 1, 1, 1},
		Metallic:  1,
		Roughness: 1,
	}
	if s.Name == "" {
		s.Name = fmt.Sprintf("Material_%d", idx)
	}
	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			s.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			s.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			s.Roughness = *pbr.RoughnessFactor
		}
	}
	return s, nil
}

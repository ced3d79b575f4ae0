// Package glb extracts mesh geometry, a global bounding box and material
// scalars from binary glTF (.glb) files.
package glb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/qmuntal/gltf"
)

// Container constants.
const (
	Magic      uint32 = 0x46546C67 // "glTF" little-endian
	Version    uint32 = 2
	HeaderSize        = 12

	ChunkJSON uint32 = 0x4E4F534A // "JSON"
	ChunkBIN  uint32 = 0x004E4942 // "BIN\0"

	chunkHeaderSize = 8
)

// Header is the fixed 12-byte GLB preamble.
type Header struct {
	Magic   uint32
	Version uint32
	Length  uint32 // Total file length including the header
}

// Chunk is one length-prefixed section of the container.
type Chunk struct {
	Type uint32
	Data []byte
}

// Container is a structurally validated GLB: the JSON document bytes and the
// optional binary buffer. Data slices alias the input.
type Container struct {
	Header Header
	JSON   []byte
	BIN    []byte // nil when the file has no binary chunk
}

// Parse validates the header and walks the chunk table.
func Parse(data []byte) (*Container, error) {
	if len(data) < HeaderSize {
		return nil, ErrTruncated
	}

	r := bytes.NewReader(data)

	var hdr Header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, ErrTruncated
	}
	if hdr.Magic != Magic {
		return nil, ErrInvalidMagic
	}
	if hdr.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr.Version)
	}
	if int64(hdr.Length) != int64(len(data)) {
		return nil, fmt.Errorf("%w: header says %d bytes, have %d", ErrChunkLength, hdr.Length, len(data))
	}

	chunks, err := readChunks(data[HeaderSize:])
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 || chunks[0].Type != ChunkJSON {
		return nil, ErrMissingJSONChunk
	}

	c := &Container{Header: hdr, JSON: chunks[0].Data}
	for _, ch := range chunks[1:] {
		switch ch.Type {
		case ChunkJSON:
			return nil, fmt.Errorf("%w: duplicate JSON chunk", ErrFormat)
		case ChunkBIN:
			if c.BIN != nil {
				return nil, fmt.Errorf("%w: more than one BIN chunk", ErrFormat)
			}
			c.BIN = ch.Data
		default:
			// Unknown chunk types are skipped.
		}
	}
	return c, nil
}

func readChunks(data []byte) ([]Chunk, error) {
	var chunks []Chunk
	for off := 0; off < len(data); {
		if len(data)-off < chunkHeaderSize {
			return nil, fmt.Errorf("%w: %d trailing bytes after chunk %d", ErrTruncated, len(data)-off, len(chunks))
		}
		length := binary.LittleEndian.Uint32(data[off:])
		typ := binary.LittleEndian.Uint32(data[off+4:])
		off += chunkHeaderSize

		if uint64(length) > uint64(len(data)-off) {
			return nil, fmt.Errorf("%w: chunk %d claims %d bytes, %d remain", ErrChunkLength, len(chunks), length, len(data)-off)
		}
		chunks = append(chunks, Chunk{Type: typ, Data: data[off : off+int(length)]})
		off += int(length)
	}
	return chunks, nil
}

// Document decodes the JSON chunk.
func (c *Container) Document() (*gltf.Document, error) {
	doc := new(gltf.Document)
	if err := json.Unmarshal(c.JSON, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	return doc, nil
}

package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/scape/pkg/geom"
)

// Record is a device or participant as served by the REST endpoints. Sources
// disagree on naming: the position is either a nested {x, y, z} object or
// separate positionX/positionY/positionZ fields, and ids are numbers or
// strings.
type Record struct {
	ID     json.RawMessage `json:"id"`
	Kind   string          `json:"kind,omitempty"`
	Type   string          `json:"type,omitempty"`
	Name   string          `json:"name,omitempty"`
	Status string          `json:"status,omitempty"`

	Position *struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
		Z *float64 `json:"z"`
	} `json:"position,omitempty"`

	PositionX *float64 `json:"positionX,omitempty"`
	PositionY *float64 `json:"positionY,omitempty"`
	PositionZ *float64 `json:"positionZ,omitempty"`
}

// Normalize converts the record into an Entity in room space. kind is used
// when the record carries no "kind" field; "type" is the last resort.
// Missing position axes default to 0.
func (r Record) Normalize(kind Kind) (Entity, error) {
	id, err := parseID(r.ID)
	if err != nil {
		return Entity{}, err
	}

	e := Entity{
		ID:     id,
		Kind:   Kind(r.Kind),
		Name:   r.Name,
		Status: r.Status,
	}
	if e.Kind == "" {
		e.Kind = kind
	}
	if e.Kind == "" {
		e.Kind = Kind(strings.ToLower(r.Type))
	}

	if p := r.Position; p != nil {
		e.Position = geom.Vec3{X: axis(p.X), Y: axis(p.Y), Z: axis(p.Z)}
	} else {
		e.Position = geom.Vec3{X: axis(r.PositionX), Y: axis(r.PositionY), Z: axis(r.PositionZ)}
	}

	if err := e.Validate(); err != nil {
		return Entity{}, err
	}
	return e, nil
}

func axis(v *float64) float32 {
	if v == nil {
		return 0
	}
	return float32(*v)
}

func parseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errMissingID
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("id: %w", err)
		}
		if s == "" {
			return "", errMissingID
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id must be a number or string: %s", raw)
	}
	return canonicalNumber(n), nil
}

// canonicalNumber spells equal numeric ids the same way, so 1, 1.0 and 1e0
// all become "1". Integers too large for float64 keep their digits.
func canonicalNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if !strings.ContainsAny(n.String(), ".eE") {
		return n.String()
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.Abs(f) >= 1e21 {
		return n.String()
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// DecodeEntities decodes a JSON array of records. Records that fail to
// decode or normalize are logged and dropped; only a payload that is not an
// array at all is an error.
func DecodeEntities(data []byte, kind Kind, log *zap.Logger) ([]Entity, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decoding %s list: %w", kind, err)
	}

	entities := make([]Entity, 0, len(raws))
	for i, raw := range raws {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.Warn("dropping undecodable record", zap.String("kind", string(kind)), zap.Int("index", i), zap.Error(err))
			continue
		}
		e, err := rec.Normalize(kind)
		if err != nil {
			log.Warn("dropping record",
				zap.String("kind", string(kind)),
				zap.ByteString("id", rec.ID),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		entities = append(entities, e)
	}
	return entities, nil
}

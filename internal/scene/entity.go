// Package scene keeps the markers of a rendered room in step with the
// device and participant lists polled from the server, and resolves pointer
// clicks to the entity under the cursor.
package scene

import (
	"errors"
	"fmt"

	"github.com/Faultbox/scape/pkg/geom"
)

// Kind distinguishes entity categories.
type Kind string

const (
	KindDevice      Kind = "device"
	KindParticipant Kind = "participant"
)

// Key identifies an entity across sync cycles. At most one marker exists
// per key.
type Key struct {
	Kind Kind
	ID   string
}

// Less orders keys by kind, then id.
func (k Key) Less(other Key) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	return k.ID < other.ID
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Kind, k.ID)
}

// Entity is a device or participant placed in room space.
type Entity struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Name     string    `json:"name,omitempty"`
	Status   string    `json:"status,omitempty"`
	Position geom.Vec3 `json:"position"`
}

// Key returns the entity's identity.
func (e Entity) Key() Key {
	return Key{Kind: e.Kind, ID: e.ID}
}

var (
	errMissingID   = errors.New("missing id")
	errMissingKind = errors.New("missing kind")
	errBadPosition = errors.New("non-finite position")
)

// Validate reports why e cannot be placed in a scene.
func (e Entity) Validate() error {
	switch {
	case e.ID == "":
		return errMissingID
	case e.Kind == "":
		return errMissingKind
	case !e.Position.IsFinite():
		return errBadPosition
	}
	return nil
}

// Package command defines the replicated shot commands exchanged between participants and the
// queue that carries them into the tick.
package command

import (
	"fmt"

	"github.com/argus-labs/armory/pkg/armory/entity"
	"github.com/rotisserie/eris"
	"github.com/shamaton/msgpack/v3"
)

// Channel is the replication channel shot commands travel on.
const Channel = "entities"

// Kind selects the remote operation a shot is dispatched as.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindPlayerShot
	KindGenericShot
)

func (k Kind) String() string {
	switch k {
	case KindPlayerShot:
		return "onPlayerShootWeapon"
	case KindGenericShot:
		return "onGenericShootWeapon"
	case KindUndefined:
		return "undefined"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// KindOf returns the command kind used for shots fired by a shooter of the given type.
func KindOf(t entity.Type) Kind {
	if t == entity.TypePlayer {
		return KindPlayerShot
	}
	return KindGenericShot
}

// ParseKind maps an operation name back to its kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case KindPlayerShot.String():
		return KindPlayerShot, nil
	case KindGenericShot.String():
		return KindGenericShot, nil
	default:
		return KindUndefined, eris.Errorf("unknown shot operation %q", name)
	}
}

// Shot is a fire event resolved by fire control: the barrel position, the fire angle and the
// barrel side of one logical shot.
type Shot struct {
	Kind    Kind      `msgpack:"kind"`
	Shooter entity.ID `msgpack:"shooter"`
	X       float32   `msgpack:"x"`
	Y       float32   `msgpack:"y"`
	Angle   float32   `msgpack:"angle"`
	Left    bool      `msgpack:"left"`
}

// NewShot builds the command for a shot fired by s.
func NewShot(s *entity.Shooter, x, y, angle float32, side entity.Side) Shot {
	return Shot{
		Kind:    KindOf(s.Kind.Type),
		Shooter: s.ID,
		X:       x,
		Y:       y,
		Angle:   angle,
		Left:    side.Left(),
	}
}

// Name returns the remote operation name of the shot.
func (s Shot) Name() string {
	return s.Kind.String()
}

// Side returns the barrel side the shot was fired from.
func (s Shot) Side() entity.Side {
	return entity.SideOf(s.Left)
}

// Encode serializes a shot for the wire.
func Encode(s Shot) ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode shot")
	}
	return data, nil
}

// Decode parses a shot received from the wire. Payloads with an unknown kind are rejected.
func Decode(data []byte) (shot Shot, err error) {
	defer func() {
		// shamaton/msgpack/v3 can panic on malformed input instead of returning an error.
		if r := recover(); r != nil {
			shot = Shot{}
			err = eris.Wrap(fmt.Errorf("panic: %v", r), "failed to decode shot")
		}
	}()

	if err := msgpack.Unmarshal(data, &shot); err != nil {
		return Shot{}, eris.Wrap(err, "failed to decode shot")
	}
	if shot.Kind != KindPlayerShot && shot.Kind != KindGenericShot {
		return Shot{}, eris.Errorf("invalid shot kind %d", shot.Kind)
	}
	return shot, nil
}

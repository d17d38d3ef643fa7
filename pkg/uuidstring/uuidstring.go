package uuidstring

import (
	"github.com/google/uuid"
)

// ID is a UUID carried in its canonical string form. Session, game and
// player ids cross the wire as JSON strings, so keeping them stringly
// avoids re-parsing at every envelope boundary.
type ID string

func NewID() ID {
	return ID(uuid.New().String())
}

func (id ID) UUID() (uuid.UUID, error) {
	if id == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(string(id))
}

func (id ID) Valid() bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}

func (id ID) String() string {
	return string(id)
}

func (id ID) MarshalBinary() (data []byte, err error) {
	return []byte(id), nil
}

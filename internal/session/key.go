package session

import "github.com/google/uuid"

// Key identifies one identify run. Keys are compared by pointer identity;
// the id only exists for log correlation.
type Key struct {
	id string
}

// NewKey returns a fresh key.
func NewKey() *Key {
	return &Key{id: uuid.NewString()}
}

// String returns the key's correlation id.
func (k *Key) String() string {
	if k == nil {
		return "<nil>"
	}
	return k.id
}

package domain

import (
	"github.com/rs/xid"
)

// IDGenerator produces identifiers for newly created entities. Injected so
// tests can supply deterministic ids.
type IDGenerator interface {
	NewID() string
}

type xidGenerator struct{}

func NewIDGenerator() IDGenerator {
	return xidGenerator{}
}

func (xidGenerator) NewID() string {
	return xid.New().String()
}

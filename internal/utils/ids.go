package utils

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IdGenerator mints identifiers with a fixed prefix.
type IdGenerator interface {
	NewId() string
}

type UUIDGenerator struct {
	Prefix string
}

func (g UUIDGenerator) NewId() string {
	return g.Prefix + uuid.NewString()
}

// SequenceGenerator yields "<prefix>1", "<prefix>2", ... and is meant for tests.
type SequenceGenerator struct {
	Prefix string
	next   atomic.Int64
}

func (g *SequenceGenerator) NewId() string {
	return fmt.Sprintf("%s%d", g.Prefix, g.next.Add(1))
}

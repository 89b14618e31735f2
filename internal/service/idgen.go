package service

import "github.com/google/uuid"

// IDGenerator produces ids for newly created entities. Injected so the
// id strategy (random UUID here, store-assigned elsewhere) is not owned
// by the core logic.
type IDGenerator func() uuid.UUID

// NewUUIDGenerator returns the default random-UUID generator
func NewUUIDGenerator() IDGenerator {
	return uuid.New
}

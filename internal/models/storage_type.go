package models

import "fmt"

// StorageType represents the type of storage backend to use
type StorageType string

const (
	// Memory storage keeps entries in a process-local map. Single instance only.
	Memory StorageType = "memory"

	// Redis storage type uses Redis for storage
	Redis StorageType = "redis"

	// Postgres storage type keeps entries in a PostgreSQL table with an expiry column
	Postgres StorageType = "postgres"

	// Bolt storage type keeps entries in an embedded bbolt file
	Bolt StorageType = "bolt"
)

// String returns the string representation of the storage type
func (s StorageType) String() string {
	return string(s)
}

// Validate reports an error for unknown storage types
func (s StorageType) Validate() error {
	switch s {
	case Memory, Redis, Postgres, Bolt:
		return nil
	}
	return fmt.Errorf("unknown storage type %q", string(s))
}

// Shared reports whether the backend can be shared by several service instances
func (s StorageType) Shared() bool {
	return s == Redis || s == Postgres
}

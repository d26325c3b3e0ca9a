package utils

import (
	"github.com/bwmarrin/snowflake"
)

// RequestIDGenerator wraps bwmarrin/snowflake Node to mint request IDs for callers that send none
type RequestIDGenerator struct {
	node *snowflake.Node
}

// NewRequestIDGenerator creates a new RequestIDGenerator
func NewRequestIDGenerator(machineID int64) (*RequestIDGenerator, error) {
	// Ensure machineID is in valid range (0-1023)
	if machineID < 0 || machineID > 1023 {
		machineID = 1 // Default to 1 if out of range
	}

	node, err := snowflake.NewNode(machineID)
	if err != nil {
		return nil, err
	}

	return &RequestIDGenerator{
		node: node,
	}, nil
}

// NextID returns the next snowflake ID
func (g *RequestIDGenerator) NextID() int64 {
	return g.node.Generate().Int64()
}

// Next returns the next request ID, base62 encoded
func (g *RequestIDGenerator) Next() string {
	return EncodeBase62(uint64(g.NextID()))
}

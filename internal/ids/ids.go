package ids

import (
	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewUserID generates a new globally unique, time-sortable user id.
func NewUserID() string {
	return ksuid.New().String()
}

// RequestIDs issues snowflake ids for incoming requests.
type RequestIDs struct {
	node *snowflake.Node
}

// NewRequestIDs creates a generator for the given node id. Node ids outside
// the snowflake range fall back to node 1.
func NewRequestIDs(nodeID int64) *RequestIDs {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		node, _ = snowflake.NewNode(1)
	}
	return &RequestIDs{node: node}
}

// Next returns the next request id.
func (g *RequestIDs) Next() string {
	return g.node.Generate().String()
}

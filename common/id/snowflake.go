package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID. Replicas behind
// the same load balancer should use distinct node IDs (0-1023).
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// NewDeliveryID returns a time-ordered identifier for one inbound webhook.
// Falls back to node 0 when Init was never called (tests, tooling).
func NewDeliveryID() string {
	_ = Init(0)
	return node.Generate().String()
}

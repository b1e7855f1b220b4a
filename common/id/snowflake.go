package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Node ids per process kind, so ledger rows written by the server and the
// worker never collide.
const (
	NodeServer   int64 = 1
	NodeWorker   int64 = 2
	NodeBackfill int64 = 3
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
// Only the first call has an effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	if err != nil {
		return fmt.Errorf("creating snowflake node %d: %w", nodeID, err)
	}
	return nil
}

// New generates a new time-ordered int64 ID. Init must have been called.
func New() int64 {
	return node.Generate().Int64()
}

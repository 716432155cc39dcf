// Package hubcore defines the shared data model for the A2A coordination
// hub: agents, tasks, messages, and the discovery card. Every other
// package imports hubcore rather than redeclaring these shapes.
package hubcore

import "github.com/google/uuid"

// NewIdentity returns a fresh 128-bit random identity suitable for an
// AgentRecord.Identity, a Task.ID, a Task.ContextID, or a Message.ID.
func NewIdentity() string {
	return uuid.NewString()
}

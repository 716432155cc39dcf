package hubcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentRecordHasCapabilities(t *testing.T) {
	r := &AgentRecord{Capabilities: []string{"go", "lint", "test"}}

	assert.True(t, r.HasCapabilities(nil))
	assert.True(t, r.HasCapabilities([]string{"go"}))
	assert.True(t, r.HasCapabilities([]string{"go", "lint"}))
	assert.False(t, r.HasCapabilities([]string{"go", "rust"}))
}

func TestTaskStateTerminal(t *testing.T) {
	terminal := []TaskState{TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateRejected, TaskStateExpired}
	for _, s := range terminal {
		assert.Truef(t, s.Terminal(), "expected %s to be terminal", s)
	}

	nonTerminal := []TaskState{TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired, TaskStateAuthRequired, TaskStateUnknown}
	for _, s := range nonTerminal {
		assert.Falsef(t, s.Terminal(), "expected %s to not be terminal", s)
	}
}

func TestMessageNormalize(t *testing.T) {
	base := func() Message {
		return Message{
			ID:        NewIdentity(),
			Type:      MessageTaskInvite,
			From:      "agent-a",
			To:        "agent-b",
			Timestamp: time.Now(),
		}
	}

	t.Run("valid message derives collaboration layer", func(t *testing.T) {
		m := base()
		require.NoError(t, m.Normalize(""))
		assert.Equal(t, LayerCollaboration, m.Layer)
	})

	t.Run("consensus messages derive ecosystem layer", func(t *testing.T) {
		m := base()
		m.Type = MessageCoordinationConsensus
		require.NoError(t, m.Normalize(""))
		assert.Equal(t, LayerEcosystem, m.Layer)
	})

	t.Run("missing field is rejected", func(t *testing.T) {
		m := base()
		m.To = ""
		err := m.Normalize("")
		require.Error(t, err)
		assert.Equal(t, KindInvalidParams, KindOf(err))
	})

	t.Run("zero timestamp is rejected", func(t *testing.T) {
		m := base()
		m.Timestamp = time.Time{}
		require.Error(t, m.Normalize(""))
	})

	t.Run("message claiming the host identity is rejected", func(t *testing.T) {
		m := base()
		m.From = "host-1"
		err := m.Normalize("host-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMessageFromHost)
	})
}

func TestNewIdentityIsUnique(t *testing.T) {
	a := NewIdentity()
	b := NewIdentity()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}

package hubcore

import (
	"encoding/json"
	"time"
)

// AgentKind enumerates the roles an AgentRecord may hold.
type AgentKind string

const (
	// AgentKindHost identifies the single local process agent.
	AgentKindHost AgentKind = "host"
	// AgentKindCodeAssistant identifies a connected code-assistant peer.
	AgentKindCodeAssistant AgentKind = "code-assistant"
	// AgentKindSpecialist identifies a peer specializing in one capability.
	AgentKindSpecialist AgentKind = "specialist"
	// AgentKindValidator identifies a peer that checks or scores other work.
	AgentKindValidator AgentKind = "validator"
	// AgentKindCoordinator identifies a peer that itself coordinates sub-agents.
	AgentKindCoordinator AgentKind = "coordinator"
	// AgentKindOther is the catch-all for unclassified peers.
	AgentKindOther AgentKind = "other"
)

// AgentStatus is the liveness state of an AgentRecord.
type AgentStatus string

const (
	// AgentStatusActive marks an agent seen within its TTL.
	AgentStatusActive AgentStatus = "active"
	// AgentStatusExpired marks an agent reaped for silence.
	AgentStatusExpired AgentStatus = "expired"
)

// AgentRecord is the registry's view of one agent, local or remote.
type AgentRecord struct {
	// Identity is unique per process lifetime of the agent.
	Identity string `json:"identity"`
	// Capabilities is the free-vocabulary set of tags this agent offers.
	Capabilities []string `json:"capabilities"`
	// Kind classifies the agent's role.
	Kind AgentKind `json:"kind"`
	// Endpoint is an optional origin URL or connection handle for outbound
	// addressing.
	Endpoint string `json:"endpoint,omitempty"`
	// LastSeen is the last time any message was observed from this identity.
	LastSeen time.Time `json:"lastSeen"`
	// Status is the current liveness state.
	Status AgentStatus `json:"status"`
	// Metadata carries free-form key/value data supplied at registration.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// HasCapabilities reports whether the record's capability set is a
// superset of required.
func (r *AgentRecord) HasCapabilities(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(r.Capabilities))
	for _, c := range r.Capabilities {
		have[c] = struct{}{}
	}
	for _, c := range required {
		if _, ok := have[c]; !ok {
			return false
		}
	}
	return true
}

// TaskState is the lifecycle state of a Task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateRejected      TaskState = "rejected"
	TaskStateAuthRequired  TaskState = "auth-required"
	TaskStateUnknown       TaskState = "unknown"
	TaskStateExpired       TaskState = "expired"
)

// Terminal reports whether s is one of the terminal states that end
// a task's lifecycle.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateRejected, TaskStateExpired:
		return true
	default:
		return false
	}
}

// CoordinationPatternName names one of the three coordination patterns.
type CoordinationPatternName string

const (
	PatternPeerToPeer  CoordinationPatternName = "peer-to-peer"
	PatternHierarchical CoordinationPatternName = "hierarchical"
	PatternConsensus    CoordinationPatternName = "consensus"
)

// StatusEntry is one append-only entry in a Task's StatusHistory.
type StatusEntry struct {
	// State is the task state entered at Timestamp.
	State TaskState `json:"state"`
	// Timestamp records when this state was entered.
	Timestamp time.Time `json:"timestamp"`
	// Reason optionally explains a failed/rejected/expired transition.
	Reason string `json:"reason,omitempty"`
}

// Participant records one agent's contribution to a Task.
type Participant struct {
	// Identity is the contributing agent's identity.
	Identity string `json:"identity"`
	// Contribution is the participant's submitted artifact, if any.
	Contribution any `json:"contribution,omitempty"`
	// SubmittedAt records when the contribution arrived. Zero if the
	// participant was invited but has not yet responded.
	SubmittedAt time.Time `json:"submittedAt,omitempty"`
}

// Task is a unit of multi-agent work.
type Task struct {
	// ID is the task's opaque identifier.
	ID string `json:"id"`
	// ContextID groups related tasks together; it persists across them.
	ContextID string `json:"contextId"`
	// RequiredCapabilities is the set of capability tags needed to
	// participate in this task.
	RequiredCapabilities []string `json:"requiredCapabilities,omitempty"`
	// Requester is the identity of the agent that created the task.
	Requester string `json:"requester"`
	// Participants is the ordered list of agents invited to or
	// contributing to the task.
	Participants []Participant `json:"participants,omitempty"`
	// State is the current lifecycle state.
	State TaskState `json:"state"`
	// CoordinationPattern selects how work is dispatched and merged.
	CoordinationPattern CoordinationPatternName `json:"coordinationPattern"`
	// CreatedAt records task creation time.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt records the last state transition time.
	UpdatedAt time.Time `json:"updatedAt"`
	// CompletedAt records when a terminal state was entered; zero until then.
	CompletedAt time.Time `json:"completedAt,omitempty"`
	// StatusHistory is the append-only transition log.
	StatusHistory []StatusEntry `json:"statusHistory"`
	// Result is the final aggregated artifact; set only in terminal states.
	Result any `json:"result,omitempty"`
}

// MessageType is the closed vocabulary of wire-level coordination
// message kinds.
type MessageType string

const (
	MessageAgentRegister          MessageType = "agent:register"
	MessageAgentDiscovery         MessageType = "agent:discovery"
	MessageAgentDiscoveryResponse MessageType = "agent:discovery:response"
	MessageTaskInvite             MessageType = "task:invite"
	MessageTaskContribution       MessageType = "task:contribution"
	MessageTaskCompleted          MessageType = "task:completed"
	MessageCoordinationVote       MessageType = "coordination:vote"
	MessageCoordinationConsensus  MessageType = "coordination:consensus"
)

// Layer classifies a message as collaboration (1) or ecosystem (2).
type Layer int

const (
	// LayerCollaboration covers ordinary agent-to-agent task traffic.
	LayerCollaboration Layer = 1
	// LayerEcosystem covers extension-proposal traffic.
	LayerEcosystem Layer = 2
)

// layerForType derives a message's Layer from its type prefix.
func layerForType(t MessageType) Layer {
	switch t {
	case MessageCoordinationVote, MessageCoordinationConsensus:
		return LayerEcosystem
	default:
		return LayerCollaboration
	}
}

// BroadcastTarget is the reserved `to` value meaning "all connected peers".
const BroadcastTarget = "broadcast"

// Message is the wire-level coordination message exchanged over the
// WebSocket peer fabric, distinct from the JSON-RPC envelope used by
// the HTTP front door.
type Message struct {
	// ID is the message's opaque identifier.
	ID string `json:"id"`
	// Type is the addressing verb; see the MessageType constants.
	Type MessageType `json:"type"`
	// From is the sending agent's identity.
	From string `json:"from"`
	// To is the receiving agent's identity, or BroadcastTarget.
	To string `json:"to"`
	// Data is the opaque payload, shaped per Type.
	Data json.RawMessage `json:"data,omitempty"`
	// Timestamp records when the message was created.
	Timestamp time.Time `json:"timestamp"`
	// Layer is derived from Type; see LayerCollaboration/LayerEcosystem.
	Layer Layer `json:"layer"`
}

// Normalize fills in derived fields (Layer) and validates the
// structural invariants every Message must satisfy: ID, Type, From and
// To must be non-empty and Timestamp non-zero (Data may be empty), and
// a message claiming to originate from the host is rejected on an
// inbound channel (callers pass hostIdentity to enable that check; an
// empty hostIdentity skips it).
func (m *Message) Normalize(hostIdentity string) error {
	if m.ID == "" || m.Type == "" || m.From == "" || m.To == "" {
		return ErrInvalidMessage
	}
	if m.Timestamp.IsZero() {
		return ErrInvalidMessage
	}
	if hostIdentity != "" && m.From == hostIdentity {
		return ErrMessageFromHost
	}
	m.Layer = layerForType(m.Type)
	return nil
}

// AgentCardCapabilities describes protocol-level capability flags
// advertised by the discovery card.
type AgentCardCapabilities struct {
	// Streaming reports support for message/stream.
	Streaming bool `json:"streaming"`
	// PushNotifications reports support for tasks/pushNotificationConfig.
	PushNotifications bool `json:"pushNotifications"`
	// StateTransitionHistory reports whether tasks/get includes statusHistory.
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// Skill describes one capability the host agent exposes.
type Skill struct {
	// ID is the skill's unique identifier.
	ID string `json:"id"`
	// Name is the human-readable skill name.
	Name string `json:"name"`
	// Description is an optional human-readable description.
	Description string `json:"description,omitempty"`
	// Tags are optional labels describing the skill.
	Tags []string `json:"tags,omitempty"`
	// Examples are optional example inputs for the skill.
	Examples []string `json:"examples,omitempty"`
	// InputModes are the supported input content modes for the skill.
	InputModes []string `json:"inputModes,omitempty"`
	// OutputModes are the supported output content modes for the skill.
	OutputModes []string `json:"outputModes,omitempty"`
}

// SecurityScheme represents a single security scheme definition in the
// AgentCard. The hub never enforces these itself; see DESIGN.md's
// Unauthorized note.
type SecurityScheme struct {
	// Type is the security scheme type ("http", "apiKey", or "oauth2").
	Type string `json:"type"`
	// Scheme is the HTTP authentication scheme when Type == "http".
	Scheme string `json:"scheme,omitempty"`
	// In is the API key location when Type == "apiKey".
	In string `json:"in,omitempty"`
	// Name is the API key parameter name when Type == "apiKey".
	Name string `json:"name,omitempty"`
}

// AgentCard is the read-only discovery descriptor served at
// /.well-known/agent.json. It is a pure projection of static
// configuration plus the host AgentRecord; it is never mutated by
// message traffic.
type AgentCard struct {
	// Name is the human-readable agent name.
	Name string `json:"name"`
	// Description is a human-readable description of the agent.
	Description string `json:"description,omitempty"`
	// Version is the agent implementation version.
	Version string `json:"version"`
	// Provider is the human-readable provider/vendor name.
	Provider string `json:"provider,omitempty"`
	// URL is the HTTP base where this agent is reachable.
	URL string `json:"url"`
	// Capabilities captures protocol-level capability flags.
	Capabilities AgentCardCapabilities `json:"capabilities"`
	// Skills enumerates the skills exposed by the agent.
	Skills []Skill `json:"skills"`
	// DefaultInputModes lists the default supported input content modes.
	DefaultInputModes []string `json:"defaultInputModes,omitempty"`
	// DefaultOutputModes lists the default supported output content modes.
	DefaultOutputModes []string `json:"defaultOutputModes,omitempty"`
	// SecuritySchemes defines the security schemes supported by the agent.
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes,omitempty"`
}

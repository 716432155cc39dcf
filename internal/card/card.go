// Package card publishes the read-only Agent Discovery Card served at
// /.well-known/agent.json. It is a pure projection of static
// configuration onto hubcore.AgentCard; nothing here is mutated by
// message traffic.
package card

import "github.com/cloi-dev/hub/internal/hubcore"

// Config is the static description of the host agent from which its
// AgentCard is built.
type Config struct {
	Name                   string
	Description            string
	Version                string
	Provider               string
	URL                    string
	Streaming              bool
	PushNotifications      bool
	StateTransitionHistory bool
	Skills                 []hubcore.Skill
	DefaultInputModes      []string
	DefaultOutputModes     []string
	SecuritySchemes        map[string]hubcore.SecurityScheme
}

// Publisher builds the AgentCard for the current Config. It holds no
// mutable state of its own.
type Publisher struct {
	cfg Config
}

// New creates a Publisher for cfg.
func New(cfg Config) *Publisher {
	return &Publisher{cfg: cfg}
}

// Build returns the AgentCard described by the publisher's Config.
func (p *Publisher) Build() hubcore.AgentCard {
	cfg := p.cfg
	return hubcore.AgentCard{
		Name:        cfg.Name,
		Description: cfg.Description,
		Version:     cfg.Version,
		Provider:    cfg.Provider,
		URL:         cfg.URL,
		Capabilities: hubcore.AgentCardCapabilities{
			Streaming:              cfg.Streaming,
			PushNotifications:      cfg.PushNotifications,
			StateTransitionHistory: cfg.StateTransitionHistory,
		},
		Skills:              append([]hubcore.Skill(nil), cfg.Skills...),
		DefaultInputModes:   append([]string(nil), cfg.DefaultInputModes...),
		DefaultOutputModes:  append([]string(nil), cfg.DefaultOutputModes...),
		SecuritySchemes:     cfg.SecuritySchemes,
	}
}

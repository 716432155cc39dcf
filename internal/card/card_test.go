package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloi-dev/hub/internal/hubcore"
)

func TestBuildProjectsConfig(t *testing.T) {
	cfg := Config{
		Name:               "cloi-hub",
		Version:            "1.0.0",
		URL:                "http://localhost:8080",
		Streaming:          true,
		Skills:             []hubcore.Skill{{ID: "code-review", Name: "Code Review"}},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
	}
	p := New(cfg)

	got := p.Build()
	require.Len(t, got.Skills, 1)
	assert.Equal(t, "cloi-hub", got.Name)
	assert.True(t, got.Capabilities.Streaming)
	assert.False(t, got.Capabilities.PushNotifications)
	assert.Equal(t, []string{"text/plain"}, got.DefaultInputModes)
}

func TestBuildDoesNotAliasConfigSlices(t *testing.T) {
	cfg := Config{Skills: []hubcore.Skill{{ID: "a"}}}
	p := New(cfg)

	got := p.Build()
	got.Skills[0].ID = "mutated"

	again := p.Build()
	assert.Equal(t, "a", again.Skills[0].ID, "Build must not let callers mutate the publisher's config")
}

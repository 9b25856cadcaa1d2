package server

import (
	"github.com/gate4ai/a2a/schema"
	"github.com/gate4ai/a2a/shared"
)

// Tool describes one capability of an agent. Skills on the published card
// are derived from tools one to one.
type Tool struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	InputModes  []string
	OutputModes []string
}

// Agent is a named agent served by this process. The Handle value is opaque
// to the server; it is passed through to the Runner unchanged.
type Agent struct {
	Name        string
	Description string
	Version     string
	URL         string
	Provider    *schema.AgentProvider
	Tools       []Tool
	// Handle is the runtime object the Runner executes.
	Handle interface{}

	DefaultInputModes  []string
	DefaultOutputModes []string
}

// findAgent resolves the named agent, or the first registered one when name
// is nil.
func (s *A2AServer) findAgent(name *string) (*Agent, *shared.JSONRPCError) {
	if shared.ValueOr(name, "") == "" {
		if len(s.agents) == 0 {
			return nil, schema.NewAgentNotFoundError("")
		}
		return s.agents[0], nil
	}
	agent, ok := s.agentsByName[*name]
	if !ok {
		return nil, schema.NewAgentNotFoundError(*name)
	}
	return agent, nil
}

// buildCard assembles the protocol-visible descriptor for an agent. Cards
// are built fresh per call and never mutated afterward.
func (s *A2AServer) buildCard(agent *Agent) *schema.AgentCard {
	skills := make([]schema.AgentSkill, 0, len(agent.Tools))
	for _, tool := range agent.Tools {
		skill := schema.AgentSkill{
			ID:          tool.ID,
			Name:        tool.Name,
			Tags:        tool.Tags,
			InputModes:  tool.InputModes,
			OutputModes: tool.OutputModes,
		}
		if tool.Description != "" {
			skill.Description = shared.PointerTo(tool.Description)
		}
		skills = append(skills, skill)
	}

	card := &schema.AgentCard{
		Name:    agent.Name,
		URL:     agent.URL,
		Version: agent.Version,
		Capabilities: schema.AgentCapabilities{
			Streaming:         true,
			PushNotifications: s.pushConfigs != nil,
			ExtendedAgentCard: s.extendedCard != nil,
		},
		Provider:           agent.Provider,
		DefaultInputModes:  agent.DefaultInputModes,
		DefaultOutputModes: agent.DefaultOutputModes,
		Skills:             skills,
	}
	if agent.Description != "" {
		card.Description = shared.PointerTo(agent.Description)
	}
	return card
}

// GetAgentCard returns the named (or first) agent's card, signed when a
// signing secret is configured.
func (s *A2AServer) GetAgentCard(name *string) (*schema.AgentCard, error) {
	agent, rpcErr := s.findAgent(name)
	if rpcErr != nil {
		return nil, rpcErr
	}
	card := s.buildCard(agent)
	secret := s.signingKey()
	if len(secret) == 0 {
		return card, nil
	}
	return SignAgentCard(card, secret)
}

// GetAgentCards returns every registered agent's card, each signed if
// applicable.
func (s *A2AServer) GetAgentCards() ([]*schema.AgentCard, error) {
	cards := make([]*schema.AgentCard, 0, len(s.agents))
	secret := s.signingKey()
	for _, agent := range s.agents {
		card := s.buildCard(agent)
		if len(secret) > 0 {
			signed, err := SignAgentCard(card, secret)
			if err != nil {
				return nil, err
			}
			card = signed
		}
		cards = append(cards, card)
	}
	return cards, nil
}

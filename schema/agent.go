package schema

// AgentCapabilities lists the optional capabilities supported by the agent.
type AgentCapabilities struct {
	// Indicates if the agent supports Server-Sent Events streaming via `message/stream`.
	Streaming bool `json:"streaming,omitempty"`
	// Indicates if the agent supports webhook configs via `tasks/pushNotification/create`.
	PushNotifications bool `json:"pushNotifications,omitempty"`
	// Indicates if the agent serves an extended card via `agent/extendedCard`.
	ExtendedAgentCard bool `json:"extendedAgentCard,omitempty"`
}

// AgentProvider contains information about the organization providing the agent.
type AgentProvider struct {
	// Name of the organization.
	Organization string `json:"organization"`
	// URL of the organization's website.
	URL *string `json:"url,omitempty"`
}

// AgentSkill describes a specific skill or capability offered by the agent.
// Skills are derived from the agent's tools.
type AgentSkill struct {
	// Unique identifier for the skill.
	ID string `json:"id"`
	// Human-readable name of the skill.
	Name string `json:"name"`
	// Detailed description of the skill.
	Description *string `json:"description,omitempty"`
	// Keywords or tags associated with the skill.
	Tags []string `json:"tags,omitempty"`
	// Input content types supported specifically by this skill (overrides agent defaults).
	InputModes []string `json:"inputModes,omitempty"`
	// Output content types produced specifically by this skill (overrides agent defaults).
	OutputModes []string `json:"outputModes,omitempty"`
}

// AgentCard provides metadata about an agent, enabling discovery and
// capability understanding. Served at `/.well-known/agent.json`.
type AgentCard struct {
	// Human-readable name of the agent. (Required)
	Name string `json:"name"`
	// A brief description of the agent's purpose. (Optional)
	Description *string `json:"description,omitempty"`
	// The base URL endpoint for the agent's A2A JSON-RPC service. (Required)
	URL string `json:"url"`
	// Information about the agent's provider. (Optional)
	Provider *AgentProvider `json:"provider,omitempty"`
	// Version of the agent or its API. (Required)
	Version string `json:"version"`
	// Capabilities supported by the agent. (Required)
	Capabilities AgentCapabilities `json:"capabilities"`
	// Security scheme metadata keyed by scheme name. (Optional)
	SecuritySchemes *map[string]interface{} `json:"securitySchemes,omitempty"`
	// Default input content types supported by the agent. (Optional)
	DefaultInputModes []string `json:"defaultInputModes,omitempty"`
	// Default output content types produced by the agent. (Optional)
	DefaultOutputModes []string `json:"defaultOutputModes,omitempty"`
	// List of specific skills the agent offers. (Required, can be empty)
	Skills []AgentSkill `json:"skills"`
	// HMAC signature over the canonical serialization of the card, shaped
	// like "hmac-sha256:<base64>". Omitted when no signing secret is
	// configured. The signature field itself is excluded from the MAC input.
	Signature *string `json:"signature,omitempty"`
}

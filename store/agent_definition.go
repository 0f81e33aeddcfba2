package store

// AgentRole classifies what an agent does in the teaching pipeline.
type AgentRole string

const (
	// AgentRoleRouter marks the coordinator agent that picks specialists.
	AgentRoleRouter AgentRole = "router"
	// AgentRoleSpecialist marks subject-teaching agents. Only these are validated.
	AgentRoleSpecialist AgentRole = "specialist"
	// AgentRoleAssessor marks agents that evaluate learner answers.
	AgentRoleAssessor AgentRole = "assessor"
	// AgentRoleSupport marks emotional-support and motivation agents.
	AgentRoleSupport AgentRole = "support"
	// AgentRoleValidator marks the independent verification agent.
	AgentRoleValidator AgentRole = "validator"
)

// AgentDefinition is a named configuration of the generative-model
// collaborator. Definitions are immutable once loaded for a cache generation;
// the registry replaces the whole set on refresh.
type AgentDefinition struct {
	Name            string    `json:"name"`
	Role            AgentRole `json:"role"`
	PromptTemplate  string    `json:"prompt_template"`
	ReasoningEffort string    `json:"reasoning_effort"` // low, medium, high
	ToolAccess      bool      `json:"tool_access"`
	WebSearch       bool      `json:"web_search"`
	Capabilities    []string  `json:"capabilities"`
	UpdatedTs       int64     `json:"updated_ts"`
}

// FindAgentDefinition specifies conditions for finding agent definitions.
type FindAgentDefinition struct {
	Name *string
	Role *AgentRole
}

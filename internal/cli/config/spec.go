package config

// CLIConfig is the configuration for lockscope-cli.
type CLIConfig struct {
	// DefaultOutput is the output format used when --output is not
	// given. One of table, json, yaml.
	DefaultOutput string `yaml:"default_output"`

	// Agents holds saved agent connections by name.
	Agents map[string]AgentConfig `yaml:"agents"`

	// CurrentAgent names the agent used when --agent is not given.
	CurrentAgent string `yaml:"current_agent"`
}

// AgentConfig stores a saved agent connection.
type AgentConfig struct {
	// Addr is the HTTP admin address, e.g. 127.0.0.1:5090.
	Addr string `yaml:"addr"`

	// Socket is the local management socket path, used by the local
	// command group.
	Socket string `yaml:"socket,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultOutput: "table",
		Agents: map[string]AgentConfig{
			"local": {
				Addr:   "127.0.0.1:5090",
				Socket: "/var/run/lockscope-agent/lockscope-agent.sock",
			},
		},
		CurrentAgent: "local",
	}
}

// Resolve returns the agent connection for the given name, falling
// back to CurrentAgent when name is empty.
func (c *CLIConfig) Resolve(name string) (AgentConfig, bool) {
	if name == "" {
		name = c.CurrentAgent
	}
	agent, ok := c.Agents[name]
	return agent, ok
}

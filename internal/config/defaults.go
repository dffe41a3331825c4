package config

// DefaultBaseURL is the production CIQ API endpoint.
const DefaultBaseURL = "https://api-ciq.marketintelligence.spglobal.com"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 4250,
			Host: "localhost",
		},
		CIQ: CIQConfig{
			BaseURL: DefaultBaseURL,
			EnvFile: ".env",
		},
		Deck: DeckConfig{
			TemplatePath: "templates/default.pptx",
			OutputDir:    "output",
			DefaultYears: 5,
			DefaultMetrics: []string{
				"IQ_TOTAL_REV",
				"IQ_NI",
				"IQ_EBITDA",
			},
		},
		Session: SessionConfig{
			TTLHours:   24,
			MaxEntries: 1000,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Outputs: []string{"console", "file"},
		},
	}
}

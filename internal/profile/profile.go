package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol).
	// All providers (openai, deepseek, siliconflow, ollama) use the same config.
	LLMProvider string // Provider identifier: openai, deepseek, siliconflow, openrouter, ollama
	LLMAPIKey   string
	LLMBaseURL  string // Optional, has a default per provider
	LLMModel    string
	LLMTimeout  int // LLM request timeout in seconds (default: 120)

	// LLMRequestsPerSecond caps outbound model calls. 0 disables limiting.
	LLMRequestsPerSecond float64

	// RegistryTTLSeconds is how long the agent registry snapshot stays
	// fresh (default: 300).
	RegistryTTLSeconds int

	// Validator configuration.
	ValidatorTimeout int // Hard per-call timeout in seconds (default: 10)

	// Profile enricher tuning. The cluster policy is intentionally configurable.
	EnricherWindow    int // Evidence window size (default: 10)
	EnricherThreshold int // Cluster count that triggers a profile update (default: 3)

	Mode        string // dev, demo, prod
	Addr        string
	Port        int
	Data        string
	Driver      string // postgres, sqlite
	DSN         string
	InstanceURL string
	Version     string
}

// Provider default base URLs and models, used when MENTORA_LLM_BASE_URL is not set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// FromEnv fills the profile from MENTORA_* environment variables.
func (p *Profile) FromEnv() {
	if v := os.Getenv("MENTORA_LLM_PROVIDER"); v != "" {
		p.LLMProvider = strings.ToLower(v)
	}
	if v := os.Getenv("MENTORA_LLM_API_KEY"); v != "" {
		p.LLMAPIKey = v
	}
	if v := os.Getenv("MENTORA_LLM_BASE_URL"); v != "" {
		p.LLMBaseURL = v
	}
	if v := os.Getenv("MENTORA_LLM_MODEL"); v != "" {
		p.LLMModel = v
	}
	p.LLMTimeout = envInt("MENTORA_LLM_TIMEOUT", p.LLMTimeout)
	if v := os.Getenv("MENTORA_LLM_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			p.LLMRequestsPerSecond = f
		}
	}
	p.RegistryTTLSeconds = envInt("MENTORA_REGISTRY_TTL", p.RegistryTTLSeconds)
	p.ValidatorTimeout = envInt("MENTORA_VALIDATOR_TIMEOUT", p.ValidatorTimeout)
	p.EnricherWindow = envInt("MENTORA_ENRICHER_WINDOW", p.EnricherWindow)
	p.EnricherThreshold = envInt("MENTORA_ENRICHER_THRESHOLD", p.EnricherThreshold)

	// Fill provider defaults for anything still unset.
	if p.LLMProvider != "" {
		if def, ok := llmProviderDefaults[p.LLMProvider]; ok {
			if p.LLMBaseURL == "" {
				p.LLMBaseURL = def.BaseURL
			}
			if p.LLMModel == "" {
				p.LLMModel = def.Model
			}
		}
	}
	if p.LLMTimeout <= 0 {
		p.LLMTimeout = 120
	}
	if p.ValidatorTimeout <= 0 {
		p.ValidatorTimeout = 10
	}
	if p.EnricherWindow <= 0 {
		p.EnricherWindow = 10
	}
	if p.EnricherThreshold <= 0 {
		p.EnricherThreshold = 3
	}
	if p.RegistryTTLSeconds <= 0 {
		p.RegistryTTLSeconds = 300
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// Validate checks the profile and normalizes the data directory.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/mentora"
	}

	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres driver")
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrap(err, "failed to check data directory")
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("mentora_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.LLMProvider != "" && p.LLMProvider != "ollama" && p.LLMAPIKey == "" {
		slog.Warn("LLM provider configured without an API key, model calls will fail",
			"provider", p.LLMProvider)
	}

	return nil
}

func checkDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		dataDir = "."
	}

	absDir, err := filepath.Abs(dataDir)
	if err != nil {
		return "", errors.Wrapf(err, "unable to resolve absolute path of %q", dataDir)
	}

	if _, err := os.Stat(absDir); os.IsNotExist(err) {
		if err := os.MkdirAll(absDir, 0o750); err != nil {
			return "", errors.Wrapf(err, "unable to create data directory %q", absDir)
		}
	}

	return absDir, nil
}

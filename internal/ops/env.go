package ops

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/yanun0323/errors"
)

// Trading modes. Live requires venue credentials; testnet never touches
// the network.
const (
	ModeTestnet = "testnet"
	ModeLive    = "live"
)

// Env carries process-level settings and credentials. Trading parameters
// live in the JSON config file, not the environment.
type Env struct {
	Mode       string `env:"TRADER_MODE" envDefault:"testnet"`
	ConfigPath string `env:"TRADER_CONFIG" envDefault:"config.json"`

	// Venue credentials, required in live mode only.
	APIKey    string `env:"TRADER_API_KEY"`
	APISecret string `env:"TRADER_API_SECRET"`

	// JournalDSN enables the postgres trade journal when set.
	JournalDSN string `env:"TRADER_JOURNAL_DSN"`

	// PyroscopeURL enables continuous profiling when set.
	PyroscopeURL string `env:"TRADER_PYROSCOPE_URL"`
}

// LoadEnv reads the environment, folding in a .env file when present.
// Missing live-mode credentials fail fast here, not at first submission.
func LoadEnv() (Env, error) {
	_ = godotenv.Load()

	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, errors.Wrap(err, "parse environment")
	}
	// A set-but-empty variable still gets the default.
	if e.Mode == "" {
		e.Mode = ModeTestnet
	}
	if e.ConfigPath == "" {
		e.ConfigPath = "config.json"
	}

	switch e.Mode {
	case ModeTestnet:
	case ModeLive:
		if e.APIKey == "" || e.APISecret == "" {
			return Env{}, errors.New("live mode requires TRADER_API_KEY and TRADER_API_SECRET")
		}
	default:
		return Env{}, errors.Errorf("unknown trading mode %q", e.Mode)
	}
	return e, nil
}

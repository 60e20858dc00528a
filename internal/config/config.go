// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the full server configuration, populated from environment
// variables with sensible development defaults.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	VQA struct {
		// MaxIterations caps runner iterations unless a request overrides it.
		MaxIterations int `env:"VQA_MAX_ITERATIONS" envDefault:"200"`
		// MaxEvaluations caps total cost evaluations per run; 0 = unbounded.
		MaxEvaluations int64 `env:"VQA_MAX_EVALUATIONS" envDefault:"0"`
		// Tolerance is the relative cost-improvement convergence threshold.
		Tolerance float64 `env:"VQA_TOLERANCE" envDefault:"1e-6"`
		// Window is the number of stale iterations before convergence.
		Window int `env:"VQA_WINDOW" envDefault:"3"`
		// GradientConcurrency bounds parallel shifted evaluations.
		GradientConcurrency int `env:"VQA_GRADIENT_CONCURRENCY" envDefault:"4"`
		// Shots is the default sample count for sampling estimators.
		Shots int `env:"VQA_SHOTS" envDefault:"1024"`
		// EvalTimeout bounds each backend evaluation; 0 disables it.
		EvalTimeout time.Duration `env:"VQA_EVAL_TIMEOUT" envDefault:"30s"`
		// SimulatorSeed seeds the reference backend's sampling stream.
		SimulatorSeed int64 `env:"VQA_SIMULATOR_SEED" envDefault:"0"`
		// MaxQubits rejects run requests above this register width.
		MaxQubits int `env:"VQA_MAX_QUBITS" envDefault:"20"`
	}
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if cfg.VQA.MaxIterations < 1 {
		return nil, fmt.Errorf("VQA_MAX_ITERATIONS must be positive, got %d", cfg.VQA.MaxIterations)
	}
	if cfg.VQA.Window < 0 {
		return nil, fmt.Errorf("VQA_WINDOW must be non-negative, got %d", cfg.VQA.Window)
	}
	if cfg.VQA.Shots < 1 {
		return nil, fmt.Errorf("VQA_SHOTS must be positive, got %d", cfg.VQA.Shots)
	}
	return cfg, nil
}

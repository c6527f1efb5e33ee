package simulate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var defaultVariants = []string{
	"rest", "grpc", "rpc", "ws", "mqtt", "amqp", "graphql", "sql", "file",
}

// Profile controls the delay interval, failure rate, and protocol
// variant set of a Simulator.
type Profile struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	FailureRate float64
	Variants    []string
}

// DefaultProfile mirrors the behaviour of the real backends being
// simulated: 1-3s latency, no faults.
func DefaultProfile() Profile {
	return Profile{
		MinDelay:    time.Second,
		MaxDelay:    3 * time.Second,
		FailureRate: 0,
		Variants:    defaultVariants,
	}
}

type profileYAML struct {
	MinDelay    string   `yaml:"min_delay"`
	MaxDelay    string   `yaml:"max_delay"`
	FailureRate *float64 `yaml:"failure_rate"`
	Variants    []string `yaml:"variants"`
}

// LoadProfile reads a YAML profile from path. Omitted fields keep their
// defaults.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read sim profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile document.
func ParseProfile(data []byte) (Profile, error) {
	var raw profileYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Profile{}, fmt.Errorf("parse sim profile: %w", err)
	}

	p := DefaultProfile()
	if raw.MinDelay != "" {
		d, err := time.ParseDuration(raw.MinDelay)
		if err != nil {
			return Profile{}, fmt.Errorf("sim profile min_delay: %w", err)
		}
		p.MinDelay = d
	}
	if raw.MaxDelay != "" {
		d, err := time.ParseDuration(raw.MaxDelay)
		if err != nil {
			return Profile{}, fmt.Errorf("sim profile max_delay: %w", err)
		}
		p.MaxDelay = d
	}
	if raw.FailureRate != nil {
		p.FailureRate = *raw.FailureRate
	}
	if len(raw.Variants) > 0 {
		p.Variants = raw.Variants
	}

	if err := p.validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (p Profile) validate() error {
	if p.MinDelay < 0 {
		return fmt.Errorf("sim profile: min_delay must not be negative, got %s", p.MinDelay)
	}
	if p.MaxDelay < p.MinDelay {
		return fmt.Errorf("sim profile: max_delay (%s) must be >= min_delay (%s)", p.MaxDelay, p.MinDelay)
	}
	if p.FailureRate < 0 || p.FailureRate > 1 {
		return fmt.Errorf("sim profile: failure_rate must be within [0,1], got %g", p.FailureRate)
	}
	if len(p.Variants) == 0 {
		return fmt.Errorf("sim profile: at least one variant is required")
	}
	return nil
}

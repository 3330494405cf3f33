package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// demoConfig is the on-disk tuning knobs for the demo command, kept
// entirely outside the core package (spec.md §1 places configuration
// parsing out of the core's scope; only the demo illustrates a file
// format around it).
type demoConfig struct {
	Concurrency int           `yaml:"concurrency"`
	IntervalCap int           `yaml:"interval_cap"`
	Interval    time.Duration `yaml:"interval"`
	Strict      bool          `yaml:"strict"`
	JobCount    int           `yaml:"job_count"`
}

func defaultDemoConfig() demoConfig {
	return demoConfig{
		Concurrency: 4,
		IntervalCap: 5,
		Interval:    time.Second,
		Strict:      false,
		JobCount:    20,
	}
}

func loadDemoConfig(path string) (demoConfig, error) {
	cfg := defaultDemoConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return demoConfig{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return demoConfig{}, err
	}
	return cfg, nil
}

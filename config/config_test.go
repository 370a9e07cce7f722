package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - http",
			input: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
			expectError: false,
		},
		{
			name:  "single service - supervisor",
			input: "supervisor",
			expected: map[ServiceMode]bool{
				ServiceModeSupervisor: true,
			},
			expectError: false,
		},
		{
			name:  "all services",
			input: "http,supervisor",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:       true,
				ServiceModeSupervisor: true,
			},
			expectError: false,
		},
		{
			name:  "services with spaces",
			input: " http , supervisor ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:       true,
				ServiceModeSupervisor: true,
			},
			expectError: false,
		},
		{
			name:  "duplicate services",
			input: "http,http,supervisor",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:       true,
				ServiceModeSupervisor: true,
			},
			expectError: false,
		},
		{
			name:        "empty string",
			input:       "",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "http,invalid-service",
			expected:    nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}

			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestConfig_GetEnabledServices(t *testing.T) {
	tests := []struct {
		name        string
		services    string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "default configuration",
			services: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
			expectError: false,
		},
		{
			name:     "multiple services",
			services: "http,supervisor",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:       true,
				ServiceModeSupervisor: true,
			},
			expectError: false,
		},
		{
			name:        "invalid configuration",
			services:    "invalid-service",
			expected:    nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}
			result, err := cfg.GetEnabledServices()

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}

			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestAppConfig_ParseImporterEnv(t *testing.T) {
	t.Setenv("IMPORTER_INLINE_THRESHOLD", "2500")
	t.Setenv("IMPORTER_CHUNK_SIZE", "20000")
	t.Setenv("IMPORTER_PER_JOB_CONCURRENCY", "8")
	t.Setenv("IMPORTER_GLOBAL_CONCURRENCY", "32")
	t.Setenv("IMPORTER_CHUNK_TIMEOUT", "3m")
	t.Setenv("IMPORTER_RETRY_ATTEMPTS", "5")
	t.Setenv("IMPORTER_SUB_BATCH_SIZE", "250")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Importer.InlineThreshold != 2500 {
		t.Errorf("InlineThreshold = %d, want 2500", cfg.Importer.InlineThreshold)
	}
	if cfg.Importer.ChunkSize != 20000 {
		t.Errorf("ChunkSize = %d, want 20000", cfg.Importer.ChunkSize)
	}
	if cfg.Importer.PerJobConcurrency != 8 {
		t.Errorf("PerJobConcurrency = %d, want 8", cfg.Importer.PerJobConcurrency)
	}
	if cfg.Importer.GlobalConcurrency != 32 {
		t.Errorf("GlobalConcurrency = %d, want 32", cfg.Importer.GlobalConcurrency)
	}
	if cfg.Importer.ChunkTimeout != 3*time.Minute {
		t.Errorf("ChunkTimeout = %v, want 3m", cfg.Importer.ChunkTimeout)
	}
	if cfg.Importer.RetryAttempts != 5 {
		t.Errorf("RetryAttempts = %d, want 5", cfg.Importer.RetryAttempts)
	}
	if cfg.Importer.SubBatchSize != 250 {
		t.Errorf("SubBatchSize = %d, want 250", cfg.Importer.SubBatchSize)
	}
}

func TestImporterConfig_SanitizeGuardrails(t *testing.T) {
	cfg := ImporterConfig{
		InlineThreshold:   -1,
		ChunkSize:         0,
		PerJobConcurrency: 0,
		GlobalConcurrency: 0,
		ChunkTimeout:      time.Second,
		RetryAttempts:     -3,
		SubBatchSize:      100000,
	}
	cfg.Sanitize()

	if cfg.InlineThreshold != 10_000 {
		t.Errorf("InlineThreshold = %d, want default 10000", cfg.InlineThreshold)
	}
	if cfg.ChunkSize != 50_000 {
		t.Errorf("ChunkSize = %d, want default 50000", cfg.ChunkSize)
	}
	if cfg.PerJobConcurrency != 1 {
		t.Errorf("PerJobConcurrency = %d, want 1", cfg.PerJobConcurrency)
	}
	if cfg.GlobalConcurrency < cfg.PerJobConcurrency {
		t.Errorf("GlobalConcurrency = %d, must cover PerJobConcurrency %d",
			cfg.GlobalConcurrency, cfg.PerJobConcurrency)
	}
	if cfg.ChunkTimeout != 10*time.Second {
		t.Errorf("ChunkTimeout = %v, want floor 10s", cfg.ChunkTimeout)
	}
	if cfg.RetryAttempts != 1 {
		t.Errorf("RetryAttempts = %d, want 1", cfg.RetryAttempts)
	}
	if cfg.SubBatchSize != 5000 {
		t.Errorf("SubBatchSize = %d, want cap 5000", cfg.SubBatchSize)
	}
}

func TestSupervisorConfig_SanitizeGuardrails(t *testing.T) {
	cfg := SupervisorConfig{
		Interval:        time.Second,
		StuckThreshold:  time.Second,
		SpeedStaleAfter: time.Second,
		ClearedMaxAge:   time.Minute,
		BatchSize:       -5,
	}
	cfg.Sanitize()

	if cfg.Interval != 10*time.Second {
		t.Errorf("Interval = %v, want floor 10s", cfg.Interval)
	}
	if cfg.StuckThreshold != time.Minute {
		t.Errorf("StuckThreshold = %v, want floor 1m", cfg.StuckThreshold)
	}
	if cfg.SpeedStaleAfter != 30*time.Second {
		t.Errorf("SpeedStaleAfter = %v, want floor 30s", cfg.SpeedStaleAfter)
	}
	if cfg.ClearedMaxAge != time.Hour {
		t.Errorf("ClearedMaxAge = %v, want floor 1h", cfg.ClearedMaxAge)
	}
	if cfg.BatchSize != 1 {
		t.Errorf("BatchSize = %d, want 1", cfg.BatchSize)
	}
}

package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errorString string
	}{
		{
			name: "valid config",
			config: Config{
				Port:            "8081",
				SQLiteDBPath:    "./test.db",
				LogLevel:        "info",
				ReadTimeout:     10 * time.Second,
				WriteTimeout:    30 * time.Second,
				ShutdownTimeout: 15 * time.Second,
			},
			wantErr: false,
		},
		{
			name: "invalid port - non-numeric",
			config: Config{
				Port:            "abc",
				SQLiteDBPath:    "./test.db",
				LogLevel:        "info",
				ReadTimeout:     10 * time.Second,
				WriteTimeout:    30 * time.Second,
				ShutdownTimeout: 15 * time.Second,
			},
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name: "invalid port - out of range low",
			config: Config{
				Port:            "0",
				SQLiteDBPath:    "./test.db",
				LogLevel:        "info",
				ReadTimeout:     10 * time.Second,
				WriteTimeout:    30 * time.Second,
				ShutdownTimeout: 15 * time.Second,
			},
			wantErr:     true,
			errorString: "invalid port 0: must be between 1 and 65535",
		},
		{
			name: "invalid port - out of range high",
			config: Config{
				Port:            "70000",
				SQLiteDBPath:    "./test.db",
				LogLevel:        "info",
				ReadTimeout:     10 * time.Second,
				WriteTimeout:    30 * time.Second,
				ShutdownTimeout: 15 * time.Second,
			},
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name: "missing database path",
			config: Config{
				Port:            "8080",
				SQLiteDBPath:    "",
				LogLevel:        "info",
				ReadTimeout:     10 * time.Second,
				WriteTimeout:    30 * time.Second,
				ShutdownTimeout: 15 * time.Second,
			},
			wantErr:     true,
			errorString: "SQLite database path cannot be empty",
		},
		{
			name: "invalid log level",
			config: Config{
				Port:            "8080",
				SQLiteDBPath:    "./test.db",
				LogLevel:        "verbose",
				ReadTimeout:     10 * time.Second,
				WriteTimeout:    30 * time.Second,
				ShutdownTimeout: 15 * time.Second,
			},
			wantErr:     true,
			errorString: "invalid log level 'verbose'",
		},
		{
			name: "read timeout too short",
			config: Config{
				Port:            "8080",
				SQLiteDBPath:    "./test.db",
				LogLevel:        "info",
				ReadTimeout:     500 * time.Millisecond,
				WriteTimeout:    30 * time.Second,
				ShutdownTimeout: 15 * time.Second,
			},
			wantErr:     true,
			errorString: "invalid read timeout 500ms: must be at least 1 second",
		},
		{
			name: "shutdown timeout too long",
			config: Config{
				Port:            "8080",
				SQLiteDBPath:    "./test.db",
				LogLevel:        "info",
				ReadTimeout:     10 * time.Second,
				WriteTimeout:    30 * time.Second,
				ShutdownTimeout: 2 * time.Hour,
			},
			wantErr:     true,
			errorString: "invalid shutdown timeout 2h0m0s: must be at most 1 hour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else {
				if err != nil {
					t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	keys := []string{"PORT", "SQLITE_DB_PATH", "LOG_LEVEL", "READ_TIMEOUT", "WRITE_TIMEOUT", "SHUTDOWN_TIMEOUT"}

	originalVars := make(map[string]string, len(keys))
	for _, key := range keys {
		originalVars[key] = os.Getenv(key)
		os.Unsetenv(key)
	}
	defer func() {
		for key, value := range originalVars {
			if value != "" {
				os.Setenv(key, value)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	t.Run("default values", func(t *testing.T) {
		cfg := Load()

		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.SQLiteDBPath != "./data/balancetracker.db" {
			t.Errorf("Load() SQLiteDBPath = %v, want ./data/balancetracker.db", cfg.SQLiteDBPath)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("Load() LogLevel = %v, want info", cfg.LogLevel)
		}
		if cfg.ReadTimeout != 10*time.Second {
			t.Errorf("Load() ReadTimeout = %v, want 10s", cfg.ReadTimeout)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		os.Setenv("PORT", "9090")
		os.Setenv("SQLITE_DB_PATH", "/tmp/test.db")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("WRITE_TIMEOUT", "45s")

		cfg := Load()

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.SQLiteDBPath != "/tmp/test.db" {
			t.Errorf("Load() SQLiteDBPath = %v, want /tmp/test.db", cfg.SQLiteDBPath)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("Load() LogLevel = %v, want debug", cfg.LogLevel)
		}
		if cfg.WriteTimeout != 45*time.Second {
			t.Errorf("Load() WriteTimeout = %v, want 45s", cfg.WriteTimeout)
		}
	})

	t.Run("invalid environment variables use defaults", func(t *testing.T) {
		os.Setenv("READ_TIMEOUT", "invalid")

		cfg := Load()

		if cfg.ReadTimeout != 10*time.Second {
			t.Errorf("Load() ReadTimeout = %v, want 10s (default for invalid input)", cfg.ReadTimeout)
		}
	})
}

package redis

import (
	"testing"
)

func TestNewMemoryServiceFromClient(t *testing.T) {
	t.Parallel()

	m := NewMemoryServiceFromClient(nil, "test:")
	if m == nil {
		t.Fatal("NewMemoryServiceFromClient() returned nil")
	}
	if m.keyPrefix != "test:" {
		t.Errorf("keyPrefix = %s, want test:", m.keyPrefix)
	}
}

func TestMemoryService_entryKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		scope  string
		want   string
	}{
		{
			name:   "explicit scope",
			prefix: "cogito:",
			key:    "user/42",
			scope:  "identity",
			want:   "cogito:memory:identity:user/42",
		},
		{
			name:   "empty scope falls back to local",
			prefix: "cogito:",
			key:    "note",
			scope:  "",
			want:   "cogito:memory:local:note",
		},
		{
			name:   "empty prefix",
			prefix: "",
			key:    "note",
			scope:  "local",
			want:   "memory:local:note",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewMemoryServiceFromClient(nil, tt.prefix)
			if got := m.entryKey(tt.key, tt.scope); got != tt.want {
				t.Errorf("entryKey() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Address != "localhost:6379" {
		t.Errorf("Address = %s", cfg.Address)
	}
	if cfg.KeyPrefix != "cogito:" {
		t.Errorf("KeyPrefix = %s", cfg.KeyPrefix)
	}
	if cfg.PoolSize != 10 {
		t.Errorf("PoolSize = %d", cfg.PoolSize)
	}
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range []ConfigOption{
		WithAddress("redis.internal:6380"),
		WithPassword("secret"),
		WithDB(2),
		WithKeyPrefix("agent:"),
	} {
		opt(&cfg)
	}

	if cfg.Address != "redis.internal:6380" {
		t.Errorf("Address = %s", cfg.Address)
	}
	if cfg.Password != "secret" {
		t.Errorf("Password = %s", cfg.Password)
	}
	if cfg.DB != 2 {
		t.Errorf("DB = %d", cfg.DB)
	}
	if cfg.KeyPrefix != "agent:" {
		t.Errorf("KeyPrefix = %s", cfg.KeyPrefix)
	}
}

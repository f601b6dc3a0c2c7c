package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mkrupp/wardrobe/internal/infra/config"
)

type testConfig struct {
	EnvConfig

	StringValue   string        `env:"STRING_VALUE" default:"default"`
	IntValue      int           `env:"INT_VALUE" default:"42"`
	UintValue     uint32        `env:"UINT_VALUE" default:"7"`
	BoolValue     bool          `env:"BOOL_VALUE" default:"true"`
	DurationValue time.Duration `env:"DURATION_VALUE" default:"90s"`
	ListValue     []string      `env:"LIST_VALUE" default:"tops,bottoms"`
	NoEnvTag      string
	Nested        testNestedConfig `envPrefix:"NESTED_"`
	EmbeddedConfig
}

type testNestedConfig struct {
	NestedString string `env:"STRING" default:"nested-default"`
}

type EmbeddedConfig struct {
	EmbeddedString string `env:"EMBEDDED_STRING" default:"embedded-default"`
}

func defaultTestConfig() testConfig {
	return testConfig{
		StringValue:    "default",
		IntValue:       42,
		UintValue:      7,
		BoolValue:      true,
		DurationValue:  90 * time.Second,
		ListValue:      []string{"tops", "bottoms"},
		Nested:         testNestedConfig{NestedString: "nested-default"},
		EmbeddedConfig: EmbeddedConfig{EmbeddedString: "embedded-default"},
	}
}

//nolint:paralleltest
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		envVars map[string]string
		mutate  func(*testConfig)
		wantErr bool
	}{
		{
			name:    "uses default values when env vars not set",
			envVars: map[string]string{},
		},
		{
			name: "reads environment variables",
			envVars: map[string]string{
				"STRING_VALUE":    "env-value",
				"INT_VALUE":       "123",
				"UINT_VALUE":      "9",
				"BOOL_VALUE":      "false",
				"DURATION_VALUE":  "15m",
				"LIST_VALUE":      " a, b ,,c ",
				"NESTED_STRING":   "env-nested",
				"EMBEDDED_STRING": "env-embedded",
			},
			mutate: func(c *testConfig) {
				c.StringValue = "env-value"
				c.IntValue = 123
				c.UintValue = 9
				c.BoolValue = false
				c.DurationValue = 15 * time.Minute
				c.ListValue = []string{"a", "b", "c"}
				c.Nested.NestedString = "env-nested"
				c.EmbeddedString = "env-embedded"
			},
		},
		{
			name:   "handles prefix correctly",
			prefix: "APP",
			envVars: map[string]string{
				"APP_STRING_VALUE": "prefixed-value",
			},
			mutate: func(c *testConfig) { c.StringValue = "prefixed-value" },
		},
		{
			name:   "falls back to unprefixed variable",
			prefix: "APP_SERVICE",
			envVars: map[string]string{
				"INT_VALUE": "5",
			},
			mutate: func(c *testConfig) { c.IntValue = 5 },
		},
		{
			name:   "prefers more specific prefix",
			prefix: "APP_SERVICE",
			envVars: map[string]string{
				"APP_STRING_VALUE":         "less-specific",
				"APP_SERVICE_STRING_VALUE": "more-specific",
			},
			mutate: func(c *testConfig) { c.StringValue = "more-specific" },
		},
		{
			name:    "handles empty string values",
			envVars: map[string]string{"STRING_VALUE": ""},
			mutate:  func(c *testConfig) { c.StringValue = "" },
		},
		{
			name:    "handles empty list values",
			envVars: map[string]string{"LIST_VALUE": ""},
			mutate:  func(c *testConfig) { c.ListValue = []string{} },
		},
		{
			name:    "fails on invalid int value",
			envVars: map[string]string{"INT_VALUE": "not-a-number"},
			wantErr: true,
		},
		{
			name:    "fails on negative uint value",
			envVars: map[string]string{"UINT_VALUE": "-1"},
			wantErr: true,
		},
		{
			name:    "fails on invalid bool value",
			envVars: map[string]string{"BOOL_VALUE": "not-a-bool"},
			wantErr: true,
		},
		{
			name:    "fails on invalid duration value",
			envVars: map[string]string{"DURATION_VALUE": "soon"},
			wantErr: true,
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := &testConfig{}
			err := Parse(ctx, cfg, tt.prefix)

			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)

			want := defaultTestConfig()
			if tt.mutate != nil {
				tt.mutate(&want)
			}

			assert.Equal(t, want.StringValue, cfg.StringValue)
			assert.Equal(t, want.IntValue, cfg.IntValue)
			assert.Equal(t, want.UintValue, cfg.UintValue)
			assert.Equal(t, want.BoolValue, cfg.BoolValue)
			assert.Equal(t, want.DurationValue, cfg.DurationValue)
			assert.Equal(t, want.ListValue, cfg.ListValue)
			assert.Equal(t, want.NoEnvTag, cfg.NoEnvTag)
			assert.Equal(t, want.Nested, cfg.Nested)
			assert.Equal(t, want.EmbeddedString, cfg.EmbeddedString)
			assert.Equal(t, tt.prefix, cfg.Namespace())
		})
	}
}

func TestParseMissingRequired(t *testing.T) {
	t.Parallel()

	cfg := &struct {
		EnvConfig

		Required string `env:"WARDROBE_TEST_REQUIRED_NEVER_SET"`
	}{}

	err := Parse(context.Background(), cfg, "")
	require.ErrorIs(t, err, ErrVarNotSet)
}

func TestParseInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  any
	}{
		{name: "non-pointer config", cfg: testConfig{}},
		{name: "non-struct pointer", cfg: new(string)},
		{name: "missing EnvConfig embedding", cfg: &struct {
			Value string `env:"VALUE"`
		}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Parse(context.Background(), tt.cfg, "")
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

//nolint:paralleltest
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(filename, []byte("WARDROBE_DOTENV_TEST_A=from-file\nWARDROBE_DOTENV_TEST_B=from-file\n"), 0o600))

	t.Setenv("WARDROBE_DOTENV_TEST_B", "from-env")
	t.Cleanup(func() { os.Unsetenv("WARDROBE_DOTENV_TEST_A") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), "", filename))

	assert.Equal(t, "from-file", os.Getenv("WARDROBE_DOTENV_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("WARDROBE_DOTENV_TEST_B"))
}

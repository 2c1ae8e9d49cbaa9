package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate values",
			args:    []string{"-a", ":50051", "-x", "1", "-d", "dsn"},
			allowed: []string{"-a", "-d"},
			want:    []string{"-a", ":50051", "-d", "dsn"},
		},
		{
			name:    "equals form",
			args:    []string{"-store=postgres", "-other=1"},
			allowed: []string{"-store"},
			want:    []string{"-store=postgres"},
		},
		{
			name:    "bool style flag without value",
			args:    []string{"-v", "-a", "addr"},
			allowed: []string{"-v"},
			want:    []string{"-v"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-a", "b"},
			allowed: nil,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFile(t *testing.T) {
	assert.Equal(t, "", ConfigFile(nil))
	assert.Equal(t, "a.json", ConfigFile([]string{"-a", ":1", "-c", "a.json"}))
	assert.Equal(t, "b.json", ConfigFile([]string{"-config=b.json"}))
}

func TestEnvFile(t *testing.T) {
	assert.Equal(t, ".env", EnvFile([]string{"-c", "x.json"}, ".env"))
	assert.Equal(t, "prod.env", EnvFile([]string{"-env", "prod.env"}, ".env"))
}

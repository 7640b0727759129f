package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "separate value",
			args:         []string{"-d", "/tmp/vaults", "-x", "1"},
			allowedFlags: []string{"-d"},
			want:         []string{"-d", "/tmp/vaults"},
		},
		{
			name:         "equals form",
			args:         []string{"-t=20", "-x=1"},
			allowedFlags: []string{"-t"},
			want:         []string{"-t=20"},
		},
		{
			name:         "unknown flags and positionals ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "trailing flag without value",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next flag is not consumed as value",
			args:         []string{"-c", "-m", "3"},
			allowedFlags: []string{"-c", "-m"},
			want:         []string{"-c", "-m", "3"},
		},
		{
			name:         "repeated flag keeps order",
			args:         []string{"-c", "one.json", "-c", "two.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:         "empty args",
			args:         nil,
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigFile(t *testing.T) {
	assert.Equal(t, "/path/short.json", ConfigFile([]string{"-c", "/path/short.json"}))
	assert.Equal(t, "/path/long.json", ConfigFile([]string{"-d", "/tmp", "-config", "/path/long.json"}))
	assert.Equal(t, "/path/eq.json", ConfigFile([]string{"-config=/path/eq.json"}))
	assert.Empty(t, ConfigFile([]string{"-x", "1"}))
	assert.Equal(t, "/path/2.json", ConfigFile([]string{"-c", "/path/1.json", "-config", "/path/2.json"}))
}

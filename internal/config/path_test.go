package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("PLANSYNC_TEST_DIR", "/var/lib/plansync")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"tilde", "~", home},
		{"tilde prefix", "~/data/db.sqlite", filepath.Join(home, "data/db.sqlite")},
		{"env var", "$PLANSYNC_TEST_DIR/db.sqlite", "/var/lib/plansync/db.sqlite"},
		{"absolute", "/etc/plansync.yaml", "/etc/plansync.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

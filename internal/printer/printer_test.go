package printer

import (
	"bytes"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	var stdout, stderr bytes.Buffer
	SetOutput(&stdout, &stderr)
	t.Cleanup(func() {
		color.NoColor = prev
		SetOutput(os.Stdout, os.Stderr)
	})
	return &stdout, &stderr
}

func TestSuccessAndWarning(t *testing.T) {
	stdout, _ := capture(t)
	Success("created %s\n", "bob")
	Success("✓ already prefixed\n")
	Warning("careful\n")
	Step("importing\n")
	assert.Equal(t, "✓ created bob\n✓ already prefixed\n⚠️  careful\n→ importing\n", stdout.String())
}

func TestError(t *testing.T) {
	t.Run("single suggestion", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("User not found", "No user named ghost.", []string{"Create it first."})
		require.Error(t, err)
		assert.Equal(t, "User not found", err.Error())
		assert.Contains(t, stderr.String(), "Create it first.")
		assert.NotContains(t, stderr.String(), "Either:")
	})

	t.Run("multiple suggestions", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Import failed", "", []string{"First option", "Second option"})
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

package app

import (
	"context"
	"testing"

	"monthlydata/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapMemory(t *testing.T) {
	cfg := &config.Config{DataBackend: "memory", JWTSecret: "s", AdminPassword: "admin123"}
	a, err := Bootstrap(context.Background(), cfg, false)
	require.NoError(t, err)
	defer a.Store.Close()

	sess, err := a.Auth.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, sess.Identity.IsAdmin())

	id, err := a.Tokens.Parse(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", id.Username)
}

func TestInitDBRejectsUnknownBackend(t *testing.T) {
	_, err := InitDB(&config.Config{DataBackend: "sqlite"}, false)
	assert.Error(t, err)

	_, err = InitDB(&config.Config{DataBackend: "postgres"}, false)
	assert.Error(t, err, "empty DSN")
}

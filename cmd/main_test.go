package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"groundwater-rag/internal/config"
)

func TestCheckCompletionKey(t *testing.T) {
	cfg := config.Default()

	assert.ErrorIs(t, checkCompletionKey(cfg, "", false), config.ErrMissingAPIKey, "serve and -query need the key")
	assert.NoError(t, checkCompletionKey(cfg, "snapshot.gob", false))
	assert.NoError(t, checkCompletionKey(cfg, "", true))

	cfg.InferenceLLM.Key = "gsk_test"
	assert.NoError(t, checkCompletionKey(cfg, "", false))
}

package health

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRunAll(t *testing.T) {
	c := NewChecker(zerolog.New(os.Stderr))
	c.Register("db", func(context.Context) Status { return StatusOK })
	c.Register("llm", func(context.Context) Status { return StatusDegraded })

	results := c.RunAll(context.Background())
	assert.Equal(t, StatusOK, results["db"])
	assert.Equal(t, StatusDegraded, results["llm"])
}

func TestIsReady(t *testing.T) {
	c := NewChecker(zerolog.New(os.Stderr))
	c.Register("db", func(context.Context) Status { return StatusOK })
	assert.True(t, c.IsReady(context.Background()))

	// Degraded is still ready; only down blocks traffic.
	c.Register("llm", func(context.Context) Status { return StatusDegraded })
	assert.True(t, c.IsReady(context.Background()))

	c.Register("queue", func(context.Context) Status { return StatusDown })
	assert.False(t, c.IsReady(context.Background()))
}

func TestIsReady_NoChecks(t *testing.T) {
	c := NewChecker(zerolog.New(os.Stderr))
	assert.True(t, c.IsReady(context.Background()))
}

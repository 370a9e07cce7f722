package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands_TableIsComplete(t *testing.T) {
	cmds := commands()
	for _, name := range []string{"migrate", "jobs", "clear-failed", "db-seed", "force-cleanup"} {
		c, ok := cmds[name]
		require.True(t, ok, "missing command %s", name)
		assert.Equal(t, name, c.name)
		assert.NotEmpty(t, c.description)
		assert.NotNil(t, c.run)
	}
}

func TestForceCleanup_RequiresListArg(t *testing.T) {
	err := runForceCleanup(&commandContext{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage")
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	cmd := newRootCommand()

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "daemon")
	assert.Contains(t, names, "context")
}

func TestRunCommandRejectsOutputWithMultipleInputs(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"run", "-o", "out.srt", "a.mkv", "b.mkv"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single input")
}

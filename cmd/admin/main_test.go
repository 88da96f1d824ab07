package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubTerminal(t *testing.T, tty bool, answers ...string) {
	t.Helper()
	origRead, origTTY := readPasswordFunc, isTerminalFunc
	t.Cleanup(func() { readPasswordFunc, isTerminalFunc = origRead, origTTY })
	isTerminalFunc = func(int) bool { return tty }
	readPasswordFunc = func(int) ([]byte, error) {
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
}

func TestReadPassword(t *testing.T) {
	pwd, err := readPassword("from-env-secret")
	require.NoError(t, err)
	assert.Equal(t, "from-env-secret", pwd)

	stubTerminal(t, true, "hunter2hunter2", "hunter2hunter2")
	pwd, err = readPassword("")
	require.NoError(t, err)
	assert.Equal(t, "hunter2hunter2", pwd)

	stubTerminal(t, true, "first-one", "second-one")
	_, err = readPassword("")
	assert.EqualError(t, err, "passwords do not match")

	stubTerminal(t, false)
	_, err = readPassword("")
	assert.Error(t, err)
}

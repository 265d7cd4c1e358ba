package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Registration(t *testing.T) {
	root := GetRootCommand()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["scan"], "scan command should be registered")
	assert.True(t, names["serve"], "serve command should be registered")
	assert.True(t, names["config"], "config command should be registered")
}

func TestRootCommand_VersionFlag(t *testing.T) {
	root := GetRootCommand()

	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--version"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "codescan version")
}

func TestScanCommand_RequiresArgs(t *testing.T) {
	root := GetRootCommand()

	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"scan"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestScanCommand_MissingFile(t *testing.T) {
	root := GetRootCommand()

	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"scan", "/nonexistent/image.png", "--no-preprocess"})

	// All files failing to scan is reported as an error.
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "/nonexistent/image.png")
}

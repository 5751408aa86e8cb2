package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/forgelabs/forgecred/pkg/version"
)

func TestVersionCommand(t *testing.T) {
	origVersion := version.Version
	origGitCommit := version.GitCommit
	origBuildDate := version.BuildDate
	defer func() {
		version.Version = origVersion
		version.GitCommit = origGitCommit
		version.BuildDate = origBuildDate
	}()

	version.Version = "v1.2.3"
	version.GitCommit = "abc123"
	version.BuildDate = "2026-08-25T10:00:00Z"

	t.Run("default output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		root := NewRootCommand(Config{ConfigPath: configPathForTest(t), OutputWriter: buf})
		root.SetArgs([]string{"version"})
		require.NoError(t, root.Execute())
		assert.Contains(t, buf.String(), "forgecred v1.2.3 (commit: abc123, built: 2026-08-25T10:00:00Z)")
	})

	t.Run("json output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		root := NewRootCommand(Config{ConfigPath: configPathForTest(t), OutputWriter: buf})
		root.SetArgs([]string{"version", "-o", "json"})
		require.NoError(t, root.Execute())

		var info version.BuildInfo
		require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
		assert.Equal(t, "v1.2.3", info.Version)
		assert.Equal(t, "abc123", info.GitCommit)
	})

	t.Run("yaml output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		root := NewRootCommand(Config{ConfigPath: configPathForTest(t), OutputWriter: buf})
		root.SetArgs([]string{"version", "-o", "yaml"})
		require.NoError(t, root.Execute())

		var info version.BuildInfo
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &info))
		assert.Equal(t, "v1.2.3", info.Version)
	})
}

func TestCompletionCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: configPathForTest(t), OutputWriter: buf})
	root.SetArgs([]string{"completion", "bash"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "forgecred")

	root = NewRootCommand(Config{ConfigPath: configPathForTest(t), OutputWriter: &bytes.Buffer{}})
	root.SetArgs([]string{"completion", "tcsh"})
	require.Error(t, root.Execute())
}

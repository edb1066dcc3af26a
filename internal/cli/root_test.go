package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ak", cmd.Use)
	assert.Contains(t, cmd.Long, "append-only")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"init"}, {"seal"}, {"timeline"}, {"view"}, {"root"}, {"verify"}, {"repair"},
		{"inscribe"}, {"diff"}, {"interlace"}, {"index", "rebuild"}, {"index", "query"}, {"version"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dataDirFlag := cmd.PersistentFlags().Lookup("data-dir")
	require.NotNil(t, dataDirFlag)
	assert.Equal(t, ".eikyu", dataDirFlag.DefValue)

	for _, name := range []string{"repo", "metrics", "username", "email", "time-mode"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestSealCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sealCmd, _, err := cmd.Find([]string{"seal"})
	require.NoError(t, err)

	kindFlag := sealCmd.Flags().Lookup("kind")
	require.NotNil(t, kindFlag)
	assert.Equal(t, "k", kindFlag.Shorthand)

	for _, name := range []string{"summary", "body", "repair", "no-snapshot"} {
		assert.NotNil(t, sealCmd.Flags().Lookup(name), name)
	}
}

func TestTimelineCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	timelineCmd, _, err := cmd.Find([]string{"timeline"})
	require.NoError(t, err)

	for _, name := range []string{"period", "author", "kind", "since", "until", "grep", "where", "time"} {
		assert.NotNil(t, timelineCmd.Flags().Lookup(name), name)
	}

	logCmd, _, err := cmd.Find([]string{"log"})
	require.NoError(t, err)
	assert.Equal(t, timelineCmd, logCmd)
}

func TestVerifyCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	verifyCmd, _, err := cmd.Find([]string{"verify"})
	require.NoError(t, err)

	allFlag := verifyCmd.Flags().Lookup("all")
	require.NotNil(t, allFlag)
	assert.Equal(t, "false", allFlag.DefValue)
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "version"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

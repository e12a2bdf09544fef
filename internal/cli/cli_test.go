package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/dictate.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/dictate.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseTranscribeWithRecordingID(t *testing.T) {
	parsed, err := Parse([]string{"transcribe", "--recording-id", "abc123"})
	require.NoError(t, err)
	require.Equal(t, CommandTranscribe, parsed.Command)
	require.Equal(t, "abc123", parsed.RecordingID)
}

func TestParseEnhanceWithText(t *testing.T) {
	parsed, err := Parse([]string{"--socket", "/tmp/d.sock", "enhance", "--text", "buy milk tomorrow"})
	require.NoError(t, err)
	require.Equal(t, CommandEnhance, parsed.Command)
	require.Equal(t, "buy milk tomorrow", parsed.Text)
	require.Equal(t, "/tmp/d.sock", parsed.SocketPath)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion, wantHelp: false},
		{name: "missing config path", args: []string{"--config"}, wantErr: "requires a path"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"bogus"}, wantErr: "unknown command"},
		{name: "valid listen-start command", args: []string{"listen-start"}, wantCmd: CommandListenStart, wantHelp: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
		})
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("dictatectl")
	require.Contains(t, text, "start-recording")
	require.Contains(t, text, "listen-start")
	require.Contains(t, text, "doctor")
	require.Contains(t, text, "--config PATH")
}

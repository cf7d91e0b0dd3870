package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_ConfigPathSources(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "positional argument", args: []string{"exp.hcl"}, want: "exp.hcl"},
		{name: "config flag", args: []string{"-config", "exp.hcl"}, want: "exp.hcl"},
		{name: "shorthand flag", args: []string{"-c", "exp.hcl"}, want: "exp.hcl"},
		{
			name: "config flag wins over positional",
			args: []string{"-config", "flagged.hcl", "positional.hcl"},
			want: "flagged.hcl",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := &bytes.Buffer{}
			cfg, shouldExit, err := Parse(tc.args, out)
			require.NoError(t, err)
			require.False(t, shouldExit)
			require.Equal(t, tc.want, cfg.ConfigPath)
		})
	}
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse(nil, out)
	require.NoError(t, err)
	require.True(t, shouldExit)
	require.Nil(t, cfg)
	require.Contains(t, out.String(), "Usage:")
}

func TestParse_HelpFlag(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	_, shouldExit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	require.True(t, shouldExit)
}

func TestParse_Options(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse([]string{
		"-load-path", "/tmp/ckpt",
		"-log-format", "JSON",
		"-log-level", "DEBUG",
		"exp.hcl",
	}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)
	require.Equal(t, "/tmp/ckpt", cfg.LoadPath)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_InvalidOptions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
	}{
		{name: "bad log format", args: []string{"-log-format", "xml", "exp.hcl"}},
		{name: "bad log level", args: []string{"-log-level", "verbose", "exp.hcl"}},
		{name: "unknown flag", args: []string{"-unknown", "exp.hcl"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := &bytes.Buffer{}
			_, _, err := Parse(tc.args, out)
			require.Error(t, err)

			exitErr, ok := err.(*ExitError)
			require.True(t, ok, "CLI errors must carry an exit code")
			require.Equal(t, 2, exitErr.Code)
		})
	}
}

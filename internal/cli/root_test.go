package cli

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"monitor", "snapshot", "series", "hosts", "init", "doctor", "version"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "verbose", "log-file", "no-color"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, err := runCLI(t, "frobnicate")
	require.Error(t, err)
	assert.True(t, isUnknownCommandError(err))
}

func TestIsUnknownCommandError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{`unknown command "x" for "hostwatch"`, true},
		{"unknown flag: --nope", true},
		{"unknown shorthand flag: 'z' in -z", true},
		{"connection refused", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnknownCommandError(fmt.Errorf("%s", tt.msg)))
		})
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.New(errors.ErrConfig, "No hosts configured", "Run 'hostwatch init' to add one"))
	assert.Contains(t, buf.String(), "✗ No hosts configured")
	assert.Contains(t, buf.String(), "Run 'hostwatch init' to add one")

	buf.Reset()
	printError(&buf, fmt.Errorf("boom"))
	assert.Equal(t, "✗ boom\n", buf.String())

	buf.Reset()
	wrapped := fmt.Errorf("loading: %w", errors.New(errors.ErrAPI, "API down", ""))
	printError(&buf, wrapped)
	assert.Equal(t, "✗ API down\n", buf.String())
}

func TestGlobalOptions_LogFile(t *testing.T) {
	path := t.TempDir() + "/hostwatch.log"
	g := &GlobalOptions{LogFile: path}
	before := logger.Default()
	require.NoError(t, g.setup(&bytes.Buffer{}, "snapshot"))
	assert.NotNil(t, g.logCloser)

	logger.Default().Warn("arc fetch failed")
	g.teardown()
	assert.Nil(t, g.logCloser)
	assert.Same(t, before, logger.Default())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[snapshot] WARN: arc fetch failed")

	bad := &GlobalOptions{LogFile: t.TempDir() + "/missing/dir/x.log"}
	err = bad.setup(&bytes.Buffer{}, "snapshot")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hostwatch dev")
	assert.Contains(t, out, "commit: none")
	assert.Contains(t, out, "os/arch:")
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"dev", "dev"},
		{"1.2.3", "v1.2.3"},
		{"v1.2.3", "v1.2.3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatVersion(tt.in), tt.in)
	}
}

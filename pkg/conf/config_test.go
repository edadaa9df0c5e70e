package conf

import (
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBatch(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata", "batch.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Workers)
	require.Len(t, cfg.Sessions, 2)

	greet := cfg.Sessions[0]
	assert.Equal(t, "greet", greet.Name)
	assert.Equal(t, "sh", greet.Command)
	assert.Equal(t, []string{"-c", "echo hello"}, greet.Args)
	assert.Equal(t, []string{"GREETING=hi"}, greet.Env)
	assert.Equal(t, uint32(120), greet.Cols)
	assert.Equal(t, uint32(40), greet.Rows)
	assert.False(t, greet.ExecHelper)

	usr, err := user.Current()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(usr.HomeDir, "ptyrun", "greet.log"), greet.Output)

	unnamed := cfg.Sessions[1]
	assert.Equal(t, "session-2", unnamed.Name)
	assert.True(t, unnamed.ExecHelper)
	assert.Equal(t, uint32(DefaultCols), unnamed.Cols)
	assert.Equal(t, uint32(DefaultRows), unnamed.Rows)
	assert.Empty(t, unnamed.Output)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHELL", "/bin/testshell")

	cfg, err := LoadConfig(filepath.Join("testdata", "defaults.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultWorkers, cfg.Workers)
	s := cfg.Sessions[0]
	assert.Equal(t, "/bin/testshell", s.Command)
	assert.Equal(t, DefaultTerm, s.Term)
}

func TestMinimumRequired(t *testing.T) {
	_, err := LoadConfig(filepath.Join("testdata", "empty.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig("not_exists_path")
	assert.Error(t, err)
}

func TestDuplicateNames(t *testing.T) {
	_, err := LoadConfig(filepath.Join("testdata", "duplicate.yaml"))
	assert.ErrorContains(t, err, "duplicate session name")
}

func TestUnknownField(t *testing.T) {
	_, err := LoadConfig(filepath.Join("testdata", "unknown_field.yaml"))
	assert.ErrorContains(t, err, "comand")
}

func TestNewSessionConf(t *testing.T) {
	c, err := NewSessionConf("top", "-b")
	require.NoError(t, err)
	assert.Equal(t, "top", c.Name)
	assert.Equal(t, []string{"-b"}, c.Args)
	assert.Equal(t, uint32(DefaultCols), c.Cols)
}

func TestSelect(t *testing.T) {
	cfg, err := LoadConfig("testdata/batch.yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Sessions, 2)

	require.NoError(t, cfg.Select())
	assert.Len(t, cfg.Sessions, 2)

	err = cfg.Select("greet", "missing")
	assert.ErrorContains(t, err, `unknown session "missing"`)
	assert.Len(t, cfg.Sessions, 2)

	require.NoError(t, cfg.Select("greet"))
	require.Len(t, cfg.Sessions, 1)
	assert.Equal(t, "greet", cfg.Sessions[0].Name)
}

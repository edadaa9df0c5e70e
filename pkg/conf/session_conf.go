package conf

import (
	"github.com/ferama/ptyrun/pkg/utils"
)

const (
	DefaultCols = 80
	DefaultRows = 24
	DefaultTerm = "xterm-256color"
)

// SessionConf describes a program to run inside a pseudo terminal
type SessionConf struct {
	Name string `yaml:"name"`
	// program to run. Defaults to the user shell
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// KEY=VALUE entries added to the inherited environment
	Env []string `yaml:"env"`
	// if true the environment of ptyrun is not inherited
	CleanEnv bool   `yaml:"clean_env"`
	Dir      string `yaml:"dir"`
	Cols     uint32 `yaml:"cols"`
	Rows     uint32 `yaml:"rows"`
	// value of TERM when the environment does not set one
	Term string `yaml:"term"`
	// file receiving the terminal output. Empty discards it
	Output string `yaml:"output"`
	// run the session setup in a helper process for precise spawn errors
	ExecHelper bool `yaml:"exec_helper"`
}

// NewSessionConf builds a SessionConf for command with defaults applied
func NewSessionConf(command string, args ...string) (*SessionConf, error) {
	c := &SessionConf{
		Command: command,
		Args:    args,
	}
	if err := c.ApplyDefaults(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyDefaults fills unset fields and expands "~" in paths
func (c *SessionConf) ApplyDefaults() error {
	if c.Command == "" {
		c.Command = utils.CurrentUserShell()
	}
	if c.Name == "" {
		c.Name = c.Command
	}
	if c.Cols == 0 {
		c.Cols = DefaultCols
	}
	if c.Rows == 0 {
		c.Rows = DefaultRows
	}
	if c.Term == "" {
		c.Term = DefaultTerm
	}

	var err error
	if c.Dir, err = utils.ExpandUserHome(c.Dir); err != nil {
		return err
	}
	if c.Output, err = utils.ExpandUserHome(c.Output); err != nil {
		return err
	}
	return nil
}

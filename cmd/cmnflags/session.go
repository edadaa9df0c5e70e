package cmnflags

import (
	"github.com/ferama/ptyrun/pkg/conf"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AddSessionFlags adds the session common flags to FlagSet
func AddSessionFlags(fs *pflag.FlagSet) {
	fs.Uint32("cols", 0, "terminal width. Defaults to the local terminal width or 80")
	fs.Uint32("rows", 0, "terminal height. Defaults to the local terminal height or 24")
	fs.StringP("dir", "d", "", "working directory of the program")
	fs.StringArrayP("env", "e", nil, "KEY=VALUE added to the program environment. Can be repeated")
	fs.Bool("clean-env", false, "if set the program does not inherit the ptyrun environment")
	fs.String("term", conf.DefaultTerm, "value of TERM when the environment does not set one")
	fs.BoolP("exec-helper", "x", false, "set up the session in a helper process to get the exact failing step on errors")
}

// GetSessionConf builds a SessionConf from cmd. The first arg is the program
// to run, the remaining ones its arguments. Without args the user shell runs.
func GetSessionConf(cmd *cobra.Command, args []string) (*conf.SessionConf, error) {
	cols, _ := cmd.Flags().GetUint32("cols")
	rows, _ := cmd.Flags().GetUint32("rows")
	dir, _ := cmd.Flags().GetString("dir")
	env, _ := cmd.Flags().GetStringArray("env")
	cleanEnv, _ := cmd.Flags().GetBool("clean-env")
	term, _ := cmd.Flags().GetString("term")
	execHelper, _ := cmd.Flags().GetBool("exec-helper")

	sc := &conf.SessionConf{
		Dir:        dir,
		Env:        env,
		CleanEnv:   cleanEnv,
		Cols:       cols,
		Rows:       rows,
		Term:       term,
		ExecHelper: execHelper,
	}
	if len(args) > 0 {
		sc.Command = args[0]
		sc.Args = args[1:]
	}
	if err := sc.ApplyDefaults(); err != nil {
		return nil, err
	}
	return sc, nil
}

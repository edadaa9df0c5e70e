package autocomplete

import (
	"strings"

	"github.com/ferama/ptyrun/pkg/conf"
	"github.com/spf13/cobra"
)

type completeFunc func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective)

// ConfigFile completes yaml file paths
//
// Test with:
//
//	go build . && eval "$(./ptyrun completion zsh)"
//	./ptyrun batch -c <tab> <tab>
func ConfigFile() completeFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	}
}

// Sessions completes the session names defined in the file passed with
// configFlag
func Sessions(configFlag string) completeFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		shellDirective := cobra.ShellCompDirectiveNoFileComp

		path, _ := cmd.Flags().GetString(configFlag)
		if path == "" {
			return nil, shellDirective
		}
		cfg, err := conf.LoadConfig(path)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		var names []string
		for _, s := range cfg.Sessions {
			if strings.HasPrefix(s.Name, toComplete) {
				names = append(names, s.Name)
			}
		}
		return names, shellDirective
	}
}

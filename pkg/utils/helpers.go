package utils

import (
	"bufio"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

const fallbackShell = "/bin/sh"

// ExpandUserHome resolve paths like "~/logs/build.log"
func ExpandUserHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") && path != "~" {
		return path, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(usr.HomeDir, strings.TrimPrefix(path, "~")), nil
}

// GetUserDefaultShell try to get the best shell for the user
func GetUserDefaultShell(username string) string {
	file, err := os.Open("/etc/passwd")
	if err != nil {
		return fallbackShell
	}
	defer file.Close()

	lines := bufio.NewScanner(file)
	for lines.Scan() {
		fs := strings.Split(lines.Text(), ":")
		if len(fs) != 7 {
			continue
		}
		if fs[0] != username {
			continue
		}
		if fs[6] == "" {
			return fallbackShell
		}
		return fs[6]
	}

	return fallbackShell
}

// CurrentUserShell returns $SHELL when set, the passwd shell of the current
// user otherwise
func CurrentUserShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	usr, err := user.Current()
	if err != nil {
		return fallbackShell
	}
	return GetUserDefaultShell(usr.Username)
}

// MergeEnv overlays KEY=VALUE entries from extra on base. Later entries win
// and the order of first appearance is kept.
func MergeEnv(base []string, extra ...string) []string {
	index := make(map[string]int, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range append(append([]string{}, base...), extra...) {
		key, _, _ := strings.Cut(kv, "=")
		if i, ok := index[key]; ok {
			out[i] = kv
			continue
		}
		index[key] = len(out)
		out = append(out, kv)
	}
	return out
}

// LookupEnv returns the value of key in a KEY=VALUE list
func LookupEnv(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(env[i], "=")
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}

func ByteCountSI(b int64) string {
	const unit = 1000
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(b)/float64(div), "kMGTPE"[exp])
}

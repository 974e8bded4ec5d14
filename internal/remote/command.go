package remote

import (
	"fmt"
	"strings"
)

// profileCommands are sourced before every command list so that commands run
// with the user's login environment rather than a bare shell.
var profileCommands = []string{". ~/.profile", ". ~/.bash_profile"}

// buildCommand joins cmds, prefixed with the profile commands, into one shell line.
func buildCommand(cmds ...string) string {
	all := make([]string, 0, len(profileCommands)+len(cmds))
	all = append(all, profileCommands...)
	all = append(all, cmds...)
	return strings.Join(all, ";")
}

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// hashCommand returns the command printing the md5 of path.
func hashCommand(path string) string {
	return "openssl md5 " + shellQuote(path)
}

// parseHash extracts the hash from `openssl md5` output, which looks like
// "MD5(<path>)= <hash>". The last non-empty line is used so that anything the
// profile prints is ignored. The hash is the line's last token, which is the
// second one unless the path contains spaces.
func parseHash(out string) (string, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return "", fmt.Errorf("unexpected hash output %q", line)
		}
		return strings.ToLower(fields[len(fields)-1]), nil
	}
	return "", fmt.Errorf("empty hash output")
}

// lastLine returns the last non-empty line of out. Profile scripts may print
// before the command of interest, so its output is the tail.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

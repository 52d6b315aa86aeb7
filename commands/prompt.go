package commands

import (
	"os"
	"strings"
)

const (
	unknownUser = "unknown"
	unknownHost = "unknown_host"
	unknownDir  = "error_dir"
)

// Prompt renders `<user@host: dir> `, with the home directory shown as ~.
func (s *Shell) Prompt() string {
	user := s.User
	if user == "" {
		user = unknownUser
	}
	host := s.Hostname
	if host == "" {
		host = unknownHost
	}

	dir := unknownDir
	if wd, err := os.Getwd(); err == nil {
		dir = tildePath(wd, s.Home)
	}

	return ColorBoldCyan.Sprint("<") +
		ColorBoldGreen.Sprintf("%s@%s:", user, host) +
		ColorBoldYellow.Sprintf(" %s", dir) +
		ColorBoldCyan.Sprint(">") + " "
}

// tildePath abbreviates home at the start of dir.
func tildePath(dir, home string) string {
	switch {
	case home == "" || home == "/":
		return dir
	case dir == home:
		return "~"
	case strings.HasPrefix(dir, home+"/"):
		return "~" + strings.TrimPrefix(dir, home)
	default:
		return dir
	}
}

// Package osadapt maps requested commands to portable equivalents.
//
// Models trained on mixed corpora routinely emit commands that are missing
// or flag-incompatible on minimal distributions (busybox, containers).
// The table rewrites those before dispatch and supplies fallback
// suggestions after a failed execution. Pure data; no execution logic.
package osadapt

import "strings"

// substitution rewrites a command whose text starts with Pattern.
type substitution struct {
	Pattern     string
	Replacement string
}

// substitutions are checked in order; the first prefix match wins.
var substitutions = []substitution{
	{"top -bn1", "ps aux --sort=-%cpu"},
	{"top -b -n1", "ps aux --sort=-%cpu"},
	{"top -b -n 1", "ps aux --sort=-%cpu"},
	{"free -h", "cat /proc/meminfo"},
	{"free -m", "cat /proc/meminfo"},
	{"vmstat", "cat /proc/meminfo"},
	{"systemctl status", "service --status-all"},
}

// alternatives suggests fallback commands when a command's base utility
// fails (missing binary, unsupported flags).
var alternatives = map[string][]string{
	"top":       {"ps aux --sort=-%cpu", "ps aux"},
	"free":      {"cat /proc/meminfo", "ps aux --sort=-%mem"},
	"vmstat":    {"cat /proc/meminfo"},
	"iostat":    {"cat /proc/diskstats", "df -h"},
	"htop":      {"ps aux --sort=-%cpu"},
	"systemctl": {"service --status-all", "ps aux"},
	"ss":        {"netstat -tuln", "cat /proc/net/tcp"},
	"netstat":   {"ss -tuln", "cat /proc/net/tcp"},
	"lscpu":     {"cat /proc/cpuinfo"},
	"uptime":    {"cat /proc/loadavg"},
}

// Adapt returns a portable equivalent for the command, or the command
// unchanged when no substitution applies.
func Adapt(command string) string {
	trimmed := strings.TrimSpace(command)
	for _, s := range substitutions {
		if trimmed == s.Pattern || strings.HasPrefix(trimmed, s.Pattern+" ") {
			return s.Replacement
		}
	}
	return command
}

// Alternatives returns fallback suggestions for a failed command, keyed by
// its path-stripped first token. Nil when none are known.
func Alternatives(command string) []string {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil
	}
	base := parts[0]
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	alts := alternatives[base]
	if len(alts) == 0 {
		return nil
	}
	out := make([]string, len(alts))
	copy(out, alts)
	return out
}

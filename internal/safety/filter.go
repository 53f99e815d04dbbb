package safety

import (
	"fmt"
	"strings"
)

// Policy is the injectable denylist. It is a plain value so alternate
// policies can be swapped in from configuration without touching the loop.
type Policy struct {
	// Commands maps a blocked command name to the reason it is blocked.
	Commands map[string]string

	// FlagPatterns are substrings that block a command wherever they
	// appear in the full command string.
	FlagPatterns []string
}

// DefaultPolicy returns the built-in denylist.
func DefaultPolicy() Policy {
	return Policy{
		Commands: map[string]string{
			"rm":       "file deletion",
			"rmdir":    "directory deletion",
			"dd":       "raw disk writes",
			"mkfs":     "filesystem formatting",
			"fdisk":    "partition editing",
			"cfdisk":   "partition editing",
			"parted":   "partition editing",
			"format":   "filesystem formatting",
			"del":      "file deletion",
			"deltree":  "directory deletion",
			"shutdown": "power control",
			"reboot":   "power control",
			"halt":     "power control",
			"init":     "runlevel change",
			"kill":     "process termination",
			"killall":  "process termination",
			"pkill":    "process termination",
			"sudo":     "privilege escalation",
			"su":       "privilege escalation",
			"passwd":   "credential change",
			"chmod":    "permission change",
			"chown":    "ownership change",
			"mount":    "mount operation",
			"umount":   "mount operation",
			"fsck":     "filesystem repair",
		},
		FlagPatterns: []string{
			"--force", "-rf", "--recursive", "--no-preserve-root",
			"--delete", "--remove", "--destroy",
		},
	}
}

// Merge overlays non-empty fields of other onto the policy.
func (p Policy) Merge(other Policy) Policy {
	merged := p
	if len(other.Commands) > 0 {
		merged.Commands = make(map[string]string, len(p.Commands)+len(other.Commands))
		for k, v := range p.Commands {
			merged.Commands[k] = v
		}
		for k, v := range other.Commands {
			merged.Commands[k] = v
		}
	}
	if len(other.FlagPatterns) > 0 {
		merged.FlagPatterns = append(append([]string{}, p.FlagPatterns...), other.FlagPatterns...)
	}
	return merged
}

// Verdict is the result of classifying a command.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Filter classifies command strings against a Policy.
type Filter struct {
	policy Policy
}

// NewFilter creates a filter with the given policy.
func NewFilter(policy Policy) *Filter {
	return &Filter{policy: policy}
}

// Classify decides whether a command may be executed.
//
// The first whitespace token, stripped of any path prefix, is matched
// against the command denylist. The full string is then scanned for flag
// pattern substrings. Both checks are intentionally coarse.
func (f *Filter) Classify(command string) Verdict {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return Verdict{Allowed: false, Reason: "Empty command"}
	}

	base := parts[0]
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}

	if reason, blocked := f.policy.Commands[base]; blocked {
		return Verdict{
			Allowed: false,
			Reason:  fmt.Sprintf("Command '%s' is potentially dangerous: %s", base, reason),
		}
	}

	for _, pattern := range f.policy.FlagPatterns {
		if strings.Contains(command, pattern) {
			return Verdict{
				Allowed: false,
				Reason:  fmt.Sprintf("Command contains dangerous flag: %s", pattern),
			}
		}
	}

	return Verdict{Allowed: true, Reason: "Command appears safe"}
}

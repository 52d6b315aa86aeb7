package commands

import (
	"sort"
	"strings"
)

// mergeEnv returns environ with the extra variables set, replacing any
// existing definitions. New variables are appended in sorted order.
func mergeEnv(environ []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return environ
	}

	out := make([]string, 0, len(environ)+len(extra))
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := extra[name]; ok {
			continue
		}
		out = append(out, kv)
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}

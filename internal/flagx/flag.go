// Package flagx helps several independent flag sets share one command line.
//
// Each consumer (config file lookup, config flags) extracts only the flags
// it owns with FilterArgs and parses them with its own flag.FlagSet, so an
// unknown flag in one consumer never aborts another.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs returns the subset of args that belongs to the named flags.
//
// Two spellings are recognised:
//
//	-d session.db      (value in the following argument)
//	-d=session.db      (value after '=')
//
// A following argument that starts with '-' is never consumed as a value.
// The result is never nil.
func FilterArgs(args []string, names []string) []string {
	owned := make(map[string]bool, len(names))
	for _, n := range names {
		owned[n] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		if name, _, found := strings.Cut(arg, "="); found {
			if owned[name] {
				out = append(out, arg)
			}
			continue
		}

		if !owned[arg] {
			continue
		}
		out = append(out, arg)
		if next := i + 1; next < len(args) && !strings.HasPrefix(args[next], "-") {
			out = append(out, args[next])
			i = next
		}
	}
	return out
}

// ConfigPath returns the config file given with -c or -config, or "" when
// neither is present. When both appear the last one wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Package flagx picks individual flags out of a command line that other
// parsers (cobra, a job's own FlagSet) own as a whole.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// Flag names a flag without its dashes. A Bool flag never takes the next
// token as its value.
type Flag struct {
	Name string
	Bool bool
}

func Value(name string) Flag { return Flag{Name: name} }

func Bool(name string) Flag { return Flag{Name: name, Bool: true} }

// FilterArgs keeps the given flags, with their values, from args in their
// original order. One or two leading dashes are accepted, as the flag
// package does, and so are "-name value" and "--name=value".
func FilterArgs(args []string, flags ...Flag) []string {
	known := make(map[string]Flag, len(flags))
	for _, f := range flags {
		known[f.Name] = f
	}

	out := []string{}
	for i := 0; i < len(args); i++ {
		name, hasValue, ok := flagName(args[i])
		if !ok {
			continue
		}
		if args[i] == "--" {
			break
		}
		f, ok := known[name]
		if !ok {
			continue
		}
		out = append(out, args[i])
		if hasValue || f.Bool {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// flagName strips the dashes and any "=value" from arg.
func flagName(arg string) (name string, hasValue, ok bool) {
	if !strings.HasPrefix(arg, "-") {
		return "", false, false
	}
	name = strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
	name, _, hasValue = strings.Cut(name, "=")
	return name, hasValue, true
}

// ConfigPath returns the JSON config path given with -c or --config, the
// last one winning, or "" when there is none.
func ConfigPath(args []string) string {
	var path string
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, Value("c"), Value("config")))
	return path
}

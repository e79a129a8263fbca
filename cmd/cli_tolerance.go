package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type flagSpec struct {
	name          string
	requiresValue bool
}

var knownFlags = map[string]flagSpec{
	"config":    {name: "config", requiresValue: true},
	"api-url":   {name: "api-url", requiresValue: true},
	"json":      {name: "json", requiresValue: false},
	"verbose":   {name: "verbose", requiresValue: false},
	"query":     {name: "query", requiresValue: true},
	"category":  {name: "category", requiresValue: true},
	"filter":    {name: "filter", requiresValue: true},
	"price-min": {name: "price-min", requiresValue: true},
	"price-max": {name: "price-max", requiresValue: true},
	"sort":      {name: "sort", requiresValue: true},
	"limit":     {name: "limit", requiresValue: true},
	"url":       {name: "url", requiresValue: true},
	"print-url": {name: "print-url", requiresValue: false},
	"help":      {name: "help", requiresValue: false},
}

var knownCommands = []string{
	"categories",
	"product",
	"suggest",
	"state",
	"tui",
	"completion",
	"help",
}

var flagAliases = map[string]string{
	"search":     "query",
	"q":          "query",
	"cat":        "category",
	"categories": "category",
	"min-price":  "price-min",
	"max-price":  "price-max",
	"min":        "price-min",
	"from":       "price-min",
	"to":         "price-max",
	"order":      "sort",
	"sort-by":    "sort",
	"max":        "limit",
	"link":       "url",
	"base-url":   "api-url",
	"api":        "api-url",
}

func normalizeCLIArgs(args []string) ([]string, []string) {
	out := make([]string, 0, len(args))
	notes := make([]string, 0, 2)
	commandChosen := false
	activeCommand := ""
	nestedCommandAllowed := false
	nestedCommandChosen := false
	allowBareFlagRewrite := true
	expectingValue := false
	afterDoubleDash := false

	for i, tok := range args {
		if afterDoubleDash {
			out = append(out, tok)
			continue
		}

		if expectingValue {
			out = append(out, tok)
			expectingValue = false
			continue
		}

		if tok == "--" {
			out = append(out, tok)
			afterDoubleDash = true
			continue
		}

		canBeCommand := !commandChosen || (nestedCommandAllowed && !nestedCommandChosen)
		normalized, note, isFlag, needsValue, isCommand := normalizeToken(tok, canBeCommand, allowBareFlagRewrite)
		if note != "" {
			notes = append(notes, note)
		}
		out = append(out, normalized)

		if isCommand {
			if !commandChosen {
				commandChosen = true
				activeCommand = normalized
				allowBareFlagRewrite = bareFlagRewriteAllowed(activeCommand)
				nestedCommandAllowed = allowsNestedCommandArg(activeCommand)
				continue
			}
			if nestedCommandAllowed && !nestedCommandChosen {
				nestedCommandChosen = true
			}
		}
		if isFlag && needsValue && !strings.Contains(normalized, "=") && i < len(args)-1 {
			expectingValue = true
		}
		if len(tok) == 2 && tok[0] == '-' && shorthandTakesValue(tok[1]) {
			expectingValue = true
		}
	}

	return out, notes
}

func normalizeToken(tok string, canBeCommand bool, allowBareFlagRewrite bool) (normalized, note string, isFlag, needsValue, isCommand bool) {
	if tok == "--" {
		return tok, "", false, false, false
	}

	if strings.HasPrefix(tok, "--") {
		flagName, rest := splitFlag(strings.TrimPrefix(tok, "--"))
		canonical, ok := resolveFlagName(flagName)
		if ok {
			newTok := "--" + canonical + rest
			if newTok != tok {
				return newTok, rewriteNote(tok, newTok), true, knownFlags[canonical].requiresValue, false
			}
			return newTok, "", true, knownFlags[canonical].requiresValue, false
		}
		return tok, "", true, false, false
	}

	if strings.HasPrefix(tok, "-") && len(tok) > 2 {
		// Negative numbers are values, not flags.
		if isNumeric(tok[1:]) {
			return tok, "", false, false, false
		}
		flagName, rest := splitFlag(strings.TrimPrefix(tok, "-"))
		canonical, ok := resolveFlagName(flagName)
		if ok {
			newTok := "--" + canonical + rest
			return newTok, rewriteNote(tok, newTok), true, knownFlags[canonical].requiresValue, false
		}
		return tok, "", true, false, false
	}

	// Only a single key=value pair is rewritten; anything that looks like a
	// query string is left for the command to parse.
	if allowBareFlagRewrite && strings.Contains(tok, "=") && !strings.HasPrefix(tok, "-") && !strings.ContainsAny(tok, "&?") {
		flagName, rest := splitFlag(tok)
		canonical, ok := resolveFlagName(flagName)
		if ok {
			newTok := "--" + canonical + rest
			return newTok, rewriteNote(tok, newTok), true, knownFlags[canonical].requiresValue, false
		}
	}

	if canBeCommand && !strings.HasPrefix(tok, "-") {
		if corrected, ok := resolveCommand(tok); ok {
			if corrected != tok {
				return corrected, fmt.Sprintf("interpreted command `%s` as `%s`; use `%s` next time.", tok, corrected, corrected), false, false, true
			}
			return tok, "", false, false, true
		}
	}

	if allowBareFlagRewrite && !strings.HasPrefix(tok, "-") {
		canonical, ok := resolveFlagName(tok)
		if ok {
			newTok := "--" + canonical
			return newTok, rewriteNote(tok, newTok), true, knownFlags[canonical].requiresValue, false
		}
	}

	return tok, "", false, false, false
}

func rewriteNote(from, to string) string {
	return fmt.Sprintf("interpreted `%s` as `%s`; use `%s` next time.", from, to, to)
}

func bareFlagRewriteAllowed(command string) bool {
	// `categories` takes no positional arguments, so rewriting bare tokens
	// like `json` -> `--json` is helpful there. Everything else takes free
	// text (ids, queries, URLs) that must pass through untouched.
	switch command {
	case "categories":
		return true
	default:
		return false
	}
}

func allowsNestedCommandArg(command string) bool {
	// These commands accept another command token as a positional argument.
	switch command {
	case "help", "completion":
		return true
	default:
		return false
	}
}

func resolveFlagName(raw string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.ReplaceAll(name, "_", "-")

	if canonical, ok := flagAliases[name]; ok {
		return canonical, true
	}
	if _, ok := knownFlags[name]; ok {
		return name, true
	}
	// Two-letter guesses are too ambiguous to correct.
	if len([]rune(name)) < 3 {
		return "", false
	}

	if suggestion, ok := closestMatch(name, mapKeys(knownFlags), 2); ok {
		return suggestion, true
	}
	return "", false
}

func resolveCommand(raw string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, cmd := range knownCommands {
		if name == cmd {
			return cmd, true
		}
	}
	if len([]rune(name)) < 4 {
		return "", false
	}
	if suggestion, ok := closestMatch(name, knownCommands, 2); ok {
		return suggestion, true
	}
	return "", false
}

func splitFlag(value string) (string, string) {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) == 2 {
		return parts[0], "=" + parts[1]
	}
	return value, ""
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case (r == '.' || r == ',') && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}

// shorthandTakesValue reports whether -c is a flag anywhere in the command
// tree that consumes the next argument.
func shorthandTakesValue(c byte) bool {
	var found *pflag.Flag
	var walk func(cmd *cobra.Command)
	walk = func(cmd *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
			if f := fs.ShorthandLookup(string(c)); f != nil && found == nil {
				found = f
			}
		}
		for _, child := range cmd.Commands() {
			walk(child)
		}
	}
	walk(rootCmd)
	return found != nil && found.NoOptDefVal == ""
}

// mapKeys returns the keys of m in sorted order so that ties in closestMatch
// resolve the same way on every run.
func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func closestMatch(target string, candidates []string, maxDistance int) (string, bool) {
	best := ""
	bestDist := maxDistance + 1

	for _, candidate := range candidates {
		d := levenshtein.ComputeDistance(target, candidate)
		if d < bestDist {
			bestDist = d
			best = candidate
		}
	}

	if bestDist <= maxDistance {
		return best, true
	}
	return "", false
}

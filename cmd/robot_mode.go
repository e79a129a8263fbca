package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/kokossimo/kokocli/internal/api"
	"github.com/kokossimo/kokocli/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	// ExitSuccess is returned when the command succeeds.
	ExitSuccess = 0
	// ExitNotFound is returned when no products or categories match.
	ExitNotFound = 1
	// ExitInvalidArgs is returned when the command input is invalid.
	ExitInvalidArgs = 2
	// ExitUpstream is returned when the catalog API fails.
	ExitUpstream = 3
	// ExitInternal is returned for unexpected internal failures.
	ExitInternal = 4
)

const (
	codeInvalidArgs = "INVALID_ARGS"
	codeNotFound    = "NOT_FOUND"
	codeUpstream    = "UPSTREAM_ERROR"
	codeInternal    = "INTERNAL_ERROR"
)

// annotationNoJSON marks commands whose output is never JSON, so piping them
// does not switch on --json.
const annotationNoJSON = "kokocli/no-json"

// cliError is what every command failure is reduced to before it is printed.
type cliError struct {
	Code        string
	Message     string
	Suggestions []string
	ExitCode    int
}

func (e *cliError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidArgsError(message string, suggestions ...string) error {
	return &cliError{Code: codeInvalidArgs, Message: message, Suggestions: suggestions, ExitCode: ExitInvalidArgs}
}

func notFoundError(message string, suggestions ...string) error {
	return &cliError{Code: codeNotFound, Message: message, Suggestions: suggestions, ExitCode: ExitNotFound}
}

func upstreamError(action string, err error) error {
	return &cliError{
		Code:        codeUpstream,
		Message:     fmt.Sprintf("%s: %v", action, err),
		Suggestions: upstreamSuggestions(err),
		ExitCode:    ExitUpstream,
	}
}

// upstreamSuggestions points at the config knob that matches the failure.
func upstreamSuggestions(err error) []string {
	var status *api.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return []string{"The catalog API is slow; raise api.timeout_sec in the config file."}
	case errors.As(err, &status) && status.StatusCode == http.StatusTooManyRequests:
		return []string{"The catalog API is throttling; lower api.rate_per_sec in the config file."}
	case errors.As(err, &status) && status.Temporary():
		return []string{fmt.Sprintf("The catalog API answered %d; retry in a moment.", status.StatusCode)}
	default:
		return []string{"Check --api-url or " + config.EnvAPIURL + "."}
	}
}

// classifyCLIError maps an error returned by a command to its exit code.
// Commands return *cliError for everything they detect themselves; what is
// left comes from the API client or from cobra internals.
func classifyCLIError(err error) *cliError {
	if err == nil {
		return nil
	}

	var typed *cliError
	if errors.As(err, &typed) {
		return typed
	}

	var status *api.StatusError
	var transport *url.Error
	switch {
	case errors.Is(err, api.ErrNotFound):
		return &cliError{Code: codeNotFound, Message: err.Error(), ExitCode: ExitNotFound}
	case errors.As(err, &status), errors.As(err, &transport), errors.Is(err, context.DeadlineExceeded):
		return &cliError{Code: codeUpstream, Message: err.Error(), Suggestions: upstreamSuggestions(err), ExitCode: ExitUpstream}
	default:
		return &cliError{
			Code:        codeInternal,
			Message:     err.Error(),
			Suggestions: []string{"Run `kokocli --help` for usage details."},
			ExitCode:    ExitInternal,
		}
	}
}

// flagError is the FlagErrorFunc of the command tree. pflag reports typed
// errors, so the offending flag is known without parsing the message.
func flagError(cmd *cobra.Command, err error) error {
	suggestions := commandExamples(cmd, 2)

	var unknown *pflag.NotExistError
	var missing *pflag.ValueRequiredError
	var invalid *pflag.InvalidValueError
	switch {
	case errors.As(err, &unknown) && unknown.GetSpecifiedShortnames() == "":
		name := unknown.GetSpecifiedName()
		if match, ok := closestMatch(strings.ToLower(name), commandFlagNames(cmd), 2); ok {
			suggestions = append([]string{fmt.Sprintf("Try `--%s`.", match)}, suggestions...)
		} else if other, ok := resolveFlagName(name); ok {
			suggestions = append([]string{fmt.Sprintf("--%s is not accepted by `%s`; see `%s --help`.", other, cmd.CommandPath(), cmd.CommandPath())}, suggestions...)
		}
	case errors.As(err, &missing):
		if f := missing.GetFlag(); f != nil {
			suggestions = append([]string{fmt.Sprintf("--%s expects a value: %s.", f.Name, f.Usage)}, suggestions...)
		}
	case errors.As(err, &invalid):
		if f := invalid.GetFlag(); f != nil {
			suggestions = append([]string{fmt.Sprintf("--%s expects %s.", f.Name, f.Value.Type())}, suggestions...)
		}
	}
	return &cliError{Code: codeInvalidArgs, Message: err.Error(), Suggestions: suggestions, ExitCode: ExitInvalidArgs}
}

// commandFlagNames lists every long flag cmd accepts, inherited ones included.
func commandFlagNames(cmd *cobra.Command) []string {
	var names []string
	collect := func(f *pflag.Flag) { names = append(names, f.Name) }
	cmd.LocalFlags().VisitAll(collect)
	cmd.InheritedFlags().VisitAll(collect)
	return names
}

// positionalArgs wraps a cobra argument validator so that its failure carries
// the command's own examples.
func positionalArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &cliError{
				Code:        codeInvalidArgs,
				Message:     err.Error(),
				Suggestions: commandExamples(cmd, 2),
				ExitCode:    ExitInvalidArgs,
			}
		}
		return nil
	}
}

// rootArgs rejects positional arguments on the list command, which is driven
// by flags only. A leftover word is almost always a mistyped subcommand.
func rootArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	var suggestions []string
	if name, ok := closestMatch(strings.ToLower(args[0]), subcommandNames(cmd), 2); ok {
		suggestions = append(suggestions, fmt.Sprintf("Did you mean `%s`?", name))
	} else {
		suggestions = append(suggestions, fmt.Sprintf("To search, pass the words to --query: kokocli --query %q", strings.Join(args, " ")))
	}
	suggestions = append(suggestions, "kokocli categories", "kokocli suggest крем")
	return &cliError{
		Code:        codeInvalidArgs,
		Message:     fmt.Sprintf("unknown command %q for %q", args[0], cmd.CommandPath()),
		Suggestions: suggestions,
		ExitCode:    ExitInvalidArgs,
	}
}

func subcommandNames(cmd *cobra.Command) []string {
	names := make([]string, 0, len(cmd.Commands()))
	for _, child := range cmd.Commands() {
		names = append(names, child.Name())
	}
	return names
}

// commandExamples returns up to limit invocations from cmd's Example text.
func commandExamples(cmd *cobra.Command, limit int) []string {
	var out []string
	for _, line := range strings.Split(cmd.Example, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}

type jsonErrorPayload struct {
	Error jsonErrorBody `json:"error"`
}

type jsonErrorBody struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
	ExitCode    int      `json:"exitCode"`
}

func printCLIErrorJSON(w io.Writer, err *cliError) error {
	if err == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(jsonErrorPayload{Error: jsonErrorBody(*err)})
}

func formatCLIErrorText(err *cliError) string {
	if err == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "error[%s]: %s", strings.ToLower(err.Code), err.Message)
	if len(err.Suggestions) > 0 {
		b.WriteString("\nsuggestions:")
		for _, s := range err.Suggestions {
			b.WriteString("\n  " + s)
		}
	}
	return b.String()
}

func isTTY(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func hasJSONPreference(args []string) bool {
	for _, arg := range args {
		if arg == "--json" || strings.HasPrefix(arg, "--json=") {
			return true
		}
	}
	return false
}

func hasHelpRequest(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return true
		}
	}
	return false
}

// shouldAutoJSON reports whether output bound for a pipe should be JSON. The
// target command is resolved the way cobra will resolve it, so flag values
// such as `--category face` are never mistaken for a subcommand.
func shouldAutoJSON(args []string, stdoutIsTTY bool) bool {
	if stdoutIsTTY || len(args) == 0 {
		return false
	}
	if hasJSONPreference(args) || hasHelpRequest(args) {
		return false
	}
	target, _, err := rootCmd.Find(args)
	if err != nil {
		return true
	}
	return emitsJSON(target)
}

func emitsJSON(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoJSON] != "" {
			return false
		}
		if c.Name() == "help" || c.Name() == "completion" {
			return false
		}
	}
	return true
}

// initDefaultCommands adds cobra's help and completion commands ahead of
// Execute so that Find can resolve them.
func initDefaultCommands() {
	rootCmd.InitDefaultHelpCmd()
	rootCmd.InitDefaultCompletionCmd()
}

type quickStartCommand struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

type quickStartJSON struct {
	Name     string              `json:"name"`
	Summary  string              `json:"summary"`
	Usage    string              `json:"usage"`
	Commands []quickStartCommand `json:"commands"`
	Examples []string            `json:"examples"`
}

// quickStart describes the command tree for a bare `kokocli` invocation.
func quickStart() quickStartJSON {
	help := quickStartJSON{
		Name:     rootCmd.Name(),
		Summary:  rootCmd.Short,
		Usage:    rootCmd.Name() + " [flags] | " + rootCmd.Name() + " <command> [flags]",
		Examples: commandExamples(rootCmd, 3),
	}
	for _, child := range rootCmd.Commands() {
		if !child.IsAvailableCommand() {
			continue
		}
		help.Commands = append(help.Commands, quickStartCommand{Name: child.Name(), Summary: child.Short})
	}
	return help
}

func printQuickStart(w io.Writer, asJSON bool) error {
	help := quickStart()
	if asJSON {
		return json.NewEncoder(w).Encode(help)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\nusage: %s\ncommands:\n", help.Name, help.Summary, help.Usage)
	for _, c := range help.Commands {
		fmt.Fprintf(&b, "  %-12s %s\n", c.Name, c.Summary)
	}
	b.WriteString("examples:\n")
	for _, ex := range help.Examples {
		b.WriteString("  " + ex + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

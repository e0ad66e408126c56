// Command imgtool inspects and patches VER2 archives.
//
// Usage:
//
//	imgtool [-v] [-lock] <command> [flags] [args]
//
// Run "imgtool help" for the list of commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
)

// env carries what every command needs.
type env struct {
	stdout io.Writer
	logger *slog.Logger
	lock   bool
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"list":         {"list [-digest] <archive>", runList},
	"extract":      {"extract <archive> <name> <dest>", runExtract},
	"extract-all":  {"extract-all [-workers n] [-overwrite] <archive> <dir>", runExtractAll},
	"replace":      {"replace [-backup dir] [-sync] <archive> <name> <src>", runReplace},
	"replace-dir":  {"replace-dir [-backup dir] [-sync] [-verify] <archive> <dir>", runReplaceDir},
	"restore":      {"restore <archive> <backup>", runRestore},
	"check":        {"check <archive>", runCheck},
	"verify-asset": {"verify-asset <file>...", runVerifyAsset},
	"install-skin": {"install-skin [-game dir] [-backup dir] [-no-check] <name> <model.dff> <texture.txd>", runInstallSkin},
}

// errUsage marks errors caused by bad arguments.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("imgtool", flag.ContinueOnError)
	flags.SetOutput(stderr)
	verbose := flags.Bool("v", false, "enable debug logging")
	lock := flags.Bool("lock", false, "hold an advisory lock on <archive>.lock while working")
	flags.Usage = func() { usage(stderr) }
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 || flags.Arg(0) == "help" {
		usage(stderr)
		if flags.NArg() == 0 {
			return 2
		}
		return 0
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	e := &env{
		stdout: stdout,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		lock:   *lock,
	}

	name := flags.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "imgtool: unknown command %q\n", name)
		usage(stderr)
		return 2
	}
	if err := cmd.run(ctx, e, flags.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "usage: imgtool %s\n", cmd.usage)
			return 2
		}
		fmt.Fprintf(stderr, "imgtool %s: %v\n", name, err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("usage: imgtool [-v] [-lock] <command> [flags] [args]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", commands[name].usage)
	}
	fmt.Fprint(w, b.String())
}

// parse parses a command's flags and checks its positional argument count.
func parse(flags *flag.FlagSet, args []string, nargs int) error {
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if nargs >= 0 && flags.NArg() != nargs {
		return errUsage
	}
	if nargs < 0 && flags.NArg() < -nargs {
		return errUsage
	}
	return nil
}

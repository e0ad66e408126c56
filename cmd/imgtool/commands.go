package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/meigma/img"
	"github.com/meigma/img/asset"
)

func (e *env) open(path string, opts ...img.Option) (*img.Archive, error) {
	opts = append([]img.Option{img.WithLogger(e.logger), img.WithAdvisoryLock(e.lock)}, opts...)
	return img.Open(path, opts...)
}

func runList(_ context.Context, e *env, args []string) error {
	flags := flag.NewFlagSet("list", flag.ContinueOnError)
	withDigest := flags.Bool("digest", false, "print the digest of every payload")
	if err := parse(flags, args, 1); err != nil {
		return err
	}
	a, err := e.open(flags.Arg(0))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	header := "NAME\tOFFSET\tSTREAMING\tARCHIVE"
	if *withDigest {
		header += "\tDIGEST"
	}
	fmt.Fprintln(tw, header)
	for entry := range a.Entries() {
		line := fmt.Sprintf("%s\t%d\t%d\t%d", entry.Name, entry.Offset, entry.StreamingSize, entry.ArchiveSize)
		if *withDigest {
			d, err := a.Digest(entry.Name)
			if err != nil {
				return err
			}
			line += "\t" + d.String()
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

func runExtract(_ context.Context, e *env, args []string) error {
	flags := flag.NewFlagSet("extract", flag.ContinueOnError)
	if err := parse(flags, args, 3); err != nil {
		return err
	}
	a, err := e.open(flags.Arg(0))
	if err != nil {
		return err
	}
	return a.Extract(flags.Arg(1), flags.Arg(2))
}

func runExtractAll(ctx context.Context, e *env, args []string) error {
	flags := flag.NewFlagSet("extract-all", flag.ContinueOnError)
	workers := flags.Int("workers", 4, "concurrent extractions")
	overwrite := flags.Bool("overwrite", false, "overwrite existing files")
	if err := parse(flags, args, 2); err != nil {
		return err
	}
	a, err := e.open(flags.Arg(0))
	if err != nil {
		return err
	}
	stats, err := a.ExtractAll(ctx, flags.Arg(1),
		img.ExtractWithWorkers(*workers),
		img.ExtractWithOverwrite(*overwrite))
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "extracted %d files (%d bytes), skipped %d\n",
		stats.FileCount, stats.TotalBytes, stats.Skipped)
	return nil
}

// writeFlags are shared by the commands that modify an archive.
type writeFlags struct {
	backup string
	sync   bool
}

func (w *writeFlags) register(flags *flag.FlagSet) {
	flags.StringVar(&w.backup, "backup", "", "snapshot replaced entries into this directory")
	flags.BoolVar(&w.sync, "sync", false, "flush writes to stable storage")
}

func (w *writeFlags) options() []img.Option {
	return []img.Option{img.WithBackupDir(w.backup), img.WithSync(w.sync)}
}

func runReplace(_ context.Context, e *env, args []string) error {
	flags := flag.NewFlagSet("replace", flag.ContinueOnError)
	var wf writeFlags
	wf.register(flags)
	if err := parse(flags, args, 3); err != nil {
		return err
	}
	a, err := e.open(flags.Arg(0), wf.options()...)
	if err != nil {
		return err
	}
	if err := a.ReplaceFromFile(flags.Arg(1), flags.Arg(2)); err != nil {
		if errors.Is(err, img.ErrIO) {
			e.logger.Error("archive may be partially written; run check before using it", "archive", flags.Arg(0))
		}
		return err
	}
	return nil
}

func runReplaceDir(ctx context.Context, e *env, args []string) error {
	flags := flag.NewFlagSet("replace-dir", flag.ContinueOnError)
	var wf writeFlags
	wf.register(flags)
	verify := flags.Bool("verify", false, "skip .dff and .txd files that fail the signature check")
	if err := parse(flags, args, 2); err != nil {
		return err
	}
	a, err := e.open(flags.Arg(0), wf.options()...)
	if err != nil {
		return err
	}
	res, err := replaceDir(ctx, a, flags.Arg(1), *verify, e.logger)
	fmt.Fprintf(e.stdout, "replaced %d entries, skipped %d files\n", res.replaced, res.skipped)
	return err
}

func runRestore(_ context.Context, e *env, args []string) error {
	flags := flag.NewFlagSet("restore", flag.ContinueOnError)
	if err := parse(flags, args, 2); err != nil {
		return err
	}
	a, err := e.open(flags.Arg(0))
	if err != nil {
		return err
	}
	return a.Restore(flags.Arg(1))
}

func runCheck(_ context.Context, e *env, args []string) error {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)
	if err := parse(flags, args, 1); err != nil {
		return err
	}
	a, err := e.open(flags.Arg(0))
	if err != nil {
		return err
	}
	if err := a.Check(); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s: %d entries, layout ok\n", a.Path(), a.Len())
	return nil
}

// errAssetMismatch is returned when a file's content does not match the
// kind its extension names.
var errAssetMismatch = errors.New("asset content does not match its extension")

func runVerifyAsset(_ context.Context, e *env, args []string) error {
	flags := flag.NewFlagSet("verify-asset", flag.ContinueOnError)
	if err := parse(flags, args, -1); err != nil {
		return err
	}
	var errs []error
	for _, path := range flags.Args() {
		want := asset.KindFromName(path)
		if want == asset.KindUnknown {
			fmt.Fprintf(e.stdout, "%s: skipped, not a .dff or .txd file\n", path)
			continue
		}
		ok, err := asset.Check(path, want)
		switch {
		case err != nil:
			errs = append(errs, err)
		case !ok:
			fmt.Fprintf(e.stdout, "%s: not a %s\n", path, want)
			errs = append(errs, fmt.Errorf("%s: %w", path, errAssetMismatch))
		default:
			fmt.Fprintf(e.stdout, "%s: %s ok\n", path, want)
		}
	}
	return errors.Join(errs...)
}

func runInstallSkin(ctx context.Context, e *env, args []string) error {
	flags := flag.NewFlagSet("install-skin", flag.ContinueOnError)
	gameDir := flags.String("game", "", "game data directory (default: search the usual locations)")
	backup := flags.String("backup", "", "snapshot the replaced model into this directory")
	noCheck := flags.Bool("no-check", false, "skip the model and texture signature checks")
	if err := parse(flags, args, 3); err != nil {
		return err
	}

	dir := *gameDir
	if dir == "" {
		found, err := img.FindGameDir()
		if err != nil {
			return err
		}
		dir = found
	}

	res, err := img.InstallSkin(ctx, img.SkinRequest{
		GameDir: dir,
		Name:    flags.Arg(0),
		Model:   flags.Arg(1),
		Texture: flags.Arg(2),
	},
		img.SkinWithLogger(e.logger),
		img.SkinWithChecks(!*noCheck),
		img.SkinWithArchiveOptions(img.WithBackupDir(*backup), img.WithAdvisoryLock(e.lock)),
		img.SkinWithProgress(func(ev img.ProgressEvent) {
			e.logger.Debug("install step", "stage", ev.Stage, "name", ev.Name)
		}))
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "installed %s: model %s (%d sectors), texture %s\n",
		flags.Arg(0), res.Archive, res.Entry.StreamingSize, res.TexturePath)
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/karrick/godirwalk"

	"github.com/meigma/img"
	"github.com/meigma/img/asset"
)

type replaceResult struct {
	replaced int
	skipped  int
}

// replaceDir replaces every archive entry whose name matches the base name
// of a regular file under dir. A file that cannot be applied is reported and
// the walk continues; the returned error joins all such failures.
func replaceDir(ctx context.Context, a *img.Archive, dir string, verify bool, logger *slog.Logger) (replaceResult, error) {
	var res replaceResult
	var errs []error

	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !de.IsRegular() {
				return nil
			}
			name := img.EntryName(path)
			if !a.Exists(name) {
				logger.Debug("no matching entry", "file", path)
				res.skipped++
				return nil
			}
			if verify {
				if kind := asset.KindFromName(name); kind != asset.KindUnknown {
					ok, err := asset.Check(path, kind)
					if err != nil || !ok {
						logger.Warn("signature check failed", "file", path, "kind", kind)
						res.skipped++
						return nil
					}
				}
			}
			if err := a.ReplaceFromFile(name, path); err != nil {
				logger.Warn("replace failed", "file", path, "error", err)
				errs = append(errs, err)
				if errors.Is(err, img.ErrIO) {
					return err
				}
				return nil
			}
			res.replaced++
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			if errors.Is(err, img.ErrIO) || ctx.Err() != nil {
				return godirwalk.Halt
			}
			errs = append(errs, fmt.Errorf("walk %s: %w", path, err))
			return godirwalk.SkipNode
		},
	})
	if err != nil && !errors.Is(err, img.ErrIO) {
		errs = append(errs, err)
	}
	return res, errors.Join(errs...)
}

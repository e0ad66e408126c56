package img

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/img/asset"
)

// SkinRequest describes a character skin to install.
type SkinRequest struct {
	// GameDir is the game's data directory, see FindGameDir.
	GameDir string

	// Name is the character name, without extension. The model replaces
	// "<Name>.dff" in the archive and the texture is installed as
	// "<Name>.txd" in the texdb directory.
	Name string

	// Model is the path of the replacement .dff file.
	Model string

	// Texture is the path of the replacement .txd file.
	Texture string
}

// SkinResult reports where a skin was installed.
type SkinResult struct {
	// Archive is the path of the patched archive.
	Archive string

	// Entry is the model's directory entry after replacement.
	Entry Entry

	// TexturePath is where the texture dictionary was written.
	TexturePath string
}

// InstallSkin replaces a character's model inside the game archive and
// installs its texture dictionary next to the archive.
//
// Both files are checked before anything is written: they must exist and,
// unless SkinWithChecks(false) is given, start with the model and texture
// dictionary chunk types. The model is replaced first; if installing the
// texture then fails, the archive keeps the new model. Use
// SkinWithArchiveOptions(WithBackupDir(...)) to be able to undo it.
func InstallSkin(ctx context.Context, req SkinRequest, opts ...SkinOption) (*SkinResult, error) {
	cfg := skinConfig{checks: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if err := validSkinName(req.Name); err != nil {
		return nil, err
	}
	modelEntry := req.Name + asset.KindModel.Ext()
	textureName := req.Name + asset.KindTextureDictionary.Ext()

	cfg.report(StageVerifying, req.Model)
	if err := verifyAsset(req.Model, asset.KindModel, cfg.checks); err != nil {
		return nil, err
	}
	cfg.report(StageVerifying, req.Texture)
	if err := verifyAsset(req.Texture, asset.KindTextureDictionary, cfg.checks); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	archivePath := ArchivePath(req.GameDir)
	archiveOpts := append([]Option{WithLogger(cfg.logger)}, cfg.archiveOpts...)
	a, err := Open(archivePath, archiveOpts...)
	if err != nil {
		return nil, err
	}

	cfg.report(StageReplacing, modelEntry)
	if err := a.ReplaceFromFile(modelEntry, req.Model); err != nil {
		return nil, err
	}
	entry, _ := a.Lookup(modelEntry)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texturePath := filepath.Join(req.GameDir, TexdbDir, textureName)
	cfg.report(StageInstalling, textureName)
	if err := CopyFile(req.Texture, texturePath); err != nil {
		return nil, fmt.Errorf("install texture: %w", err)
	}

	log.Info("installed skin",
		"name", req.Name,
		"archive", archivePath,
		"model_sectors", entry.StreamingSize,
		"texture", texturePath)
	return &SkinResult{
		Archive:     archivePath,
		Entry:       entry,
		TexturePath: texturePath,
	}, nil
}

func (c *skinConfig) report(stage ProgressStage, name string) {
	if c.progress != nil {
		c.progress(ProgressEvent{Stage: stage, Name: name})
	}
}

func validSkinName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\:\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if len(name)+len(".dff") > NameSize {
		return fmt.Errorf("%w: %q is longer than %d bytes with its extension", ErrInvalidName, name, NameSize)
	}
	return nil
}

func verifyAsset(path string, kind asset.Kind, check bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return &fs.PathError{Op: "verify", Path: path, Err: err}
	}
	if info.IsDir() {
		return &fs.PathError{Op: "verify", Path: path, Err: fs.ErrInvalid}
	}
	if !check {
		return nil
	}
	ok, err := asset.Check(path, kind)
	if err != nil {
		return &fs.PathError{Op: "verify", Path: path, Err: err}
	}
	if !ok {
		return &fs.PathError{Op: "verify", Path: path, Err: fmt.Errorf("%w: not a %s", ErrInvalidAsset, kind)}
	}
	return nil
}

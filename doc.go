// Package img reads and patches VER2 sector archives, the "gta3.img"
// containers that hold game models and textures.
//
// This package is the high-level entry point: it re-exports the archive
// engine from the [core] subpackage and adds the operations built on top of
// it, such as copying loose files next to an archive and installing a
// character skin. For archive access alone, use [core] directly.
//
// An archive is a sequence of 2048-byte sectors. It starts with an 8-byte
// header ("VER2" and a little-endian entry count) followed by one 32-byte
// directory record per entry: sector offset (u32), streaming size (u16),
// archive size (u16) and a NUL-padded 24-byte name.
//
// # Quick Start
//
// List and extract entries:
//
//	a, err := img.Open("texdb/gta3.img")
//	if err != nil {
//	    return err
//	}
//	for _, name := range a.List() {
//	    fmt.Println(name)
//	}
//	err = a.Extract("bmypol.dff", "out/bmypol.dff")
//
// Replace an entry in place, keeping a backup:
//
//	a, err := img.Open("texdb/gta3.img", img.WithBackupDir("backups"))
//	if err != nil {
//	    return err
//	}
//	err = a.ReplaceFromFile("bmypol.dff", "mods/bmypol.dff")
//	if errors.Is(err, img.ErrOverflow) {
//	    // the new model needs more sectors than the entry has room for
//	}
//
// # Skins
//
// [InstallSkin] performs the common modding task of swapping a character's
// model inside the archive and its texture dictionary beside it:
//
//	dir, err := img.FindGameDir()
//	if err != nil {
//	    return err
//	}
//	res, err := img.InstallSkin(ctx, img.SkinRequest{
//	    GameDir: dir,
//	    Name:    "bmypol",
//	    Model:   "mods/bmypol.dff",
//	    Texture: "mods/bmypol.txd",
//	})
//
// Replacement is in place and never relocates an entry: a payload that needs
// more sectors than the gap before the next entry fails with [ErrOverflow]
// and leaves the archive untouched.
package img

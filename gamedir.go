package img

import (
	"os"
	"path/filepath"
)

// GamePackage is the package directory name of the game's data files.
const GamePackage = "com.rockstargames.gtasa"

// Layout of a game directory.
const (
	// TexdbDir holds the archive and the loose texture dictionaries.
	TexdbDir = "texdb"

	// ArchiveName is the file name of the main archive inside TexdbDir.
	ArchiveName = "gta3.img"
)

// DefaultGameDirs lists where the game's data directory usually lives on a
// device, in the order FindGameDir tries them.
var DefaultGameDirs = []string{
	"/storage/emulated/0/Android/obb/" + GamePackage,
	"/sdcard/Android/obb/" + GamePackage,
}

// FindGameDir returns the first of candidates that is an existing
// directory. With no candidates it tries DefaultGameDirs and then
// $EXTERNAL_STORAGE/Android/obb/<GamePackage>.
func FindGameDir(candidates ...string) (string, error) {
	if len(candidates) == 0 {
		candidates = append([]string(nil), DefaultGameDirs...)
		if ext := os.Getenv("EXTERNAL_STORAGE"); ext != "" {
			candidates = append(candidates, filepath.Join(ext, "Android", "obb", GamePackage))
		}
	}
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", ErrGameDirNotFound
}

// ArchivePath returns the path of the main archive inside gameDir.
func ArchivePath(gameDir string) string {
	return filepath.Join(gameDir, TexdbDir, ArchiveName)
}

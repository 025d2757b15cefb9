package shared

import (
	"os"
	"path/filepath"
	"strings"
)

// StagingDir is the subdirectory of the output directory that holds in-flight downloads.
//
// Committed files are always regular files directly under the output directory, so a
// track name can never collide with it and the sweep never touches finished output.
const StagingDir = ".songdl-tmp"

// filenameReplacer maps characters that are unsafe in filenames across common filesystems.
//
// [strings.Replacer] applies every mapping in a single left-to-right pass, so a
// replacement is never re-examined by a later rule.
var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "-",
	"?", "",
	"*", "",
	"\"", "'",
	"<", "(",
	">", ")",
	"|", "-",
)

// SanitizeFilename renders "{artist} - {title}" (or "{title}" without an artist), trims the
// whole name and replaces unsafe characters. Inner whitespace is kept as given.
//
// The result is a pure function of its inputs and carries no extension.
func SanitizeFilename(artist, title string) string {
	name := title
	if artist != "" {
		name = artist + " - " + title
	}
	return filenameReplacer.Replace(strings.TrimSpace(name))
}

// StagingPath returns the staging directory of outputDir.
func StagingPath(outputDir string) string {
	return filepath.Join(outputDir, StagingDir)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

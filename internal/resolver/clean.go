package resolver

import (
	"regexp"
	"strings"
)

var (
	bracketed   = regexp.MustCompile(`\s*[\(\[\{][^\)\]\}]*[\)\]\}]`)
	credits     = regexp.MustCompile(`(?i)\s+(feat\.?|ft\.?|featuring)\s+.*$`)
	dashSuffix  = regexp.MustCompile(`\s+[-–—]\s+.*$`)
	qualifiers  = regexp.MustCompile(`(?i)(\s+(radio edit|official (music )?video|official audio|lyric video|lyrics|remaster(ed)?( \d{4})?|explicit|live|mono|stereo))+$`)
	extraSpaces = regexp.MustCompile(`\s+`)
)

// CleanTitle strips version qualifiers and credits from a title. The original is returned when nothing would remain.
// Bare qualifier words are only removed from the end, so "Live Forever" keeps its first word.
//
//	CleanTitle("Song (Remastered 2011) - Live feat. X") == "Song"
func CleanTitle(title string) string {
	s := bracketed.ReplaceAllString(title, "")
	s = credits.ReplaceAllString(s, "")
	s = dashSuffix.ReplaceAllString(s, "")
	s = qualifiers.ReplaceAllString(s, "")
	s = strings.TrimSpace(extraSpaces.ReplaceAllString(s, " "))

	if s == "" {
		return strings.TrimSpace(title)
	}
	return s
}

// yt-dlp implementation of [Searcher], [Downloader] and [PlaylistExtractor]
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/time/rate"
)

const (
	searchPrefix    = "ytsearch1:"
	watchURLFormat  = "https://www.youtube.com/watch?v=%s"
	downloadFormat  = "bestaudio/best"
	defaultTimeout  = 5 * time.Minute
	defaultSocketTO = 30
)

var (
	_ Searcher          = (*YTDLPService)(nil)
	_ Downloader        = (*YTDLPService)(nil)
	_ PlaylistExtractor = (*YTDLPService)(nil)
)

// runFunc executes a prepared command and returns its stdout.
type runFunc func(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error)

// YTDLPService drives the yt-dlp executable through go-ytdlp.
//
// All calls share one rate limiter and each call is bounded by the configured timeout.
type YTDLPService struct {
	executable    string
	timeout       time.Duration
	socketTimeout float64
	limiter       *rate.Limiter
	logger        *log.Logger
	run           runFunc
}

// YTDLPOpts configures a [YTDLPService].
type YTDLPOpts struct {
	Executable        string
	Timeout           time.Duration
	SocketTimeout     float64
	RequestsPerSecond float64
	Logger            *log.Logger
}

// NewYTDLPService creates a service from opts, filling defaults for zero values.
func NewYTDLPService(opts YTDLPOpts) *YTDLPService {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.SocketTimeout <= 0 {
		opts.SocketTimeout = defaultSocketTO
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &YTDLPService{
		executable:    opts.Executable,
		timeout:       opts.Timeout,
		socketTimeout: opts.SocketTimeout,
		limiter:       rate.NewLimiter(limit, 1),
		logger:        opts.Logger,
		run:           runCommand,
	}
}

// NewYTDLPServiceFromConfig maps the [shared.YTDLPConfig] section onto a service.
func NewYTDLPServiceFromConfig(cfg shared.YTDLPConfig, logger *log.Logger) *YTDLPService {
	return NewYTDLPService(YTDLPOpts{
		Executable:        cfg.Executable,
		Timeout:           cfg.Timeout,
		SocketTimeout:     cfg.SocketTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	})
}

// Install downloads a managed yt-dlp build when none is available and pins the service to it.
func (s *YTDLPService) Install(ctx context.Context) error {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: yt-dlp install failed: %v", shared.ErrServiceUnavailable, err)
	}
	s.logger.Info("using yt-dlp", "path", resolved.Executable, "version", resolved.Version)
	if s.executable == "" {
		s.executable = resolved.Executable
	}
	return nil
}

func runCommand(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
	res, err := cmd.Run(ctx, args...)
	if res == nil {
		return "", err
	}
	return res.Stdout, err
}

func (s *YTDLPService) command() *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		NoProgress().
		SocketTimeout(s.socketTimeout)
	if s.executable != "" {
		cmd.SetExecutable(s.executable)
	}
	return cmd
}

// exec waits for the limiter and runs cmd with the per-call timeout.
func (s *YTDLPService) exec(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.run(ctx, cmd, args...)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out, fmt.Errorf("%w after %s: %v", shared.ErrTimeout, s.timeout, err)
	}
	return out, err
}

// Search runs a flat single-result search and returns the top hit's watch URL.
func (s *YTDLPService) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}

	cmd := s.command().
		FlatPlaylist().
		DumpSingleJSON().
		SkipDownload().
		IgnoreErrors()

	s.logger.Debug("searching", "query", query)
	out, err := s.exec(ctx, cmd, searchPrefix+query)
	if err != nil {
		return "", fmt.Errorf("search %q: %w", query, err)
	}

	result, err := parseFlatResult(out)
	if err != nil {
		return "", fmt.Errorf("search %q: %w", query, err)
	}
	return result.topHit(), nil
}

// Download fetches bestaudio for mediaURL and converts it under stem.
func (s *YTDLPService) Download(ctx context.Context, mediaURL, stem string, opts DownloadOptions) error {
	if opts.Format == "" {
		opts.Format = "mp3"
	}

	cmd := s.command().
		Format(downloadFormat).
		ExtractAudio().
		AudioFormat(opts.Format).
		AudioQuality(opts.Quality.Arg()).
		NoPlaylist().
		ForceOverwrites().
		Output(outputTemplate(stem))

	s.logger.Debug("downloading", "url", mediaURL, "stem", stem, "format", opts.Format, "quality", opts.Quality)
	if _, err := s.exec(ctx, cmd, mediaURL); err != nil {
		return fmt.Errorf("download %s: %w", mediaURL, err)
	}
	return nil
}

// ExtractPlaylist lists playlist entries without downloading them.
func (s *YTDLPService) ExtractPlaylist(ctx context.Context, playlistURL string) ([]PlaylistEntry, error) {
	cmd := s.command().
		FlatPlaylist().
		DumpSingleJSON().
		SkipDownload().
		IgnoreErrors()

	out, err := s.exec(ctx, cmd, playlistURL)
	if err != nil {
		return nil, fmt.Errorf("extract playlist %s: %w", playlistURL, err)
	}

	result, err := parseFlatResult(out)
	if err != nil {
		return nil, fmt.Errorf("extract playlist %s: %w", playlistURL, err)
	}
	return result.playlistEntries(), nil
}

// outputTemplate escapes template markers in stem and lets yt-dlp pick the extension.
func outputTemplate(stem string) string {
	return strings.ReplaceAll(stem, "%", "%%") + ".%(ext)s"
}

// flatEntry is the subset of yt-dlp's info JSON used for search hits and playlist entries.
type flatEntry struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	URL        string      `json:"url"`
	WebpageURL string      `json:"webpage_url"`
	Type       string      `json:"_type"`
	Entries    []flatEntry `json:"entries"`
}

func parseFlatResult(out string) (*flatEntry, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return &flatEntry{}, nil
	}

	// --ignore-errors can leave several documents; the last line is the single JSON dump.
	if i := strings.LastIndex(out, "\n{"); i >= 0 {
		out = out[i+1:]
	}

	var result flatEntry
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return nil, fmt.Errorf("%w: unreadable yt-dlp output: %v", shared.ErrInvalidInput, err)
	}
	return &result, nil
}

func (e *flatEntry) watchURL() string {
	switch {
	case e.ID != "" && (e.URL == "" || !strings.HasPrefix(e.URL, "http")):
		return fmt.Sprintf(watchURLFormat, e.ID)
	case e.WebpageURL != "":
		return e.WebpageURL
	default:
		return e.URL
	}
}

// topHit returns the first usable entry, or the document itself when it is a single video.
func (e *flatEntry) topHit() string {
	if len(e.Entries) == 0 {
		if e.Type == "playlist" || e.ID == "" {
			return ""
		}
		return e.watchURL()
	}
	for _, entry := range e.Entries {
		if u := entry.watchURL(); u != "" {
			return u
		}
	}
	return ""
}

func (e *flatEntry) playlistEntries() []PlaylistEntry {
	entries := make([]PlaylistEntry, 0, len(e.Entries))
	for _, entry := range e.Entries {
		u := entry.watchURL()
		if u == "" {
			continue
		}
		entries = append(entries, PlaylistEntry{Title: strings.TrimSpace(entry.Title), URL: u})
	}
	return entries
}

// ParseVideoID extracts a video id from common YouTube URL shapes, returning "" when none is present.
func ParseVideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch {
	case host == "youtu.be":
		return strings.Trim(u.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				return strings.Trim(rest, "/")
			}
		}
	}
	return ""
}

// IsPlaylistURL reports whether raw points at a YouTube playlist.
func IsPlaylistURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Query().Get("list") != "" && u.Query().Get("v") == ""
}

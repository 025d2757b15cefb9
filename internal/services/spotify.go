// Spotify Web API track listings via zmb3/spotify
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyKind is the resource type named by a Spotify URL.
type SpotifyKind string

const (
	SpotifyPlaylist SpotifyKind = "playlist"
	SpotifyAlbum    SpotifyKind = "album"
	SpotifyTrackRef SpotifyKind = "track"
)

// SpotifyService lists tracks of public playlists and albums using app-only (client credentials) auth.
type SpotifyService struct {
	clientID     string
	clientSecret string
	client       *spotify.Client
	logger       *log.Logger
}

// NewSpotifyService validates credentials. Call [SpotifyService.Authenticate] before fetching.
func NewSpotifyService(cfg shared.SpotifyConfig, logger *log.Logger) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifyService{clientID: cfg.ClientID, clientSecret: cfg.ClientSecret, logger: logger}, nil
}

// NewSpotifyServiceWithClient wraps an already authenticated client.
func NewSpotifyServiceWithClient(client *spotify.Client, logger *log.Logger) *SpotifyService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifyService{client: client, logger: logger}
}

func (s *SpotifyService) Name() string { return "Spotify" }

// Authenticate exchanges the client credentials for an app token.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	if s.client != nil {
		return nil
	}

	config := &clientcredentials.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	s.client = spotify.New(httpClient)
	return nil
}

// Tracks dispatches on the URL kind and returns the listing's tracks in order.
func (s *SpotifyService) Tracks(ctx context.Context, raw string) ([]SpotifyTrack, string, error) {
	kind, id, err := ParseSpotifyURL(raw)
	if err != nil {
		return nil, "", err
	}

	switch kind {
	case SpotifyPlaylist:
		return s.PlaylistTracks(ctx, id)
	case SpotifyAlbum:
		return s.AlbumTracks(ctx, id)
	case SpotifyTrackRef:
		track, err := s.Track(ctx, id)
		if err != nil {
			return nil, "", err
		}
		return []SpotifyTrack{*track}, track.Name, nil
	default:
		return nil, "", fmt.Errorf("%w: unsupported spotify resource %q", shared.ErrInvalidInput, kind)
	}
}

// PlaylistTracks follows paging until the playlist is exhausted. Returns the tracks and the playlist name.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, id string) ([]SpotifyTrack, string, error) {
	if err := s.ensureClient(); err != nil {
		return nil, "", err
	}

	playlist, err := s.client.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", shared.ErrPlaylistNotFound, id, err)
	}
	s.logger.Debug("fetched spotify playlist", "name", playlist.Name, "total", playlist.Tracks.Total)

	page := &playlist.Tracks
	var tracks []SpotifyTrack
	for {
		for _, item := range page.Tracks {
			if t, ok := fromFullTrack(item.Track); ok {
				tracks = append(tracks, t)
			}
		}

		err := s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to page playlist %s: %w", id, err)
		}
	}

	return tracks, playlist.Name, nil
}

// AlbumTracks follows paging until the album is exhausted. Returns the tracks and the album name.
func (s *SpotifyService) AlbumTracks(ctx context.Context, id string) ([]SpotifyTrack, string, error) {
	if err := s.ensureClient(); err != nil {
		return nil, "", err
	}

	album, err := s.client.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, "", fmt.Errorf("%w: album %s: %v", shared.ErrPlaylistNotFound, id, err)
	}

	page := &album.Tracks
	var tracks []SpotifyTrack
	for {
		for _, item := range page.Tracks {
			if item.Name == "" {
				continue
			}
			tracks = append(tracks, SpotifyTrack{Name: item.Name, Artist: firstArtist(item.Artists), Album: album.Name})
		}

		err := s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to page album %s: %w", id, err)
		}
	}

	return tracks, album.Name, nil
}

// Track fetches a single track.
func (s *SpotifyService) Track(ctx context.Context, id string) (*SpotifyTrack, error) {
	if err := s.ensureClient(); err != nil {
		return nil, err
	}

	full, err := s.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track %s: %w", id, err)
	}
	t, ok := fromFullTrack(*full)
	if !ok {
		return nil, fmt.Errorf("%w: track %s has no name", shared.ErrInvalidInput, id)
	}
	return &t, nil
}

func (s *SpotifyService) ensureClient() error {
	if s.client == nil {
		return fmt.Errorf("%w: spotify client not authenticated", shared.ErrServiceUnavailable)
	}
	return nil
}

func fromFullTrack(t spotify.FullTrack) (SpotifyTrack, bool) {
	if t.Name == "" {
		return SpotifyTrack{}, false
	}
	return SpotifyTrack{Name: t.Name, Artist: firstArtist(t.Artists), Album: t.Album.Name}, true
}

func firstArtist(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

// ParseSpotifyURL accepts open.spotify.com links (with or without locale prefix) and spotify: URIs.
func ParseSpotifyURL(raw string) (SpotifyKind, string, error) {
	raw = strings.TrimSpace(raw)

	if rest, ok := strings.CutPrefix(raw, "spotify:"); ok {
		kind, id, found := strings.Cut(rest, ":")
		if !found || id == "" {
			return "", "", fmt.Errorf("%w: malformed spotify URI %q", shared.ErrInvalidInput, raw)
		}
		return validKind(SpotifyKind(kind), id, raw)
	}

	u, err := url.Parse(raw)
	if err != nil || !strings.HasSuffix(strings.ToLower(u.Host), "spotify.com") {
		return "", "", fmt.Errorf("%w: not a spotify URL %q", shared.ErrInvalidInput, raw)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("%w: spotify URL without resource id %q", shared.ErrInvalidInput, raw)
	}
	return validKind(SpotifyKind(parts[0]), parts[1], raw)
}

func validKind(kind SpotifyKind, id, raw string) (SpotifyKind, string, error) {
	switch kind {
	case SpotifyPlaylist, SpotifyAlbum, SpotifyTrackRef:
		return kind, id, nil
	default:
		return "", "", fmt.Errorf("%w: unsupported spotify resource %q in %q", shared.ErrInvalidInput, kind, raw)
	}
}

// IsSpotifyURL reports whether raw looks like a Spotify link or URI.
func IsSpotifyURL(raw string) bool {
	_, _, err := ParseSpotifyURL(raw)
	return err == nil
}

// Package services wraps the external collaborators of a download run behind small interfaces.
//
// # Boundaries
//
// [Searcher], [Downloader] and [PlaylistExtractor] are the only ways the resolver, the acquirer and the
// source adapters reach the network. Tests substitute in-memory doubles for all three.
//
// # yt-dlp
//
// [YTDLPService] implements all three interfaces on top of go-ytdlp. Searches use the "ytsearch1:" prefix
// and read the first entry of the flat JSON dump; downloads extract audio to the requested container and
// bitrate under a caller-chosen filename stem. Backend calls share one rate limiter and each is bounded by
// the configured timeout.
//
// # Spotify
//
// [SpotifyService] authenticates with the client-credentials flow and lists the tracks of a playlist,
// album or single track URL.
//
// # Errors
//
// Failures wrap typed errors from the shared package:
//   - [shared.ErrServiceUnavailable] : the yt-dlp executable could not be found or installed
//   - [shared.ErrMissingCredentials] : Spotify client id or secret is empty
//   - [shared.ErrInvalidCredentials] : Spotify rejected the client credentials
//   - [shared.ErrPlaylistNotFound] : the playlist, album or track does not exist
package services

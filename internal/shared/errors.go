package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Acquisition errors
	ErrSourceRead      = fmt.Errorf("track source unreadable")
	ErrNoResult        = fmt.Errorf("no search result")
	ErrDownload        = fmt.Errorf("download failed")
	ErrArtifactMissing = fmt.Errorf("download artifact missing")
	ErrTagWrite        = fmt.Errorf("tag write failed")
	ErrFilesystem      = fmt.Errorf("filesystem operation failed")

	// Input validation errors
	ErrEmptyTitle      = fmt.Errorf("track title is empty")
	ErrInvalidQuality  = fmt.Errorf("invalid audio quality")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

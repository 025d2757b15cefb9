package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/lrstanley/go-ytdlp"
)

func newTestYTDLP(t *testing.T, run runFunc) *YTDLPService {
	t.Helper()
	svc := NewYTDLPService(YTDLPOpts{
		Timeout: time.Second,
		Logger:  shared.NewLogger(&bytes.Buffer{}),
	})
	svc.run = run
	return svc
}

func TestYTDLPService(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		t.Run("returns top hit", func(t *testing.T) {
			var gotArgs []string
			svc := newTestYTDLP(t, func(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
				gotArgs = args
				return `{"_type":"playlist","entries":[{"id":"abc123","title":"First"},{"id":"def456","title":"Second"}]}`, nil
			})

			got, err := svc.Search(context.Background(), "Daft Punk Harder Better Faster Stronger")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != "https://www.youtube.com/watch?v=abc123" {
				t.Errorf("unexpected hit %q", got)
			}
			if len(gotArgs) != 1 || gotArgs[0] != "ytsearch1:Daft Punk Harder Better Faster Stronger" {
				t.Errorf("unexpected args %v", gotArgs)
			}
		})

		t.Run("empty results", func(t *testing.T) {
			svc := newTestYTDLP(t, func(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
				return `{"_type":"playlist","entries":[]}`, nil
			})

			got, err := svc.Search(context.Background(), "nothing here")
			if err != nil || got != "" {
				t.Errorf("expected empty result, got %q, %v", got, err)
			}
		})

		t.Run("blank query skips backend", func(t *testing.T) {
			called := false
			svc := newTestYTDLP(t, func(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
				called = true
				return "", nil
			})

			if got, err := svc.Search(context.Background(), "  "); got != "" || err != nil {
				t.Errorf("expected empty result, got %q, %v", got, err)
			}
			if called {
				t.Error("backend should not run for a blank query")
			}
		})

		t.Run("backend error", func(t *testing.T) {
			svc := newTestYTDLP(t, func(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
				return "", errors.New("exit status 1")
			})

			if _, err := svc.Search(context.Background(), "q"); err == nil {
				t.Error("expected error")
			}
		})

		t.Run("timeout", func(t *testing.T) {
			svc := newTestYTDLP(t, func(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			})
			svc.timeout = 10 * time.Millisecond

			_, err := svc.Search(context.Background(), "slow")
			if !errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected ErrTimeout, got %v", err)
			}
		})
	})

	t.Run("Download", func(t *testing.T) {
		var gotArgs []string
		svc := newTestYTDLP(t, func(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
			gotArgs = args
			return "", nil
		})

		err := svc.Download(context.Background(), "https://www.youtube.com/watch?v=abc", "/tmp/out/temp_Song", DownloadOptions{Quality: models.Quality("320")})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(gotArgs) != 1 || gotArgs[0] != "https://www.youtube.com/watch?v=abc" {
			t.Errorf("unexpected args %v", gotArgs)
		}

		svc.run = func(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
			return "", errors.New("ffmpeg missing")
		}
		if err := svc.Download(context.Background(), "u", "stem", DownloadOptions{}); err == nil {
			t.Error("expected download error")
		}
	})

	t.Run("ExtractPlaylist", func(t *testing.T) {
		svc := newTestYTDLP(t, func(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
			return `{"_type":"playlist","title":"Mix","entries":[
				{"id":"a1","title":"ACME - Midnight","url":"https://www.youtube.com/watch?v=a1"},
				{"id":"","title":"deleted video","url":""},
				{"id":"b2","title":"Interlude"}
			]}`, nil
		})

		entries, err := svc.ExtractPlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
		}
		if entries[0].Title != "ACME - Midnight" || entries[0].URL != "https://www.youtube.com/watch?v=a1" {
			t.Errorf("unexpected first entry %+v", entries[0])
		}
		if entries[1].URL != "https://www.youtube.com/watch?v=b2" {
			t.Errorf("expected watch URL built from id, got %q", entries[1].URL)
		}
	})
}

func TestParseFlatResult(t *testing.T) {
	t.Run("single video document", func(t *testing.T) {
		res, err := parseFlatResult(`{"_type":"video","id":"xyz","webpage_url":"https://www.youtube.com/watch?v=xyz"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.topHit() != "https://www.youtube.com/watch?v=xyz" {
			t.Errorf("unexpected hit %q", res.topHit())
		}
	})

	t.Run("empty output", func(t *testing.T) {
		res, err := parseFlatResult("  \n")
		if err != nil || res.topHit() != "" {
			t.Errorf("expected empty result, got %v, %v", res, err)
		}
	})

	t.Run("garbage output", func(t *testing.T) {
		if _, err := parseFlatResult("ERROR: something"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("trailing document wins", func(t *testing.T) {
		res, err := parseFlatResult("WARNING: noise\n{\"entries\":[{\"id\":\"last\"}]}")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.topHit() != "https://www.youtube.com/watch?v=last" {
			t.Errorf("unexpected hit %q", res.topHit())
		}
	})
}

func TestURLHelpers(t *testing.T) {
	t.Run("outputTemplate", func(t *testing.T) {
		if got := outputTemplate("/out/temp_100% Pure"); got != "/out/temp_100%% Pure.%(ext)s" {
			t.Errorf("unexpected template %q", got)
		}
	})

	t.Run("ParseVideoID", func(t *testing.T) {
		tc := map[string]string{
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ":         "dQw4w9WgXcQ",
			"https://music.youtube.com/watch?v=abc&list=RD":       "abc",
			"https://youtu.be/xyz987":                             "xyz987",
			"https://www.youtube.com/shorts/short1":               "short1",
			"https://example.com/watch?v=nope":                    "",
			"not a url":                                           "",
		}
		for in, want := range tc {
			if got := ParseVideoID(in); got != want {
				t.Errorf("ParseVideoID(%q) = %q, want %q", in, got, want)
			}
		}
	})

	t.Run("IsPlaylistURL", func(t *testing.T) {
		if !IsPlaylistURL("https://www.youtube.com/playlist?list=PL123") {
			t.Error("expected playlist URL")
		}
		if IsPlaylistURL("https://www.youtube.com/watch?v=abc&list=PL123") {
			t.Error("watch URLs inside a playlist are single videos")
		}
		if IsPlaylistURL("Daft Punk - One More Time") {
			t.Error("free text is not a playlist")
		}
	})
}

package models

import (
	"errors"
	"testing"

	"github.com/desertthunder/songdl/internal/shared"
)

func TestTrack(t *testing.T) {
	t.Run("NewTrack trims fields", func(t *testing.T) {
		tr, err := NewTrack("  Midnight ", " ACME  ", " Demo ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tr.Title() != "Midnight" || tr.Artist() != "ACME" || tr.Album() != "Demo" {
			t.Errorf("unexpected track fields: %q %q %q", tr.Title(), tr.Artist(), tr.Album())
		}
		if tr.IsPreResolved() {
			t.Error("new track should not be pre-resolved")
		}
	})

	t.Run("NewTrack rejects empty title", func(t *testing.T) {
		for _, title := range []string{"", "   ", "\t"} {
			if _, err := NewTrack(title, "Artist", ""); !errors.Is(err, shared.ErrEmptyTitle) {
				t.Errorf("NewTrack(%q) error = %v, want ErrEmptyTitle", title, err)
			}
		}
	})

	t.Run("WithMedia returns a copy", func(t *testing.T) {
		tr, _ := NewTrack("Song", "", "")
		resolved := tr.WithMedia(" https://www.youtube.com/watch?v=abc ")

		if tr.IsPreResolved() {
			t.Error("original track must not change")
		}
		if resolved.Media() != "https://www.youtube.com/watch?v=abc" {
			t.Errorf("unexpected media %q", resolved.Media())
		}
	})

	t.Run("String and Filename", func(t *testing.T) {
		tc := []struct {
			title, artist string
			str, file     string
		}{
			{"One More Time", "Daft Punk", "Daft Punk - One More Time", "Daft Punk - One More Time"},
			{"Intro", "", "Intro", "Intro"},
			{"What?", "AC/DC", "AC/DC - What?", "AC_DC - What"},
		}

		for _, tt := range tc {
			tr, err := NewTrack(tt.title, tt.artist, "")
			if err != nil {
				t.Fatalf("NewTrack failed: %v", err)
			}
			if tr.String() != tt.str {
				t.Errorf("String() = %q, want %q", tr.String(), tt.str)
			}
			if tr.Filename() != tt.file {
				t.Errorf("Filename() = %q, want %q", tr.Filename(), tt.file)
			}
		}
	})
}

func TestEnums(t *testing.T) {
	t.Run("Tier round trip", func(t *testing.T) {
		for tier := TierPreResolved; tier <= TierCached; tier++ {
			got, err := ParseTier(tier.String())
			if err != nil || got != tier {
				t.Errorf("ParseTier(%q) = %v, %v", tier.String(), got, err)
			}
		}
		if _, err := ParseTier("bogus"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Outcome round trip", func(t *testing.T) {
		for o := Downloaded; o <= Failed; o++ {
			got, err := ParseOutcome(o.String())
			if err != nil || got != o {
				t.Errorf("ParseOutcome(%q) = %v, %v", o.String(), got, err)
			}
		}
		if _, err := ParseOutcome("maybe"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Outcome strings", func(t *testing.T) {
		want := map[Outcome]string{
			Downloaded:      "downloaded",
			SkippedExisting: "skipped_existing",
			SkippedNoResult: "skipped_no_result",
			Failed:          "failed",
		}
		for o, s := range want {
			if o.String() != s {
				t.Errorf("%d.String() = %q, want %q", o, o.String(), s)
			}
		}
	})

	t.Run("Networked", func(t *testing.T) {
		if (AcquisitionResult{Outcome: SkippedExisting}).Networked() {
			t.Error("existing files never touch the network")
		}
		if !(AcquisitionResult{Outcome: SkippedNoResult}).Networked() {
			t.Error("no-result outcomes come from search calls")
		}
	})
}

func TestQuality(t *testing.T) {
	tc := []struct {
		in      string
		want    Quality
		arg     string
		wantErr bool
	}{
		{in: "320", want: "320", arg: "320K"},
		{in: "128", want: "128", arg: "128K"},
		{in: " BEST ", want: QualityBest, arg: "0"},
		{in: "96", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			q, err := ParseQuality(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidQuality) {
					t.Errorf("expected ErrInvalidQuality, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q != tt.want || q.Arg() != tt.arg {
				t.Errorf("ParseQuality(%q) = %q (%q), want %q (%q)", tt.in, q, q.Arg(), tt.want, tt.arg)
			}
		})
	}
}

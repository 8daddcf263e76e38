package shared

import (
	"testing"
	"time"
)

func TestNormalizeTrackKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{
			name:   "basic normalization",
			title:  "Song Title",
			artist: "Artist Name",
			want:   "song title|artist name",
		},
		{
			name:   "extra whitespace",
			title:  "  Song   Title  ",
			artist: "  Artist   Name  ",
			want:   "song title|artist name",
		},
		{
			name:   "mixed case",
			title:  "SoNg TiTlE",
			artist: "ArTiSt NaMe",
			want:   "song title|artist name",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrackKey(tt.title, tt.artist)
			if got != tt.want {
				t.Errorf("normalizeTrackKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if a == "" || b == "" {
		t.Error("expected non-empty state tokens")
	}
	if a == b {
		t.Error("expected distinct state tokens")
	}
}

func TestHumanDelay(t *testing.T) {
	t.Run("Within Bounds", func(t *testing.T) {
		min, max := 100*time.Millisecond, 300*time.Millisecond
		for i := 0; i < 100; i++ {
			d := HumanDelay(min, max)
			if d < min || d >= max {
				t.Fatalf("delay %v outside [%v, %v)", d, min, max)
			}
		}
	})

	t.Run("Degenerate Range", func(t *testing.T) {
		if d := HumanDelay(time.Second, time.Second); d != time.Second {
			t.Errorf("expected min for empty range, got %v", d)
		}
	})
}

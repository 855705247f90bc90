package model

import "testing"

func TestIsAllowedMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		want      bool
	}{
		{MediaTypePNG, true},
		{MediaTypeJPEG, true},
		{MediaTypeWebP, true},
		{"image/gif", false},
		{"image/tiff", false},
		{"IMAGE/PNG", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			if got := IsAllowedMediaType(tt.mediaType); got != tt.want {
				t.Errorf("IsAllowedMediaType(%q) = %v, want %v", tt.mediaType, got, tt.want)
			}
		})
	}
}

func TestPackByID(t *testing.T) {
	pack, ok := PackByID("pack_starter")
	if !ok {
		t.Fatal("pack_starter missing from catalog")
	}
	if pack.Credits != 25 {
		t.Errorf("pack_starter credits = %d, want 25", pack.Credits)
	}

	if _, ok := PackByID("pack_unknown"); ok {
		t.Error("unknown pack id resolved")
	}

	for id, pack := range CreditPacks {
		if pack.ID != id {
			t.Errorf("pack %q has mismatched ID %q", id, pack.ID)
		}
		if pack.Credits <= 0 {
			t.Errorf("pack %q grants %d credits", id, pack.Credits)
		}
	}
}

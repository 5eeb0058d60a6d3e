package gitsource

import (
	"path/filepath"
	"testing"
)

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "https with .git",
			url:  "https://github.com/alice/decks.git",
			want: filepath.Join("repos", "github.com", "alice", "decks"),
		},
		{
			name: "https without .git",
			url:  "https://gitlab.com/bob/cards",
			want: filepath.Join("repos", "gitlab.com", "bob", "cards"),
		},
		{
			name: "scp-like ssh",
			url:  "git@github.com:alice/decks.git",
			want: filepath.Join("repos", "github.com", "alice", "decks"),
		},
		{
			name:    "bare path",
			url:     "just-a-name",
			wantErr: true,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalPath("repos", tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("LocalPath(%q) = %q, want error", tt.url, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("LocalPath(%q): %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("LocalPath(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

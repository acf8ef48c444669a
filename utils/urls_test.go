package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"empty", "https://www.newsbreak.com/", "", ""},
		{"blank", "https://www.newsbreak.com/", "   ", ""},
		{"absolute", "https://www.newsbreak.com/", "https://ex.com/a", "https://ex.com/a"},
		{"root relative", "https://www.newsbreak.com/news/1", "/go?id=7", "https://www.newsbreak.com/go?id=7"},
		{"relative", "https://cdn.example.com/ads/frame.html", "img/a.png", "https://cdn.example.com/ads/img/a.png"},
		{"scheme relative", "https://www.newsbreak.com/", "//cdn.example.com/x.jpg", "https://cdn.example.com/x.jpg"},
		{"trimmed", "https://www.newsbreak.com/", " /a ", "https://www.newsbreak.com/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveURL(tt.base, tt.ref))
		})
	}
}

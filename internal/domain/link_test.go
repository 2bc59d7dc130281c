package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainOf(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain host", "https://example.com/x", "example.com"},
		{"upper-case host with www", "https://WWW.Example.com/x", "example.com"},
		{"leading www stripped once", "https://www.www.example.com", "www.example.com"},
		{"youtube watch url", "https://youtube.com/watch?v=abc", "youtube.com"},
		{"port is not part of the domain", "https://habr.com:8080/post/1", "habr.com"},
		{"unparseable url", "https://%zz^", UnknownDomain},
		{"no host", "https://", UnknownDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DomainOf(tt.url))
		})
	}
}

func TestIsVideoURL(t *testing.T) {
	assert.True(t, IsVideoURL("https://youtube.com/watch?v=abc"))
	assert.True(t, IsVideoURL("https://youtu.be/abc"))
	assert.True(t, IsVideoURL("https://www.youtube.com/shorts/x"))
	assert.False(t, IsVideoURL("https://vimeo.com/12345"))
	assert.False(t, IsVideoURL("https://habr.com/post/1"))
}

package images

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/autowriter/internal/models"
)

type fakePutter struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.keys = append(f.keys, aws.ToString(in.Key))
	f.bodies = append(f.bodies, b)
	return &s3.PutObjectOutput{}, nil
}

func newUnsplashServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/photos":
			assert.Equal(t, "Client-ID key", r.Header.Get("Authorization"))
			assert.Equal(t, "go tips", r.URL.Query().Get("query"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
		case "/photo.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFindOrCreateImage(t *testing.T) {
	srv := newUnsplashServer(t, `{"results":[
		{"id":"a","alt_description":"","description":"","urls":{"regular":""}},
		{"id":"b","alt_description":"a gopher","urls":{"regular":"https://img/b.jpg"}}
	]}`)
	p := NewUnsplashProvider("key", srv.URL, nil)

	img, err := p.FindOrCreateImage(context.Background(), "go tips")
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "https://img/b.jpg", img.URL)
	assert.Equal(t, "a gopher", img.Alt)
}

func TestFindOrCreateImageNoResults(t *testing.T) {
	srv := newUnsplashServer(t, `{"results":[]}`)
	p := NewUnsplashProvider("key", srv.URL, nil)

	img, err := p.FindOrCreateImage(context.Background(), "go tips")
	require.NoError(t, err)
	assert.Nil(t, img)
}

func TestFindOrCreateImagesAltFallsBackToKeyword(t *testing.T) {
	srv := newUnsplashServer(t, `{"results":[{"id":"c","urls":{"regular":"https://img/c.jpg"}}]}`)
	p := NewUnsplashProvider("key", srv.URL, nil)

	imgs, err := p.FindOrCreateImages(context.Background(), "go tips", 3)
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Equal(t, "go tips", imgs[0].Alt)
}

func TestFindOrCreateImageProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	p := NewUnsplashProvider("key", srv.URL, nil)

	_, err := p.FindOrCreateImage(context.Background(), "go tips")
	var perr *models.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "unsplash", perr.Provider)
}

func TestFindOrCreateImageMirrors(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/photos":
			_, _ = io.WriteString(w, `{"results":[{"id":"p1","alt_description":"alt","urls":{"regular":"`+srv.URL+`/photo.png"}}]}`)
		case "/photo.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png-bytes"))
		}
	}))
	defer srv.Close()

	putter := &fakePutter{}
	mirror := NewR2Mirror(putter, R2Config{Bucket: "b", PublicURL: "https://cdn.example.com/"})
	p := NewUnsplashProvider("key", srv.URL, mirror)

	img, err := p.FindOrCreateImage(context.Background(), "go tips")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/images/p1.png", img.URL)
	require.Len(t, putter.keys, 1)
	assert.Equal(t, "images/p1.png", putter.keys[0])
	assert.Equal(t, []byte("png-bytes"), putter.bodies[0])
}

func TestFindOrCreateImageMirrorFailureHotlinks(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/photos":
			_, _ = io.WriteString(w, `{"results":[{"id":"p1","alt_description":"alt","urls":{"regular":"`+srv.URL+`/photo.png"}}]}`)
		case "/photo.png":
			_, _ = w.Write([]byte("png-bytes"))
		}
	}))
	defer srv.Close()

	mirror := NewR2Mirror(&fakePutter{err: errors.New("denied")}, R2Config{Bucket: "b", PublicURL: "https://cdn"})
	p := NewUnsplashProvider("key", srv.URL, mirror)

	img, err := p.FindOrCreateImage(context.Background(), "go tips")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(img.URL, "/photo.png"))
}

func TestEmbed(t *testing.T) {
	content := "## One\n\ntext\n\n## Two\n\nmore"
	imgs := []models.Image{{URL: "u1", Alt: "first [x]"}, {URL: "u2", Alt: "second"}}

	got := Embed(content, imgs)
	assert.Equal(t, "## One\n\ntext\n\n![first x](u1)\n\n## Two\n\nmore\n\n![second](u2)", got)
	assert.Equal(t, content, Embed(content, nil))
}

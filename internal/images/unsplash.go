// Package images finds illustrations for articles and optionally mirrors
// them into an R2 bucket.
package images

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/models"
)

const (
	unsplashProvider       = "unsplash"
	defaultUnsplashBaseURL = "https://api.unsplash.com"
)

// UnsplashProvider searches stock photos for a keyword
type UnsplashProvider struct {
	client    *resty.Client
	accessKey string
	baseURL   string
	mirror    *R2Mirror
	log       zerolog.Logger
}

type unsplashSearchResponse struct {
	Results []struct {
		ID             string `json:"id"`
		Description    string `json:"description"`
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// NewUnsplashProvider creates the provider. mirror may be nil, in which
// case hotlinked Unsplash URLs are returned.
func NewUnsplashProvider(accessKey, baseURL string, mirror *R2Mirror) *UnsplashProvider {
	if baseURL == "" {
		baseURL = defaultUnsplashBaseURL
	}
	return &UnsplashProvider{
		client:    resty.New().SetTimeout(20 * time.Second).SetRetryCount(1),
		accessKey: accessKey,
		baseURL:   baseURL,
		mirror:    mirror,
		log:       logger.Component("images"),
	}
}

// FindOrCreateImage returns one image for keyword, or nil when none was found
func (u *UnsplashProvider) FindOrCreateImage(ctx context.Context, keyword string) (*models.Image, error) {
	imgs, err := u.FindOrCreateImages(ctx, keyword, 1)
	if err != nil || len(imgs) == 0 {
		return nil, err
	}
	return &imgs[0], nil
}

// FindOrCreateImages returns up to n images for keyword
func (u *UnsplashProvider) FindOrCreateImages(ctx context.Context, keyword string, n int) ([]models.Image, error) {
	if n <= 0 {
		return nil, nil
	}

	var result unsplashSearchResponse
	resp, err := u.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Client-ID "+u.accessKey).
		SetHeader("Accept-Version", "v1").
		SetQueryParams(map[string]string{
			"query":       keyword,
			"per_page":    strconv.Itoa(n),
			"orientation": "landscape",
		}).
		SetResult(&result).
		Get(u.baseURL + "/search/photos")
	if err != nil {
		return nil, &models.ProviderError{Provider: unsplashProvider, Op: "search", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &models.ProviderError{
			Provider: unsplashProvider,
			Op:       "search",
			Err:      fmt.Errorf("unexpected status code %d", resp.StatusCode()),
		}
	}

	imgs := make([]models.Image, 0, len(result.Results))
	for _, r := range result.Results {
		if r.URLs.Regular == "" {
			continue
		}
		alt := r.AltDescription
		if alt == "" {
			alt = r.Description
		}
		if alt == "" {
			alt = keyword
		}
		img := models.Image{URL: r.URLs.Regular, Alt: alt}

		if u.mirror != nil {
			mirrored, mirrorErr := u.mirror.Mirror(ctx, r.ID, r.URLs.Regular)
			if mirrorErr != nil {
				u.log.Warn().Err(mirrorErr).Str("photo_id", r.ID).Msg("Mirroring image failed, hotlinking instead")
			} else {
				img.URL = mirrored
			}
		}
		imgs = append(imgs, img)
		if len(imgs) == n {
			break
		}
	}
	return imgs, nil
}

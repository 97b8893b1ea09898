package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher downloads keyword lists published as JSON
type Fetcher struct {
	client *resty.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(2 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second),
	}
}

// FetchKeywords retrieves a list from url. Both [{"text":..,"priority":..}]
// and a plain array of strings are accepted.
func (f *Fetcher) FetchKeywords(ctx context.Context, url string) ([]Input, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch keywords from %s: %w", url, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), url)
	}

	var items []Input
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		var texts []string
		if textErr := json.Unmarshal(resp.Body(), &texts); textErr != nil {
			return nil, fmt.Errorf("failed to parse keyword list: %w (tried objects and strings)", err)
		}
		items = make([]Input, 0, len(texts))
		for _, t := range texts {
			items = append(items, Input{Text: t})
		}
	}
	return items, nil
}

// FetchAll fetches every url concurrently. Items from failed sources are
// dropped and the first error is reported alongside whatever succeeded.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]Input, error) {
	type result struct {
		items []Input
		err   error
	}

	results := make([]result, len(urls))
	done := make(chan struct{}, len(urls))
	for i, url := range urls {
		go func(i int, u string) {
			items, err := f.FetchKeywords(ctx, u)
			results[i] = result{items: items, err: err}
			done <- struct{}{}
		}(i, url)
	}
	for range urls {
		<-done
	}

	// keep source order so priorities tie-break predictably
	var all []Input
	var errs []error
	for _, res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		all = append(all, res.items...)
	}

	if len(errs) > 0 {
		return all, fmt.Errorf("encountered %d errors while fetching keyword sources, first error: %w", len(errs), errs[0])
	}
	return all, nil
}

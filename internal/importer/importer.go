// Package importer adds keywords to a site's backlog from request bodies or
// remote JSON lists.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/store"
)

// Report summarises one import
type Report struct {
	Received   int      `json:"received"`
	Inserted   int      `json:"inserted"`
	Duplicates int      `json:"duplicates"`
	Invalid    []string `json:"invalid,omitempty"`
}

// Importer turns inputs into pending keywords
type Importer struct {
	store   *store.Store
	fetcher *Fetcher
	parser  *Parser
	newID   func() string
	now     func() time.Time
	log     zerolog.Logger
}

func New(s *store.Store) *Importer {
	return &Importer{
		store:   s,
		fetcher: NewFetcher(),
		parser:  NewParser(),
		newID:   uuid.NewString,
		now:     time.Now,
		log:     logger.Component("importer"),
	}
}

// ImportFromURLs fetches every source and imports the combined list
func (im *Importer) ImportFromURLs(ctx context.Context, siteID string, urls []string) (*Report, error) {
	items, err := im.fetcher.FetchAll(ctx, urls)
	if err != nil && len(items) == 0 {
		return nil, err
	}
	if err != nil {
		im.log.Warn().Err(err).Str("site_id", siteID).Msg("Some keyword sources failed")
	}
	return im.Import(ctx, siteID, items)
}

// Import adds items to siteID's backlog as pending keywords. Texts already
// present for the site, in any status, are counted as duplicates.
func (im *Importer) Import(ctx context.Context, siteID string, items []Input) (*Report, error) {
	start := time.Now()
	if _, err := im.store.Sites.Get(ctx, siteID); err != nil {
		return nil, fmt.Errorf("load site %s: %w", siteID, err)
	}

	report := &Report{Received: len(items)}
	parsed, errs := im.parser.Parse(items)
	for _, err := range errs {
		report.Invalid = append(report.Invalid, err.Error())
	}
	report.Duplicates = len(items) - len(errs) - len(parsed)
	if len(parsed) == 0 {
		return report, nil
	}

	hashes := make([]string, 0, len(parsed))
	for _, p := range parsed {
		hashes = append(hashes, p.Hash)
	}
	existing, err := im.store.Keywords.ExistingHashes(ctx, siteID, hashes)
	if err != nil {
		return nil, &models.PersistenceError{Op: "check existing keywords", Err: err}
	}

	now := im.now()
	fresh := make([]models.Keyword, 0, len(parsed))
	for _, p := range parsed {
		if existing[p.Hash] {
			report.Duplicates++
			continue
		}
		fresh = append(fresh, models.Keyword{
			ID:        im.newID(),
			SiteID:    siteID,
			Text:      p.Text,
			TextHash:  p.Hash,
			Status:    models.KeywordPending,
			Priority:  p.Priority,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if len(fresh) > 0 {
		inserted, err := im.store.Keywords.Insert(ctx, fresh)
		if err != nil {
			return nil, &models.PersistenceError{Op: "insert keywords", Err: err}
		}
		report.Inserted = inserted
		// rows skipped by the unique index were added concurrently
		report.Duplicates += len(fresh) - inserted
	}

	im.log.Info().
		Str("site_id", siteID).
		Int("received", report.Received).
		Int("inserted", report.Inserted).
		Int("duplicates", report.Duplicates).
		Int("invalid", len(report.Invalid)).
		Dur("took", time.Since(start)).
		Msg("Keyword import finished")
	return report, nil
}

package bulk

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/store"
)

// Request asks for Count articles from one site, optionally restricted to
// specific keywords
type Request struct {
	SiteID     string   `json:"site_id" validate:"required"`
	Count      int      `json:"count" validate:"min=1,max=500"`
	KeywordIDs []string `json:"keyword_ids,omitempty" validate:"max=500"`
}

// Plan is the output of Prepare
type Plan struct {
	Tasks  []models.BulkTask `json:"tasks"`
	Errors []string          `json:"errors"`
	Total  int               `json:"total"`
}

// Prepare resolves requests into tasks, clamping each count to the site's
// pending backlog. It only reads from the store. Sites with nothing pending
// keep a zero-count task and add an entry to Errors.
func Prepare(ctx context.Context, s *store.Store, reqs []Request, opts models.GenerationOptions) (*Plan, error) {
	plan := &Plan{Tasks: make([]models.BulkTask, 0, len(reqs)), Errors: []string{}}

	for _, req := range reqs {
		site, err := s.Sites.Get(ctx, req.SiteID)
		if errors.Is(err, models.ErrNotFound) {
			plan.Errors = append(plan.Errors, fmt.Sprintf("site %s not found", req.SiteID))
			continue
		}
		if err != nil {
			return nil, &models.PersistenceError{Op: "load site", Err: err}
		}

		available, err := s.Keywords.CountPending(ctx, store.KeywordFilter{SiteID: site.ID, IDs: req.KeywordIDs})
		if err != nil {
			return nil, &models.PersistenceError{Op: "count pending keywords", Err: err}
		}

		task := models.BulkTask{
			SiteID:     site.ID,
			SiteName:   site.Name,
			Count:      min(req.Count, available),
			KeywordIDs: req.KeywordIDs,
			Options:    opts,
		}
		if task.Count <= 0 {
			task.Count = 0
			plan.Errors = append(plan.Errors, fmt.Sprintf("no more keywords for site %s", site.Name))
		}
		plan.Tasks = append(plan.Tasks, task)
		plan.Total += task.Count
	}
	return plan, nil
}

// Package pipeline turns one reserved keyword into one persisted article.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/activity"
	"github.com/bilgisen/autowriter/internal/images"
	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/selector"
	"github.com/bilgisen/autowriter/internal/store"
)

const (
	opReleaseKeyword = "release keyword"
	maxSlugAttempts  = 20
	releaseTimeout   = 10 * time.Second
)

// Generator writes the mandatory article draft
type Generator interface {
	Generate(ctx context.Context, keyword string) (*models.ArticleDraft, error)
}

// Improver rewrites a draft
type Improver interface {
	Improve(ctx context.Context, draft models.ArticleDraft, mode models.ImprovementMode) (*models.ArticleDraft, error)
}

// Illustrator finds images for a keyword
type Illustrator interface {
	FindOrCreateImages(ctx context.Context, keyword string, n int) ([]models.Image, error)
}

// Deps are the collaborators of a Pipeline. Only Generator is required.
type Deps struct {
	Generator   Generator
	Improvers   map[models.ImprovementProvider]Improver
	Illustrator Illustrator
	Activity    activity.Recorder
	NewID       func() string
	Now         func() time.Time
}

// Pipeline runs the generation steps against a store
type Pipeline struct {
	keywords    store.Keywords
	articles    store.Articles
	selector    *selector.Selector
	generator   Generator
	improvers   map[models.ImprovementProvider]Improver
	illustrator Illustrator
	activity    activity.Recorder
	newID       func() string
	now         func() time.Time
	log         zerolog.Logger
}

// Result is the outcome of GenerateOne
type Result struct {
	Success bool
	Article *models.Article
	Error   error
}

// StepResult is the outcome of RunOneStep, one unit of a bulk run
type StepResult struct {
	Success   bool   `json:"success"`
	ArticleID string `json:"article_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Keyword   string `json:"keyword,omitempty"`
	Error     error  `json:"-"`
}

// New creates a pipeline
func New(s *store.Store, deps Deps) *Pipeline {
	p := &Pipeline{
		keywords:    s.Keywords,
		articles:    s.Articles,
		generator:   deps.Generator,
		improvers:   deps.Improvers,
		illustrator: deps.Illustrator,
		activity:    deps.Activity,
		newID:       deps.NewID,
		now:         deps.Now,
		log:         logger.Component("pipeline"),
	}
	if p.improvers == nil {
		p.improvers = map[models.ImprovementProvider]Improver{}
	}
	if p.activity == nil {
		p.activity = activity.Nop{}
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.selector = selector.New(s.Keywords).WithClock(p.now)
	return p
}

// Selector returns the keyword selector the pipeline reserves with
func (p *Pipeline) Selector() *selector.Selector {
	return p.selector
}

// GenerateOne produces an article for k, which the caller must already have
// reserved. Unless the article is persisted, k is returned to pending before
// GenerateOne returns, including when a collaborator panics. Exactly one
// activity entry is recorded per call.
func (p *Pipeline) GenerateOne(ctx context.Context, siteID string, k *models.Keyword, opts models.GenerationOptions) (res Result) {
	start := p.now()
	log := p.log.With().Str("site_id", siteID).Str("keyword_id", k.ID).Logger()

	defer func() {
		p.record(ctx, siteID, k, res)
		evt := log.Info()
		if !res.Success {
			evt = log.Warn().Err(res.Error)
		}
		evt.Bool("success", res.Success).Dur("took", p.now().Sub(start)).Msg("Generation step finished")
	}()

	persisted := false
	defer func() {
		if persisted {
			return
		}
		if err := p.release(ctx, k.ID); err != nil {
			log.Error().Err(err).Msg("Keyword left in generating, manual reset required")
			res = Result{Error: &models.PersistenceError{Op: opReleaseKeyword, Err: errors.Join(err, res.Error)}}
		}
	}()

	draft, err := p.generator.Generate(ctx, k.Text)
	if err != nil {
		return Result{Error: err}
	}

	var imgs []models.Image
	if opts.WantsImage() && p.illustrator != nil {
		found, err := p.illustrator.FindOrCreateImages(ctx, k.Text, opts.ImagesPerArticle)
		if err != nil {
			log.Warn().Err(err).Msg("Illustration failed, continuing without image")
		}
		imgs = found
	}

	if opts.EnableImprovement {
		draft = p.improve(ctx, log, *draft, opts)
	}

	keywordID := k.ID
	article := models.NewArticle(p.newID(), siteID, &keywordID, *draft, opts.AutoPublish, p.now())
	if len(imgs) > 0 {
		article.ImageURL = imgs[0].URL
		article.ImageAlt = imgs[0].Alt
		article.Content = images.Embed(article.Content, imgs[1:])
	}

	if err := p.persist(ctx, article); err != nil {
		return Result{Error: err}
	}
	persisted = true
	return Result{Success: true, Article: article}
}

// RunOneStep reserves the next keyword of siteID, restricted to keywordIDs
// when non-empty, and generates it. It returns models.ErrBacklogExhausted
// in Error when nothing is left to reserve.
func (p *Pipeline) RunOneStep(ctx context.Context, siteID string, keywordIDs []string, opts models.GenerationOptions) StepResult {
	k, err := p.selector.ReserveNext(ctx, store.KeywordFilter{SiteID: siteID, IDs: keywordIDs})
	if err != nil {
		return StepResult{Error: err}
	}

	res := p.GenerateOne(ctx, siteID, k, opts)
	step := StepResult{Success: res.Success, Keyword: k.Text, Error: res.Error}
	if res.Article != nil {
		step.ArticleID = res.Article.ID
		step.Title = res.Article.Title
	}
	return step
}

func (p *Pipeline) improve(ctx context.Context, log zerolog.Logger, draft models.ArticleDraft, opts models.GenerationOptions) *models.ArticleDraft {
	imp, ok := p.improvers[opts.ImprovementModel]
	if !ok {
		log.Warn().Str("model", string(opts.ImprovementModel)).Msg("Improvement provider not configured, keeping draft")
		return &draft
	}
	improved, err := imp.Improve(ctx, draft, opts.ImprovementMode)
	if err != nil || improved == nil {
		log.Warn().Err(err).Str("model", string(opts.ImprovementModel)).Msg("Improvement failed, keeping draft")
		return &draft
	}
	improved.Slug = draft.Slug
	return improved
}

// persist stores a under the first free slug derived from a.Slug
func (p *Pipeline) persist(ctx context.Context, a *models.Article) error {
	base := a.Slug
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		if attempt > 1 {
			a.Slug = fmt.Sprintf("%s-%d", base, attempt)
		}

		taken, err := p.articles.SlugExists(ctx, a.SiteID, a.Slug)
		if err != nil {
			return &models.PersistenceError{Op: "check slug", Err: err}
		}
		if taken {
			continue
		}

		err = p.articles.CreateWithKeyword(ctx, a, a.KeywordStatusAfter())
		if errors.Is(err, models.ErrSlugTaken) {
			continue
		}
		if err != nil {
			return &models.PersistenceError{Op: "create article", Err: err}
		}
		return nil
	}
	return &models.PersistenceError{Op: "create article", Err: fmt.Errorf("%w: %s", models.ErrSlugTaken, base)}
}

// release puts a reserved keyword back to pending. It runs on a context
// detached from the caller so a timed out step still releases.
func (p *Pipeline) release(ctx context.Context, keywordID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	return p.keywords.SetStatus(ctx, keywordID, models.KeywordPending)
}

func (p *Pipeline) record(ctx context.Context, siteID string, k *models.Keyword, res Result) {
	a := models.Activity{
		SiteID:    siteID,
		CreatedAt: p.now(),
		Metadata:  map[string]any{"keyword_id": k.ID, "keyword": k.Text},
	}

	var perr *models.PersistenceError
	switch {
	case res.Success:
		a.Type = models.ActivityArticleGenerated
		a.Message = fmt.Sprintf("Generated %q", res.Article.Title)
		a.Metadata["article_id"] = res.Article.ID
		a.Metadata["status"] = string(res.Article.Status)
	case errors.As(res.Error, &perr) && perr.Op == opReleaseKeyword:
		a.Type = models.ActivityKeywordStuck
		a.Message = fmt.Sprintf("Keyword %q is stuck in generating: %v", k.Text, res.Error)
	default:
		a.Type = models.ActivityGenerationFailed
		a.Message = fmt.Sprintf("Generation failed for %q", k.Text)
		if res.Error != nil {
			a.Metadata["error"] = res.Error.Error()
		}
	}
	p.activity.Record(ctx, a)
}

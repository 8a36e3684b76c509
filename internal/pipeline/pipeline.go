package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/dossier/internal/cache"
	"github.com/ppiankov/dossier/internal/catalog"
	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/gap"
	"github.com/ppiankov/dossier/internal/ledger"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/question"
	"github.com/ppiankov/dossier/internal/score"
	"github.com/ppiankov/dossier/internal/store"
	"github.com/ppiankov/dossier/internal/util"
	"github.com/ppiankov/dossier/internal/worker"
)

// DefaultFactLoadTimeout bounds reading an application's fact history
const DefaultFactLoadTimeout = 30 * time.Second

// Options tunes a pipeline
type Options struct {
	// Floor is the confidence floor; nil means model.DefaultConfidenceFloor
	Floor *float64

	// Targets are analysed when a request names none. Empty means every artifact.
	Targets []string

	// FactLoadTimeout bounds the fact store read of one pass
	FactLoadTimeout time.Duration

	// CacheTTL is how long computed reports are kept
	CacheTTL time.Duration

	Logger *slog.Logger
}

// Pipeline orchestrates load facts, analyze, generate questions and score
type Pipeline struct {
	catalog   *catalog.Catalog
	analyzer  *gap.Analyzer
	generator *question.Generator
	scorer    *score.Scorer
	ledger    *ledger.Ledger
	store     store.Store
	runner    *extract.Runner // Optional; nil disables document extraction
	cache     cache.Cache     // Optional; nil disables report caching
	locks     *worker.KeyedMutex
	opts      Options
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a pipeline over a catalog and a store
func New(cat *catalog.Catalog, st store.Store, runner *extract.Runner, c cache.Cache, opts Options) *Pipeline {
	if opts.FactLoadTimeout <= 0 {
		opts.FactLoadTimeout = DefaultFactLoadTimeout
	}
	floor := model.DefaultConfidenceFloor
	if opts.Floor != nil {
		floor = *opts.Floor
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	logger := util.OrDiscard(opts.Logger)

	return &Pipeline{
		catalog:   cat,
		analyzer:  gap.NewAnalyzer(cat, floor),
		generator: question.NewGenerator(cat),
		scorer:    score.NewScorer(),
		ledger:    ledger.New(cat, st, st, logger),
		store:     st,
		runner:    runner,
		cache:     c,
		locks:     worker.NewKeyedMutex(),
		opts:      opts,
		now:       time.Now,
		logger:    logger,
	}
}

// Catalog returns the catalog the pipeline analyses against
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.catalog
}

// Floor returns the confidence floor in use
func (p *Pipeline) Floor() float64 {
	return p.analyzer.Floor()
}

// Ingest appends extracted facts for an application. Facts without an
// application id inherit appID; facts for another application or with a
// non-finite confidence are refused. Unknown fact ids are skipped. It returns the number of facts stored.
func (p *Pipeline) Ingest(ctx context.Context, appID string, facts []model.ExtractedFact) (int, error) {
	if strings.TrimSpace(appID) == "" {
		return 0, store.ErrEmptyApplication
	}

	accepted := make([]model.ExtractedFact, 0, len(facts))
	for i, f := range facts {
		if f.ApplicationID == "" {
			f.ApplicationID = appID
		}
		if f.ApplicationID != appID {
			return 0, fmt.Errorf("fact %d (%s) belongs to application %q, not %q", i, f.FactID, f.ApplicationID, appID)
		}
		if err := model.CheckConfidence(f.Confidence); err != nil {
			return 0, fmt.Errorf("fact %d (%s): %w", i, f.FactID, err)
		}
		if f.FromQuestionnaire() {
			return 0, fmt.Errorf("fact %d (%s): %q facts are recorded through answers", i, f.FactID, model.SourceQuestionnaire)
		}
		if p.catalog.Index(f.FactID) < 0 {
			p.logger.Warn("skipping fact not in catalog", "application", appID, "fact", f.FactID, "source", f.Source)
			continue
		}
		accepted = append(accepted, f)
	}
	if len(accepted) == 0 {
		return 0, nil
	}

	unlock := p.locks.Lock(appID)
	defer unlock()

	if err := p.store.Append(ctx, accepted...); err != nil {
		return 0, fmt.Errorf("store facts: %w", err)
	}
	p.logger.Debug("facts ingested", "application", appID, "count", len(accepted))
	return len(accepted), nil
}

// Extract runs the document through the matching extractor and ingests the
// result. A failed or timed-out extraction stores nothing and is not an error.
func (p *Pipeline) Extract(ctx context.Context, appID string, doc extract.Document) ([]model.ExtractedFact, error) {
	if p.runner == nil {
		return nil, errors.New("document extraction is not configured")
	}
	facts, err := p.runner.Run(ctx, appID, doc)
	if err != nil {
		return nil, err
	}
	if _, err := p.Ingest(ctx, appID, facts); err != nil {
		return nil, err
	}
	return facts, nil
}

// Questionnaire analyses an application from its stored facts and answers.
// Passes for the same application are serialized. If the fact store cannot
// be read in time the pass continues with no facts and the report is
// marked degraded.
func (p *Pipeline) Questionnaire(ctx context.Context, appID string, targets []string) (*model.Report, error) {
	if strings.TrimSpace(appID) == "" {
		return nil, store.ErrEmptyApplication
	}
	if len(targets) == 0 {
		targets = p.opts.Targets
	}

	unlock := p.locks.Lock(appID)
	defer unlock()

	facts, err := p.loadFacts(ctx, appID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("fact store unavailable, analysing with no facts", "application", appID, "error", err)
		report, buildErr := p.build(appID, targets, nil)
		if buildErr != nil {
			return nil, buildErr
		}
		report.Degraded = true
		report.Warnings = append(report.Warnings, fmt.Sprintf("fact store unavailable: %v", err))
		return report, nil
	}

	key := cache.ReportKey(appID, targets, p.Floor(), p.catalog.Version(), facts)
	if report, ok := p.cached(key); ok {
		p.logger.Debug("report cache hit", "application", appID)
		return report, nil
	}

	report, err := p.build(appID, targets, facts)
	if err != nil {
		return nil, err
	}
	p.remember(key, report)
	return report, nil
}

// AnalyzeSnapshot analyses a self-contained snapshot without touching the store
func (p *Pipeline) AnalyzeSnapshot(ctx context.Context, snap model.Snapshot) (*model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(snap.ApplicationID) == "" {
		return nil, store.ErrEmptyApplication
	}
	targets := snap.Targets
	if len(targets) == 0 {
		targets = p.opts.Targets
	}
	return p.build(snap.ApplicationID, targets, snap.Facts)
}

// Answer records one applicant answer
func (p *Pipeline) Answer(ctx context.Context, appID, factID, value string) (model.Answer, error) {
	return p.ledger.Record(ctx, appID, factID, value)
}

// AnswerBatch records several answers at once; nothing is stored if any is invalid
func (p *Pipeline) AnswerBatch(ctx context.Context, appID string, values map[string]string) (map[string]model.Answer, error) {
	return p.ledger.RecordBatch(ctx, appID, values)
}

// Clear withdraws an answer so the fact is asked again
func (p *Pipeline) Clear(ctx context.Context, appID, factID string) (model.Answer, error) {
	return p.ledger.Clear(ctx, appID, factID)
}

// Answers returns the applicant's current answers
func (p *Pipeline) Answers(ctx context.Context, appID string) (map[string]model.Answer, error) {
	return p.ledger.AnswersFor(ctx, appID)
}

// Applications lists applications with stored facts or answers
func (p *Pipeline) Applications(ctx context.Context) ([]string, error) {
	return p.store.Applications(ctx)
}

// loadFacts reads the fact history and the stored answers within the fact
// load timeout. Answers are merged in so an answer whose history append
// failed still counts.
func (p *Pipeline) loadFacts(ctx context.Context, appID string) ([]model.ExtractedFact, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.FactLoadTimeout)
	defer cancel()

	facts, err := p.store.Facts(ctx, appID)
	if err != nil {
		return nil, err
	}
	answers, err := p.store.GetAll(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, a := range answers {
		facts = append(facts, a.AsFact())
	}
	return facts, nil
}

// build runs analysis, generation and scoring over a fact set
func (p *Pipeline) build(appID string, targets []string, facts []model.ExtractedFact) (*model.Report, error) {
	analysis, err := p.analyzer.Analyze(appID, targets, facts)
	if err != nil {
		return nil, err
	}

	return &model.Report{
		ApplicationID: appID,
		GeneratedAt:   p.now().UTC(),
		Analysis:      *analysis,
		Questionnaire: p.generator.Generate(analysis),
		Readiness:     p.scorer.Calculate(analysis),
		FactCount:     len(facts),
	}, nil
}

func (p *Pipeline) cached(key string) (*model.Report, bool) {
	if p.cache == nil {
		return nil, false
	}
	data, ok := p.cache.Get(key)
	if !ok {
		return nil, false
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		p.logger.Warn("dropping unreadable cache entry", "error", err)
		_ = p.cache.Delete(key)
		return nil, false
	}
	return &report, true
}

func (p *Pipeline) remember(key string, report *model.Report) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		p.logger.Warn("report not cached", "error", err)
		return
	}
	if err := p.cache.Set(key, data, p.opts.CacheTTL); err != nil {
		p.logger.Warn("report not cached", "error", err)
	}
}

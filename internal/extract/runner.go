package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ppiankov/dossier/internal/catalog"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/util"
	"github.com/ppiankov/dossier/internal/worker"
)

// DefaultTimeout bounds a single extraction call when none is configured
const DefaultTimeout = 30 * time.Second

// Runner executes extractors against documents and attributes the results
// to an application. Extraction failures degrade to "nothing extracted".
type Runner struct {
	catalog  *catalog.Catalog
	resolver Resolver
	limiter  *worker.Limiter
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewRunner creates a runner. A nil limiter disables rate limiting.
func NewRunner(cat *catalog.Catalog, resolver Resolver, limiter *worker.Limiter, timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if limiter == nil {
		limiter = worker.NewLimiter(0, 0)
	}
	return &Runner{
		catalog:  cat,
		resolver: resolver,
		limiter:  limiter,
		timeout:  timeout,
		now:      time.Now,
		logger:   util.OrDiscard(logger),
	}
}

// Run extracts facts for appID from doc. Input errors (no application, no
// category, no extractor) are returned; timeouts and extractor failures are
// logged and yield zero facts.
func (r *Runner) Run(ctx context.Context, appID string, doc Document) ([]model.ExtractedFact, error) {
	if strings.TrimSpace(appID) == "" {
		return nil, errors.New("application id is required")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	ex := r.resolver.Find(doc)
	if ex == nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNoExtractor, doc.Category, doc.Format)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := r.logger.With("application", appID, "document", doc.ID, "extractor", ex.Name())

	if err := r.limiter.Wait(ctx, ex.Name()); err != nil {
		log.Warn("extraction skipped: rate limit wait aborted", "error", err)
		return nil, nil
	}

	observations, err := ex.Extract(ctx, doc, r.catalog.Facts())
	if err != nil {
		log.Warn("extraction failed, treating document as empty", "error", err)
		return nil, nil
	}
	if ctx.Err() != nil {
		log.Warn("extraction timed out, treating document as empty", "timeout", r.timeout)
		return nil, nil
	}

	facts := r.attribute(appID, doc, observations)
	log.Debug("extraction complete", "observations", len(observations), "facts", len(facts))
	return facts, nil
}

// attribute keeps the best observation per known fact and stamps it with
// the application, source and time
func (r *Runner) attribute(appID string, doc Document, observations []Observation) []model.ExtractedFact {
	recordedAt := r.now().UTC()
	best := make(map[string]Observation)
	for _, o := range observations {
		o.Value = strings.TrimSpace(o.Value)
		if o.Value == "" || r.catalog.Index(o.FactID) < 0 {
			continue
		}
		if cur, ok := best[o.FactID]; ok && cur.Confidence >= o.Confidence {
			continue
		}
		best[o.FactID] = o
	}

	facts := make([]model.ExtractedFact, 0, len(best))
	for _, def := range r.catalog.Facts() {
		o, ok := best[def.ID]
		if !ok {
			continue
		}
		confidence := o.Confidence
		if math.IsNaN(confidence) || confidence < 0 {
			confidence = 0
		} else if confidence > 1 {
			confidence = 1
		}
		facts = append(facts, model.ExtractedFact{
			ApplicationID: appID,
			FactID:        def.ID,
			Value:         o.Value,
			Confidence:    confidence,
			Source:        doc.Category,
			RecordedAt:    recordedAt,
		})
	}
	return facts
}

package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/rnp/models"
	"github.com/use-agent/rnp/retry"
)

// Tuning holds the per-stage waits and retry policies.
type Tuning struct {
	SearchInputTimeout time.Duration // default: 30s
	ResultsTimeout     time.Duration // default: 45s per attempt
	ResultTextTimeout  time.Duration // default: 30s per attempt
	ResultLinkTimeout  time.Duration // default: 30s
	DetailCardTimeout  time.Duration // default: 10s per attempt

	ResultsRetry retry.Policy // default: 2 attempts, 1s apart
	DetailRetry  retry.Policy // default: 2 attempts, 2s apart
}

// DefaultTuning returns the production waits.
func DefaultTuning() Tuning {
	return Tuning{
		SearchInputTimeout: 30 * time.Second,
		ResultsTimeout:     45 * time.Second,
		ResultTextTimeout:  30 * time.Second,
		ResultLinkTimeout:  30 * time.Second,
		DetailCardTimeout:  10 * time.Second,
		ResultsRetry:       retry.Policy{Attempts: 2, Delay: time.Second},
		DetailRetry:        retry.Policy{Attempts: 2, Delay: 2 * time.Second},
	}
}

// Normalize collapses every whitespace run to a single space and trims the
// ends. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// withRetryLog attaches a debug log line to every retry of p.
func withRetryLog(p retry.Policy, log *slog.Logger, step string) retry.Policy {
	p.Notify = func(err error, d time.Duration) {
		log.Debug("retrying wait", "step", step, "delay", d, "error", err)
	}
	return p
}

// search opens the application, submits ruc and waits until the result
// panel holds at least one populated entry.
func search(ctx context.Context, p Page, baseURL, ruc string, t Tuning, log *slog.Logger) error {
	if err := p.Navigate(ctx, baseURL); err != nil {
		return categorize(err, models.ErrCodeNavigation, "failed to open the registry site")
	}

	if err := p.WaitVisible(ctx, selSearchInput, t.SearchInputTimeout); err != nil {
		return categorize(err, models.ErrCodeNavigation, "search form did not appear")
	}
	if err := p.Fill(ctx, selSearchInput, ruc); err != nil {
		return categorize(err, models.ErrCodeNavigation, "failed to type the RUC")
	}
	if err := p.Click(ctx, selSearchButton); err != nil {
		return categorize(err, models.ErrCodeNavigation, "failed to submit the search")
	}
	log.Debug("search submitted")

	err := retry.Run(ctx, withRetryLog(t.ResultsRetry, log, "results"), func() error {
		return p.WaitPresent(ctx, selResultInfo, t.ResultsTimeout)
	})
	if err != nil {
		return categorize(err, models.ErrCodeNavigation, "search results did not appear")
	}

	// Entries can exist before the application has filled them in.
	err = retry.Run(ctx, withRetryLog(t.ResultsRetry, log, "result-text"), func() error {
		return p.WaitText(ctx, selResultInfo, t.ResultTextTimeout)
	})
	if err != nil {
		return categorize(err, models.ErrCodeNavigation, "search results did not populate")
	}
	return nil
}

// extractCodes reads the registry codes from the result panel.
func extractCodes(ctx context.Context, p Page) ([]string, error) {
	raw, err := p.Texts(ctx, selResultInfo)
	if err != nil {
		return nil, categorize(err, models.ErrCodeNavigation, "failed to read search results")
	}

	codes := make([]string, 0, len(raw))
	for _, s := range raw {
		if n := Normalize(s); n != "" {
			codes = append(codes, n)
		}
	}
	if len(codes) == 0 {
		return nil, models.NewQueryError(models.ErrCodeNotFound,
			"no registry entries found for the supplied identifier", nil)
	}
	return codes, nil
}

// openDetail follows the first result into the supplier profile and waits
// for its card.
func openDetail(ctx context.Context, p Page, t Tuning, log *slog.Logger) error {
	if err := p.WaitPresent(ctx, selResultLink, t.ResultLinkTimeout); err != nil {
		return categorize(err, models.ErrCodeNavigation, "supplier link did not appear")
	}
	if err := p.Click(ctx, selResultLink); err != nil {
		return categorize(err, models.ErrCodeNavigation, "failed to open the supplier link")
	}

	err := retry.Run(ctx, withRetryLog(t.DetailRetry, log, "detail-card"), func() error {
		return p.WaitVisible(ctx, selSupplierCard, t.DetailCardTimeout)
	})
	if err != nil {
		return models.NewQueryError(models.ErrCodeDetailLoad, "unable to load the supplier detail view", err)
	}
	return nil
}

// extractDetail resolves every card field; it never fails.
func extractDetail(ctx context.Context, p Page, table LocatorTable, log *slog.Logger) models.SupplierDetail {
	d := models.NewSupplierDetail()
	for _, f := range Fields {
		v := resolveField(ctx, p, f, table[f], log)
		switch f {
		case FieldInfoValue:
			d.InfoValue = v
		case FieldEmail:
			d.Email = v
		case FieldRegion:
			d.Region = v
		}
	}
	return d
}

// resolveField returns the trimmed text of the first locator that yields a
// non-blank value, or models.NotAvailable.
func resolveField(ctx context.Context, p Page, f Field, locs []Locator, log *slog.Logger) string {
	for _, l := range locs {
		text, found, err := p.Text(ctx, l.Selector)
		if err != nil {
			log.Debug("locator lookup failed", "field", f, "locator", l.Name, "error", err)
			continue
		}
		if !found {
			continue
		}
		if v := strings.TrimSpace(text); v != "" {
			log.Debug("field resolved", "field", f, "locator", l.Name)
			return v
		}
	}
	log.Debug("field not available", "field", f)
	return models.NotAvailable
}

// categorize wraps a stage failure into a QueryError, reporting deadline
// expiry as a timeout.
func categorize(err error, code, msg string) *models.QueryError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewQueryError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewQueryError(models.ErrCodeTimeout, "query canceled", err)
	default:
		return models.NewQueryError(code, msg, err)
	}
}

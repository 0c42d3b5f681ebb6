// Package registry queries the OECE supplier-profile application for a RUC
// and extracts its RNP registry codes and profile card fields.
//
// A query is a fixed sequence of stages run on one private browser
// session:
//
//  1. search        open the app, submit the RUC, wait for populated results
//  2. extractCodes  read and normalize the registry codes (empty = not found)
//  3. openDetail    follow the first result, wait for the profile card
//  4. extractDetail resolve each card field through its locator list
//
// The session is closed on every exit path.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/rnp/models"
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL  string
	Locators LocatorTable
	Tuning   *Tuning
	Logger   *slog.Logger
}

// Client runs registry queries. It holds no per-query state and is safe for
// concurrent use; every query launches its own session.
type Client struct {
	launcher Launcher
	baseURL  string
	locators LocatorTable
	tuning   Tuning
	log      *slog.Logger
}

// NewClient validates opts and returns a Client that opens sessions with l.
func NewClient(l Launcher, opts Options) (*Client, error) {
	if l == nil {
		return nil, fmt.Errorf("registry: launcher is required")
	}
	c := &Client{
		launcher: l,
		baseURL:  opts.BaseURL,
		locators: opts.Locators,
		tuning:   DefaultTuning(),
		log:      opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.locators == nil {
		c.locators = DefaultLocators
	}
	if err := c.locators.Validate(); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if opts.Tuning != nil {
		c.tuning = *opts.Tuning
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c, nil
}

// Query looks up ruc, which the caller has already validated as 11 digits.
// It always returns exactly one QueryResult variant and never panics.
func (c *Client) Query(ctx context.Context, ruc string) (res models.QueryResult) {
	log := c.log.With("ruc", ruc)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("registry query panicked", "panic", r)
			res = models.Failure(ruc, models.NewQueryError(models.ErrCodeInternal,
				"unexpected failure", fmt.Errorf("panic: %v", r)))
		}
	}()

	log.Info("registry query started")
	rnps, detail, err := c.run(ctx, ruc, log)
	if err != nil {
		log.Error("registry query failed",
			"code", models.CodeOf(err),
			"error", err,
			"elapsed", time.Since(start),
		)
		return models.Failure(ruc, err)
	}

	log.Info("registry query completed",
		"rnps", len(rnps),
		"elapsed", time.Since(start),
	)
	return models.Success(ruc, rnps, detail)
}

// run owns the session for the whole query.
func (c *Client) run(ctx context.Context, ruc string, log *slog.Logger) ([]string, models.SupplierDetail, error) {
	var detail models.SupplierDetail

	sess, err := c.launcher.Launch(ctx)
	if err != nil {
		return nil, detail, models.NewQueryError(models.ErrCodeBrowserLaunch, "failed to start browser session", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("failed to close browser session", "error", cerr)
		}
	}()

	if err := search(ctx, sess, c.baseURL, ruc, c.tuning, log); err != nil {
		return nil, detail, err
	}

	rnps, err := extractCodes(ctx, sess)
	if err != nil {
		return nil, detail, err
	}
	log.Debug("registry codes extracted", "rnps", rnps)

	if err := openDetail(ctx, sess, c.tuning, log); err != nil {
		return nil, detail, err
	}

	detail = extractDetail(ctx, sess, c.locators, log)
	return rnps, detail, nil
}

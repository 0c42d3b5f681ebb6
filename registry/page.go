package registry

import (
	"context"
	"time"
)

// Page is the subset of browser-page behaviour the query stages need.
// Selectors are CSS selectors. A zero timeout means "use the page's
// default per-operation timeout".
//
// Implementations: browser.Session (live Chromium via go-rod) and
// htmlpage.Page (static HTML snapshots).
type Page interface {
	// Navigate loads url and returns once its DOM content has loaded.
	Navigate(ctx context.Context, url string) error

	// WaitVisible waits until an element matching selector is visible.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// WaitPresent waits until at least one element matches selector.
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) error

	// WaitText waits until at least one element matching selector has
	// non-blank text content.
	WaitText(ctx context.Context, selector string, timeout time.Duration) error

	// Fill replaces the value of the input matching selector.
	Fill(ctx context.Context, selector, value string) error

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// Texts returns the raw text content of every element matching
	// selector, in document order. No match is not an error.
	Texts(ctx context.Context, selector string) ([]string, error)

	// Text returns the raw text content of the first element matching
	// selector without waiting. found is false when nothing matches.
	Text(ctx context.Context, selector string) (text string, found bool, err error)
}

// Session is one exclusively owned browsing context with a single page.
// Close releases every resource behind it and is safe to call more than once.
type Session interface {
	Page
	Close() error
}

// Launcher opens a fresh Session for a single query.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Session, error)

// Launch calls f(ctx).
func (f LauncherFunc) Launch(ctx context.Context) (Session, error) {
	return f(ctx)
}

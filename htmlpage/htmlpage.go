// Package htmlpage replays saved HTML snapshots of the registry
// application as a page that can be searched, clicked and read like a live
// browser tab. It powers offline replay mode and the registry tests.
//
// Waits are evaluated once against the current document: a condition that
// does not hold fails immediately with an error wrapping
// context.DeadlineExceeded, the way an expired browser wait would.
package htmlpage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// ErrClosed is returned by every operation on a closed page.
var ErrClosed = errors.New("htmlpage: page closed")

// Snapshots is a set of HTML documents keyed by absolute URL.
type Snapshots struct {
	routes map[string]string
}

// NewSnapshots returns Snapshots serving routes (absolute URL -> HTML).
func NewSnapshots(routes map[string]string) *Snapshots {
	r := make(map[string]string, len(routes))
	for k, v := range routes {
		r[k] = v
	}
	return &Snapshots{routes: r}
}

// LoadDir reads every *.html file in dir. index.html is served at baseURL;
// every file is also served at baseURL joined with its file name, so
// snapshots can link to each other with relative hrefs.
func LoadDir(dir, baseURL string) (*Snapshots, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("htmlpage: parse base url: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("htmlpage: read snapshot dir: %w", err)
	}

	routes := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".html" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("htmlpage: read %s: %w", e.Name(), err)
		}
		routes[base.ResolveReference(&url.URL{Path: e.Name()}).String()] = string(b)
		if e.Name() == "index.html" {
			routes[base.String()] = string(b)
		}
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("htmlpage: no .html snapshots in %s", dir)
	}
	return &Snapshots{routes: routes}, nil
}

// Open returns a fresh page with no document loaded.
func (s *Snapshots) Open() *Page {
	return &Page{routes: s.routes}
}

// Page is a single tab over a Snapshots set. It is safe for concurrent use
// but meant to be owned by one query.
type Page struct {
	routes map[string]string

	mu     sync.Mutex
	doc    *goquery.Document
	cur    *url.URL
	closed bool
	closes int
}

// Navigate loads the snapshot registered for rawURL.
func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usable(ctx); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("htmlpage: parse url: %w", err)
	}
	return p.load(u)
}

func (p *Page) load(u *url.URL) error {
	src, ok := p.routes[u.String()]
	if !ok {
		return fmt.Errorf("htmlpage: no snapshot for %s", u)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("htmlpage: parse %s: %w", u, err)
	}
	p.doc = doc
	p.cur = u
	return nil
}

// WaitVisible succeeds if a matching element has no hidden ancestor.
func (p *Page) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	return p.check(ctx, selector, "visible", func(s *goquery.Selection) bool {
		ok := false
		s.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			ok = visible(el)
			return !ok
		})
		return ok
	})
}

// WaitPresent succeeds if anything matches selector.
func (p *Page) WaitPresent(ctx context.Context, selector string, _ time.Duration) error {
	return p.check(ctx, selector, "present", func(s *goquery.Selection) bool {
		return s.Length() > 0
	})
}

// WaitText succeeds if some matching element has non-blank text.
func (p *Page) WaitText(ctx context.Context, selector string, _ time.Duration) error {
	return p.check(ctx, selector, "populated", func(s *goquery.Selection) bool {
		ok := false
		s.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			ok = strings.TrimSpace(el.Text()) != ""
			return !ok
		})
		return ok
	})
}

// Fill sets the value attribute of the first matching element.
func (p *Page) Fill(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.find(ctx, selector)
	if err != nil {
		return err
	}
	if s.Length() == 0 {
		return fmt.Errorf("htmlpage: fill: %q not found", selector)
	}
	s.First().SetAttr("value", value)
	return nil
}

// Value returns the value attribute of the first element matching selector.
func (p *Page) Value(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.find(context.Background(), selector)
	if err != nil {
		return ""
	}
	v, _ := s.First().Attr("value")
	return v
}

// Click follows the href of the first matching element (or of its closest
// enclosing link). Clicking anything else leaves the document unchanged.
func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.find(ctx, selector)
	if err != nil {
		return err
	}
	if s.Length() == 0 {
		return fmt.Errorf("htmlpage: click: %q not found", selector)
	}
	href, ok := s.First().Closest("a[href]").Attr("href")
	if !ok {
		return nil
	}
	next, err := p.cur.Parse(href)
	if err != nil {
		return fmt.Errorf("htmlpage: click: bad href %q: %w", href, err)
	}
	return p.load(next)
}

// Texts returns the text content of every match in document order.
func (p *Page) Texts(ctx context.Context, selector string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.find(ctx, selector)
	if err != nil {
		return nil, err
	}
	return s.Map(func(_ int, el *goquery.Selection) string {
		return el.Text()
	}), nil
}

// Text returns the text content of the first match.
func (p *Page) Text(ctx context.Context, selector string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.find(ctx, selector)
	if err != nil {
		return "", false, err
	}
	if s.Length() == 0 {
		return "", false, nil
	}
	return s.First().Text(), true, nil
}

// URL returns the address of the current document.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return ""
	}
	return p.cur.String()
}

// Close releases the document. Further operations return ErrClosed.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	p.closed = true
	p.doc = nil
	return nil
}

// Closes reports how many times Close was called.
func (p *Page) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *Page) check(ctx context.Context, selector, state string, cond func(*goquery.Selection) bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.find(ctx, selector)
	if err != nil {
		return err
	}
	if !cond(s) {
		return fmt.Errorf("htmlpage: %q not %s: %w", selector, state, context.DeadlineExceeded)
	}
	return nil
}

// find must be called with p.mu held.
func (p *Page) find(ctx context.Context, selector string) (*goquery.Selection, error) {
	if err := p.usable(ctx); err != nil {
		return nil, err
	}
	if p.doc == nil {
		return nil, errors.New("htmlpage: no document loaded")
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("htmlpage: bad selector %q: %w", selector, err)
	}
	return p.doc.FindMatcher(m), nil
}

func (p *Page) usable(ctx context.Context) error {
	if p.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// visible reports whether neither el nor any ancestor is hidden by the
// hidden attribute or an inline display/visibility style.
func visible(el *goquery.Selection) bool {
	for n := el; n.Length() > 0; n = n.Parent() {
		if _, hidden := n.Attr("hidden"); hidden {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(n.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakePage is a scripted Page. Every hook is optional; unset hooks succeed,
// Texts yields one registry code and Text finds nothing.
type fakePage struct {
	navigate    func(url string) error
	waitVisible func(sel string) error
	waitPresent func(sel string) error
	waitText    func(sel string) error
	click       func(sel string) error
	texts       func(sel string) ([]string, error)
	text        func(sel string) (string, bool, error)

	mu     sync.Mutex
	closes int
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	if p.navigate != nil {
		return p.navigate(url)
	}
	return nil
}

func (p *fakePage) WaitVisible(_ context.Context, sel string, _ time.Duration) error {
	if p.waitVisible != nil {
		return p.waitVisible(sel)
	}
	return nil
}

func (p *fakePage) WaitPresent(_ context.Context, sel string, _ time.Duration) error {
	if p.waitPresent != nil {
		return p.waitPresent(sel)
	}
	return nil
}

func (p *fakePage) WaitText(_ context.Context, sel string, _ time.Duration) error {
	if p.waitText != nil {
		return p.waitText(sel)
	}
	return nil
}

func (p *fakePage) Fill(context.Context, string, string) error { return nil }

func (p *fakePage) Click(_ context.Context, sel string) error {
	if p.click != nil {
		return p.click(sel)
	}
	return nil
}

func (p *fakePage) Texts(_ context.Context, sel string) ([]string, error) {
	if p.texts != nil {
		return p.texts(sel)
	}
	return []string{"RNP Bienes"}, nil
}

func (p *fakePage) Text(_ context.Context, sel string) (string, bool, error) {
	if p.text != nil {
		return p.text(sel)
	}
	return "", false, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

func (p *fakePage) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// fakeLauncher hands out the same page every time.
type fakeLauncher struct {
	page *fakePage
}

func (l *fakeLauncher) Launch(context.Context) (Session, error) {
	return l.page, nil
}

func newFakeClient(t *testing.T, page *fakePage) *Client {
	t.Helper()
	c, err := NewClient(&fakeLauncher{page: page}, Options{Tuning: fastTuning(), Logger: discardLogger()})
	require.NoError(t, err)
	return c
}

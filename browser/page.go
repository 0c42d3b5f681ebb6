package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const (
	// jsHasText reports whether any element matching the selector has
	// non-blank text content.
	jsHasText = `(sel) => {
		const els = document.querySelectorAll(sel);
		return els.length > 0 && Array.from(els).some(el => el.textContent.trim().length > 0);
	}`

	jsTexts = `(sel) => Array.from(document.querySelectorAll(sel)).map(el => el.textContent || '')`

	jsText = `(sel) => {
		const el = document.querySelector(sel);
		return el ? (el.textContent || '') : null;
	}`
)

// bind returns the page bound to ctx with a deadline of timeout, or of the
// session default when timeout is zero.
func (s *Session) bind(ctx context.Context, timeout time.Duration) (*rod.Page, context.CancelFunc) {
	if timeout <= 0 {
		timeout = s.timeout
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	return s.page.Context(opCtx), cancel
}

// Navigate loads url and waits for DOMContentLoaded.
func (s *Session) Navigate(ctx context.Context, url string) error {
	p, cancel := s.bind(ctx, 0)
	defer cancel()

	// Register before navigating so the event cannot be missed.
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	wait()
	if err := p.GetContext().Err(); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitVisible waits for an element matching selector to become visible.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p, cancel := s.bind(ctx, timeout)
	defer cancel()

	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait for %q visible: %w", selector, err)
	}
	return nil
}

// WaitPresent waits for at least one element matching selector.
func (s *Session) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	p, cancel := s.bind(ctx, timeout)
	defer cancel()

	if err := p.WaitElementsMoreThan(selector, 0); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// WaitText polls until some element matching selector has non-blank text.
func (s *Session) WaitText(ctx context.Context, selector string, timeout time.Duration) error {
	p, cancel := s.bind(ctx, timeout)
	defer cancel()

	if err := p.Wait(rod.Eval(jsHasText, selector)); err != nil {
		return fmt.Errorf("wait for text in %q: %w", selector, err)
	}
	return nil
}

// Fill replaces the input's current value with value.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	p, cancel := s.bind(ctx, 0)
	defer cancel()

	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("fill %q: select: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	return nil
}

// Click left-clicks the first element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	p, cancel := s.bind(ctx, 0)
	defer cancel()

	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// Texts returns the text content of every match in document order.
func (s *Session) Texts(ctx context.Context, selector string) ([]string, error) {
	p, cancel := s.bind(ctx, 0)
	defer cancel()

	res, err := p.Eval(jsTexts, selector)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", selector, err)
	}
	arr := res.Value.Arr()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.Str())
	}
	return out, nil
}

// Text returns the text content of the first match without waiting.
func (s *Session) Text(ctx context.Context, selector string) (string, bool, error) {
	p, cancel := s.bind(ctx, 0)
	defer cancel()

	res, err := p.Eval(jsText, selector)
	if err != nil {
		return "", false, fmt.Errorf("read %q: %w", selector, err)
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}

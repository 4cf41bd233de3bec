// Package browsertest provides a scriptable in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/selectbot/internal/browser"
)

const markPrefix = "mark:"

// Page is a fake tab. Elements are identified by the selector strings the
// code under test asks for; a selector is "present" when it is in Shown.
type Page struct {
	mu sync.Mutex

	URL      string
	Content  string
	Shown    map[string]bool
	Disabled map[string]bool
	Texts    map[string]string
	Jar      []*network.Cookie

	// Typed collects text sent to each selector
	Typed map[string]string
	// Calls records every operation as "op arg"
	Calls []string

	// Errors forces the named operation ("navigate", "click", ...) to fail
	Errors map[string]error

	OnNavigate func(p *Page, url string)
	OnClick    func(p *Page, selector string)
	OnEnter    func(p *Page, selector string)
	OnCheck    func(p *Page, selector string)
}

var _ browser.Page = (*Page)(nil)

func New() *Page {
	return &Page{
		Shown:    make(map[string]bool),
		Disabled: make(map[string]bool),
		Texts:    make(map[string]string),
		Typed:    make(map[string]string),
		Errors:   make(map[string]error),
	}
}

// Show marks selectors as visible. Must not be called from a hook.
func (p *Page) Show(selectors ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.show(selectors...)
}

// Hide marks selectors as gone. Must not be called from a hook.
func (p *Page) Hide(selectors ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hide(selectors...)
}

// SetVisible and Unset are the lock-free variants for use inside hooks
func (p *Page) SetVisible(selectors ...string) { p.show(selectors...) }
func (p *Page) Unset(selectors ...string)      { p.hide(selectors...) }

func (p *Page) show(selectors ...string) {
	for _, s := range selectors {
		p.Shown[s] = true
	}
}

func (p *Page) hide(selectors ...string) {
	for _, s := range selectors {
		delete(p.Shown, s)
	}
}

// Called reports whether an operation matching prefix was recorded
func (p *Page) Called(prefix string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// TypedInto returns the text typed into selector
func (p *Page) TypedInto(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Typed[selector]
}

func (p *Page) record(op, arg string) error {
	p.Calls = append(p.Calls, op+" "+arg)
	return p.Errors[op]
}

func selectorOf(target string) string {
	return strings.TrimPrefix(target, markPrefix)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("navigate", url); err != nil {
		return err
	}
	p.URL = url
	if p.OnNavigate != nil {
		p.OnNavigate(p, url)
	}
	return ctx.Err()
}

func (p *Page) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("location", ""); err != nil {
		return "", err
	}
	return p.URL, ctx.Err()
}

func (p *Page) Visible(_ context.Context, selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, "visible "+selector)
	if p.OnCheck != nil {
		p.OnCheck(p, selector)
	}
	return p.Shown[selector]
}

func (p *Page) FirstVisible(_ context.Context, selectors []string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range selectors {
		if p.OnCheck != nil {
			p.OnCheck(p, s)
		}
		if p.Shown[s] {
			return s, true
		}
	}
	return "", false
}

func (p *Page) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("wait", selector); err != nil {
		return err
	}
	if !p.Shown[selector] {
		return fmt.Errorf("timed out waiting for %s", selector)
	}
	return nil
}

func (p *Page) Mark(_ context.Context, selectors []string, enabledOnly bool) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("mark", strings.Join(selectors, "|")); err != nil {
		return "", "", err
	}
	for _, s := range selectors {
		if !p.Shown[s] || (enabledOnly && p.Disabled[s]) {
			continue
		}
		return markPrefix + s, s, nil
	}
	return "", "", fmt.Errorf("no visible element for %d selectors", len(selectors))
}

func (p *Page) Click(_ context.Context, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := selectorOf(target)
	if err := p.record("click", sel); err != nil {
		return err
	}
	if p.OnClick != nil {
		p.OnClick(p, sel)
	}
	return nil
}

func (p *Page) Type(_ context.Context, target, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := selectorOf(target)
	if err := p.record("type", sel); err != nil {
		return err
	}
	p.Typed[sel] += text
	return nil
}

func (p *Page) Clear(_ context.Context, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := selectorOf(target)
	if err := p.record("clear", sel); err != nil {
		return err
	}
	delete(p.Typed, sel)
	return nil
}

func (p *Page) PressEnter(_ context.Context, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := selectorOf(target)
	if err := p.record("enter", sel); err != nil {
		return err
	}
	if p.OnEnter != nil {
		p.OnEnter(p, sel)
	}
	return nil
}

func (p *Page) Text(_ context.Context, target string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := selectorOf(target)
	if err := p.record("text", sel); err != nil {
		return "", err
	}
	if t, ok := p.Texts[sel]; ok {
		return t, nil
	}
	return p.Typed[sel], nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("html", ""); err != nil {
		return "", err
	}
	return p.Content, ctx.Err()
}

func (p *Page) ScrollBy(_ context.Context, pixels int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record("scroll", fmt.Sprint(pixels))
}

// Sleep returns immediately
func (p *Page) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (p *Page) Cookies(context.Context) ([]*network.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("cookies", ""); err != nil {
		return nil, err
	}
	return append([]*network.Cookie(nil), p.Jar...), nil
}

func (p *Page) SetCookies(_ context.Context, cookies []*network.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("setcookies", fmt.Sprint(len(cookies))); err != nil {
		return err
	}
	p.Jar = append(p.Jar, cookies...)
	return nil
}

package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const domOpTimeout = 10 * time.Second

// ChromedpConfig controls the headless Chrome session.
type ChromedpConfig struct {
	Headless  bool
	UserAgent string
}

type chromedpSession struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromedpSession launches a Chrome browser via chromedp and returns a
// Session backed by it.
func NewChromedpSession(cfg ChromedpConfig) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	return &chromedpSession{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

func (s *chromedpSession) NewPage() (Page, error) {
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open page: %w", err)
	}
	return &chromedpPage{ctx: tabCtx, cancel: cancel}, nil
}

func (s *chromedpSession) Close() error {
	s.browserCancel()
	s.allocCancel()
	return nil
}

type chromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *chromedpPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// InstallResourceFilter intercepts every request on the page via the CDP
// fetch domain and fails those the filter rejects.
func (p *chromedpPage) InstallResourceFilter(filter ResourceFilter) error {
	if err := chromedp.Run(p.ctx, fetch.Enable()); err != nil {
		return fmt.Errorf("enable request interception: %w", err)
	}
	chromedp.ListenTarget(p.ctx, func(ev any) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(p.ctx)
			execCtx := cdp.WithExecutor(p.ctx, c.Target)
			if filter(string(paused.ResourceType)) {
				_ = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
				return
			}
			_ = fetch.ContinueRequest(paused.RequestID).Do(execCtx)
		}()
	})
	return nil
}

func (p *chromedpPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	waitCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	return chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)) == nil
}

func (p *chromedpPage) Locate(ctx context.Context, selector string) ([]Element, error) {
	nodes, err := p.queryNodes(ctx, selector, nil)
	if err != nil {
		return nil, err
	}
	return p.wrapNodes(nodes), nil
}

func (p *chromedpPage) Close() error {
	p.cancel()
	return nil
}

func (p *chromedpPage) queryNodes(ctx context.Context, selector string, scope *cdp.Node) ([]*cdp.Node, error) {
	queryCtx, cancel := context.WithTimeout(p.ctx, domOpTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if scope != nil {
		opts = append(opts, chromedp.FromNode(scope))
	}
	var nodes []*cdp.Node
	if err := chromedp.Run(queryCtx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("locate %q: %w", selector, err)
	}
	return nodes, nil
}

func (p *chromedpPage) wrapNodes(nodes []*cdp.Node) []Element {
	elements := make([]Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, &chromedpElement{page: p, node: node})
	}
	return elements
}

type chromedpElement struct {
	page *chromedpPage
	node *cdp.Node
}

func (e *chromedpElement) Text(ctx context.Context) (string, error) {
	textCtx, cancel := context.WithTimeout(e.page.ctx, domOpTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var text string
	ids := []cdp.NodeID{e.node.NodeID}
	if err := chromedp.Run(textCtx, chromedp.Text(ids, &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("element text: %w", err)
	}
	return text, nil
}

func (e *chromedpElement) Attribute(name string) (string, bool) {
	attrs := e.node.Attributes
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true
		}
	}
	return "", false
}

func (e *chromedpElement) IsVisible(ctx context.Context, timeout time.Duration) bool {
	visCtx, cancel := context.WithTimeout(e.page.ctx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	ids := []cdp.NodeID{e.node.NodeID}
	return chromedp.Run(visCtx, chromedp.WaitVisible(ids, chromedp.ByNodeID)) == nil
}

func (e *chromedpElement) Click(ctx context.Context) error {
	clickCtx, cancel := context.WithTimeout(e.page.ctx, domOpTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	ids := []cdp.NodeID{e.node.NodeID}
	if err := chromedp.Run(clickCtx, chromedp.Click(ids, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("element click: %w", err)
	}
	return nil
}

func (e *chromedpElement) Locate(ctx context.Context, selector string) ([]Element, error) {
	nodes, err := e.page.queryNodes(ctx, selector, e.node)
	if err != nil {
		return nil, err
	}
	return e.page.wrapNodes(nodes), nil
}

// forwardCancel propagates cancellation from the caller's context into a
// chromedp task context, which is not derived from it.
func forwardCancel(ctx context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"ad-collector/internal/types"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// stealthScript runs before any page script on every new document
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = { runtime: {} };
Object.defineProperty(navigator, 'platform', { get: () => 'Win32' });
`

const (
	textJS = `function() { return (this.innerText || this.textContent || '').trim(); }`

	interactableJS = `function() {
	const style = window.getComputedStyle(this);
	const visible = !!(this.offsetWidth || this.offsetHeight || this.getClientRects().length) &&
		style.visibility !== 'hidden' && style.display !== 'none';
	return visible && !this.disabled && this.getAttribute('aria-disabled') !== 'true';
}`

	receivesClickJS = `function() {
	const r = this.getBoundingClientRect();
	const hit = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
	return hit === null || hit === this || this.contains(hit);
}`

	clickJS = `function() { this.click(); }`
)

// BrowserClient launches headless Chrome sessions
type BrowserClient struct {
	config *types.Config
	logger types.Logger
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.Config, logger types.Logger) *BrowserClient {
	// Suppress chromedp debug logging
	log.SetOutput(io.Discard)

	return &BrowserClient{
		config: config,
		logger: logger,
	}
}

// Launch starts a browser and returns its first tab. The browser is bound
// to its own context so that it survives cancellation of ctx until Close.
func (b *BrowserClient) Launch(ctx context.Context) (types.Page, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), b.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	p := &BrowserPage{
		config:      b.config,
		logger:      b.logger,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}

	// The first Run allocates the browser and binds it to the context it
	// is given, so it must not carry a timeout.
	if err := chromedp.Run(tabCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	p.applyOverrides(ctx)
	return p, nil
}

func (b *BrowserClient) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range b.chromeFlags() {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// chromeFlags returns the switches applied over chromedp's defaults. Site
// isolation is turned off so that cross-origin ad frames share the page's
// renderer and expose their content document.
func (b *BrowserClient) chromeFlags() map[string]interface{} {
	flags := map[string]interface{}{
		"no-sandbox":                     true,
		"disable-dev-shm-usage":          true,
		"disable-blink-features":         "AutomationControlled",
		"exclude-switches":               "enable-automation",
		"disable-web-security":           true,
		"disable-site-isolation-trials":  true,
		"disable-features":               "VizDisplayCompositor,IsolateOrigins,site-per-process",
		"allow-running-insecure-content": true,
		"disable-plugins":                true,
		"disable-notifications":          true,
		"disable-popup-blocking":         true,
		"disable-infobars":               true,
		"lang":                           "en-US,en;q=0.9",
		"window-size":                    fmt.Sprintf("%d,%d", b.config.WindowWidth, b.config.WindowHeight),
		"user-agent":                     b.config.UserAgent,
	}

	if b.config.Headless {
		flags["headless"] = "new"
		flags["disable-gpu"] = true
		flags["enable-unsafe-swiftshader"] = true
	} else {
		flags["headless"] = false
	}

	if b.config.ExtensionDir != "" {
		flags["disable-extensions"] = false
		flags["disable-extensions-except"] = b.config.ExtensionDir
		flags["load-extension"] = b.config.ExtensionDir
	}

	if b.config.UserDataDir != "" {
		flags["user-data-dir"] = b.config.UserDataDir
	}

	return flags
}

// BrowserPage implements types.Page on a chromedp tab
type BrowserPage struct {
	config *types.Config
	logger types.Logger

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	frame types.Frame
}

type cdpElement struct {
	node *cdp.Node
}

func (e *cdpElement) TagName() string {
	return strings.ToLower(e.node.NodeName)
}

func (e *cdpElement) Attribute(name string) (string, bool) {
	return e.node.Attribute(name)
}

type cdpFrame struct {
	iframe *cdpElement
	url    string
}

func (f *cdpFrame) Root() types.Element { return f.iframe }
func (f *cdpFrame) URL() string         { return f.url }

// opContext derives an action context from the tab that is cancelled with ctx
func (p *BrowserPage) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		opCtx  context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(p.tabCtx, timeout)
	} else {
		opCtx, cancel = context.WithCancel(p.tabCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (p *BrowserPage) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := p.opContext(ctx, 0)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

// applyOverrides installs the stealth script and the geolocation and
// timezone overrides. Failures are logged and ignored.
func (p *BrowserPage) applyOverrides(ctx context.Context) {
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	}))
	if err != nil {
		p.logger.Debugf("Failed to install stealth script: %v", err)
	}

	err = p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := emulation.SetGeolocationOverride().
			WithLatitude(p.config.Latitude).
			WithLongitude(p.config.Longitude).
			WithAccuracy(100).
			Do(ctx); err != nil {
			return err
		}
		if p.config.TimezoneID == "" {
			return nil
		}
		return emulation.SetTimezoneOverride(p.config.TimezoneID).Do(ctx)
	}))
	if err != nil {
		p.logger.Debugf("Failed to apply geolocation/timezone overrides: %v", err)
	}
}

// Navigate loads url and waits for the load event
func (p *BrowserPage) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := p.opContext(ctx, p.config.Timeout)
	defer cancel()

	p.frame = nil
	if err := chromedp.Run(opCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// CurrentURL returns the URL of the top-level document
func (p *BrowserPage) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

// WaitReady waits until css matches an element of the top-level document
func (p *BrowserPage) WaitReady(ctx context.Context, css string) error {
	return p.run(ctx, chromedp.WaitReady(css, chromedp.ByQuery))
}

// QueryAll returns every element under scope matching css without waiting
func (p *BrowserPage) QueryAll(ctx context.Context, scope types.Element, css string) ([]types.Element, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if scope != nil {
		e, err := asCDP(scope)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chromedp.FromNode(e.node))
	}

	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(css, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", css, err)
	}

	elements := make([]types.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &cdpElement{node: n})
	}
	return elements, nil
}

// Query returns the first element under scope matching css
func (p *BrowserPage) Query(ctx context.Context, scope types.Element, css string) (types.Element, bool) {
	elements, err := p.QueryAll(ctx, scope, css)
	if err != nil || len(elements) == 0 {
		return nil, false
	}
	return elements[0], true
}

// Text returns the rendered text of el
func (p *BrowserPage) Text(ctx context.Context, el types.Element) (string, error) {
	var text string
	if err := p.callOn(ctx, el, textJS, &text); err != nil {
		return "", err
	}
	return text, nil
}

// Interactable reports whether el has a box, is rendered and is not disabled
func (p *BrowserPage) Interactable(ctx context.Context, el types.Element) bool {
	e, err := asCDP(el)
	if err != nil {
		return false
	}

	err = p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return false
	}

	var ok bool
	if err := p.callOn(ctx, el, interactableJS, &ok); err != nil {
		return false
	}
	return ok
}

// ScrollIntoView scrolls the page so that el is visible
func (p *BrowserPage) ScrollIntoView(ctx context.Context, el types.Element) error {
	e, err := asCDP(el)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(ctx)
	}))
}

// Click dispatches a mouse click at the centre of el
func (p *BrowserPage) Click(ctx context.Context, el types.Element) error {
	e, err := asCDP(el)
	if err != nil {
		return err
	}
	if err := p.ScrollIntoView(ctx, el); err != nil {
		return fmt.Errorf("failed to scroll to element: %w", err)
	}

	var receives bool
	if err := p.callOn(ctx, el, receivesClickJS, &receives); err != nil {
		return err
	}
	if !receives {
		return types.ErrClickIntercepted
	}

	return p.run(ctx, chromedp.MouseClickNode(e.node))
}

// ClickByScript calls el.click() in the page
func (p *BrowserPage) ClickByScript(ctx context.Context, el types.Element) error {
	return p.callOn(ctx, el, clickJS, nil)
}

// RunScript evaluates script in the top-level document
func (p *BrowserPage) RunScript(ctx context.Context, script string, res interface{}) error {
	return p.run(ctx, chromedp.Evaluate(script, res))
}

// EnterFrame scopes subsequent queries to the document of an iframe
func (p *BrowserPage) EnterFrame(ctx context.Context, el types.Element) (types.Frame, error) {
	e, err := asCDP(el)
	if err != nil {
		return nil, err
	}
	if tag := e.TagName(); tag != "iframe" && tag != "frame" {
		return nil, fmt.Errorf("%w: <%s> is not a frame", types.ErrNoFrameDocument, tag)
	}

	e.node.RLock()
	doc := e.node.ContentDocument
	e.node.RUnlock()
	if doc == nil {
		return nil, fmt.Errorf("%w: content document not available (cross-origin?)", types.ErrNoFrameDocument)
	}

	url := doc.DocumentURL
	if url == "" {
		src, _ := e.Attribute("src")
		top, _ := p.CurrentURL(ctx)
		url = ResolveURL(top, src)
	}

	p.frame = &cdpFrame{iframe: e, url: url}
	return p.frame, nil
}

// ExitToTop returns query scope to the top-level document
func (p *BrowserPage) ExitToTop(ctx context.Context) error {
	p.frame = nil
	return nil
}

// SearchText runs a text XPath through the DevTools search
func (p *BrowserPage) SearchText(ctx context.Context, text string) ([]types.Element, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(textXPath(text), &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", text, err)
	}

	elements := make([]types.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &cdpElement{node: n})
	}
	return elements, nil
}

// Ancestor walks the node tree chromedp keeps for the tab
func (p *BrowserPage) Ancestor(ctx context.Context, el types.Element, levels int) (types.Element, bool) {
	e, err := asCDP(el)
	if err != nil || levels < 1 {
		return nil, false
	}

	n := e.node
	for i := 0; i < levels; i++ {
		n.RLock()
		parent := n.Parent
		n.RUnlock()
		if parent == nil || parent.NodeType != cdp.NodeTypeElement {
			return nil, false
		}
		n = parent
	}
	return &cdpElement{node: n}, true
}

// ScrollTo scrolls the window to y
func (p *BrowserPage) ScrollTo(ctx context.Context, y int64) error {
	return p.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollTo(0, %d);", y), nil))
}

// ScrollToBottom scrolls the window to the current document height
func (p *BrowserPage) ScrollToBottom(ctx context.Context) error {
	return p.run(ctx, chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight);", nil))
}

// ScrollHeight measures the scrollable height of the document body
func (p *BrowserPage) ScrollHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := p.run(ctx, chromedp.Evaluate("document.body.scrollHeight", &height)); err != nil {
		return 0, fmt.Errorf("failed to measure scroll height: %w", err)
	}
	return height, nil
}

// Close shuts down the tab and the browser process
func (p *BrowserPage) Close() error {
	var err error
	if p.tabCtx != nil {
		err = chromedp.Cancel(p.tabCtx)
	}
	if p.tabCancel != nil {
		p.tabCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	return err
}

func (p *BrowserPage) callOn(ctx context.Context, el types.Element, function string, res interface{}) error {
	e, err := asCDP(el)
	if err != nil {
		return err
	}

	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(function, res,
			func(params *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return params.WithObjectID(obj.ObjectID)
			},
		).Do(ctx)
	}))
}

func asCDP(el types.Element) (*cdpElement, error) {
	e, ok := el.(*cdpElement)
	if !ok || e == nil {
		return nil, fmt.Errorf("element %T does not belong to a browser page", el)
	}
	return e, nil
}

package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"ad-collector/internal/types"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// StaticClient opens pages without a browser. Documents are fetched over
// HTTP and queried with goquery, so nothing rendered by JavaScript is seen.
type StaticClient struct {
	config *types.Config
	logger types.Logger
}

// NewStaticClient creates a new static client
func NewStaticClient(config *types.Config, logger types.Logger) *StaticClient {
	return &StaticClient{
		config: config,
		logger: logger,
	}
}

// Launch opens a new static page session
func (s *StaticClient) Launch(ctx context.Context) (types.Page, error) {
	return &StaticPage{
		http:   NewHTTPClient(s.config, s.logger),
		logger: s.logger,
		frames: make(map[*html.Node]*staticFrame),
	}, nil
}

// StaticPage implements types.Page over parsed HTML documents
type StaticPage struct {
	http   *HTTPClient
	logger types.Logger

	url    string
	doc    *goquery.Document
	height int64
	frames map[*html.Node]*staticFrame
}

type staticElement struct {
	sel  *goquery.Selection
	base string // URL of the document the element belongs to
}

func (e *staticElement) TagName() string {
	return strings.ToLower(goquery.NodeName(e.sel))
}

func (e *staticElement) Attribute(name string) (string, bool) {
	return e.sel.Attr(name)
}

type staticFrame struct {
	root *staticElement
}

func (f *staticFrame) Root() types.Element { return f.root }
func (f *staticFrame) URL() string         { return f.root.base }

// Navigate fetches and parses the document at url
func (p *StaticPage) Navigate(ctx context.Context, url string) error {
	fetched, err := p.http.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fetched.Body))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", fetched.URL, err)
	}

	p.url = fetched.URL
	p.doc = doc
	p.height = int64(len(fetched.Body))
	p.frames = make(map[*html.Node]*staticFrame)
	return nil
}

// CurrentURL returns the URL of the loaded document
func (p *StaticPage) CurrentURL(ctx context.Context) (string, error) {
	return p.url, nil
}

// WaitReady checks once for css; a static document never changes
func (p *StaticPage) WaitReady(ctx context.Context, css string) error {
	if p.doc == nil {
		return fmt.Errorf("no document loaded")
	}
	if p.doc.Find(css).Length() == 0 {
		return fmt.Errorf("element not found with selector: %s", css)
	}
	return nil
}

// QueryAll returns every element under scope matching css
func (p *StaticPage) QueryAll(ctx context.Context, scope types.Element, css string) ([]types.Element, error) {
	root, err := p.root(scope)
	if err != nil {
		return nil, err
	}

	var elements []types.Element
	root.sel.Find(css).Each(func(i int, s *goquery.Selection) {
		elements = append(elements, &staticElement{sel: s, base: root.base})
	})
	return elements, nil
}

// Query returns the first element under scope matching css
func (p *StaticPage) Query(ctx context.Context, scope types.Element, css string) (types.Element, bool) {
	root, err := p.root(scope)
	if err != nil {
		return nil, false
	}

	found := root.sel.Find(css).First()
	if found.Length() == 0 {
		return nil, false
	}
	return &staticElement{sel: found, base: root.base}, true
}

// Text returns the whitespace-normalized text of el
func (p *StaticPage) Text(ctx context.Context, el types.Element) (string, error) {
	e, err := asStatic(el)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

// Interactable reports whether neither el nor its ancestors are hidden or disabled
func (p *StaticPage) Interactable(ctx context.Context, el types.Element) bool {
	e, err := asStatic(el)
	if err != nil {
		return false
	}

	if _, disabled := e.sel.Attr("disabled"); disabled {
		return false
	}
	if v, _ := e.sel.Attr("aria-disabled"); v == "true" {
		return false
	}

	for s := e.sel; s.Length() > 0; s = s.Parent() {
		if _, hidden := s.Attr("hidden"); hidden {
			return false
		}
		style, _ := s.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

// ScrollIntoView is a no-op for static documents
func (p *StaticPage) ScrollIntoView(ctx context.Context, el types.Element) error {
	return nil
}

// Click follows the link of an anchor, or of the anchor enclosing el
func (p *StaticPage) Click(ctx context.Context, el types.Element) error {
	e, err := asStatic(el)
	if err != nil {
		return err
	}

	anchor := e.sel
	if e.TagName() != "a" {
		anchor = e.sel.Closest("a")
	}
	href, ok := anchor.Attr("href")
	if !ok || strings.TrimSpace(href) == "" || strings.HasPrefix(strings.TrimSpace(href), "javascript:") {
		return fmt.Errorf("%w: <%s> has no link target", types.ErrNotNavigable, e.TagName())
	}

	return p.Navigate(ctx, ResolveURL(e.base, href))
}

// ClickByScript behaves like Click since no script runs in a static document
func (p *StaticPage) ClickByScript(ctx context.Context, el types.Element) error {
	return p.Click(ctx, el)
}

// RunScript is not supported
func (p *StaticPage) RunScript(ctx context.Context, script string, res interface{}) error {
	return types.ErrScriptUnsupported
}

// EnterFrame loads the document of an iframe from its srcdoc or src attribute
func (p *StaticPage) EnterFrame(ctx context.Context, el types.Element) (types.Frame, error) {
	e, err := asStatic(el)
	if err != nil {
		return nil, err
	}
	if tag := e.TagName(); tag != "iframe" && tag != "frame" {
		return nil, fmt.Errorf("%w: <%s> is not a frame", types.ErrNoFrameDocument, tag)
	}

	node := e.sel.Get(0)
	if frame, ok := p.frames[node]; ok {
		return frame, nil
	}

	var (
		body []byte
		url  string
	)
	if srcdoc, ok := e.sel.Attr("srcdoc"); ok && srcdoc != "" {
		body, url = []byte(srcdoc), e.base
	} else {
		src, _ := e.sel.Attr("src")
		src = ResolveURL(e.base, src)
		if src == "" || strings.HasPrefix(src, "about:") {
			return nil, fmt.Errorf("%w: iframe has no source", types.ErrNoFrameDocument)
		}
		fetched, err := p.http.Get(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("failed to load frame %s: %w", src, err)
		}
		body, url = fetched.Body, fetched.URL
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse frame document: %w", err)
	}

	frame := &staticFrame{root: &staticElement{sel: doc.Selection, base: url}}
	p.frames[node] = frame
	return frame, nil
}

// ExitToTop is a no-op; static frames are addressed only through their root
func (p *StaticPage) ExitToTop(ctx context.Context) error {
	return nil
}

// SearchText evaluates a text XPath over the loaded document
func (p *StaticPage) SearchText(ctx context.Context, text string) ([]types.Element, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	nodes, err := htmlquery.QueryAll(p.doc.Get(0), textXPath(text))
	if err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", text, err)
	}

	elements := make([]types.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &staticElement{sel: p.doc.FindNodes(n), base: p.url})
	}
	return elements, nil
}

// Ancestor returns the element levels generations above el
func (p *StaticPage) Ancestor(ctx context.Context, el types.Element, levels int) (types.Element, bool) {
	e, err := asStatic(el)
	if err != nil || levels < 1 {
		return nil, false
	}

	parents := e.sel.Parents()
	if parents.Length() < levels {
		return nil, false
	}
	return &staticElement{sel: parents.Eq(levels - 1), base: e.base}, true
}

// ScrollTo is a no-op for static documents
func (p *StaticPage) ScrollTo(ctx context.Context, y int64) error {
	return nil
}

// ScrollToBottom is a no-op for static documents
func (p *StaticPage) ScrollToBottom(ctx context.Context) error {
	return nil
}

// ScrollHeight returns a value that only changes when a new document is loaded
func (p *StaticPage) ScrollHeight(ctx context.Context) (int64, error) {
	return p.height, nil
}

// Close releases the HTTP client
func (p *StaticPage) Close() error {
	p.http.Close()
	return nil
}

func (p *StaticPage) root(scope types.Element) (*staticElement, error) {
	if scope == nil {
		if p.doc == nil {
			return nil, fmt.Errorf("no document loaded")
		}
		return &staticElement{sel: p.doc.Selection, base: p.url}, nil
	}
	return asStatic(scope)
}

func asStatic(el types.Element) (*staticElement, error) {
	e, ok := el.(*staticElement)
	if !ok || e == nil {
		return nil, fmt.Errorf("element %T does not belong to a static page", el)
	}
	return e, nil
}

package types

import "context"

// Element is a handle to a node of the document currently loaded in a Page.
// Handles are only valid until the page navigates.
type Element interface {
	// TagName returns the lower-case tag name
	TagName() string

	// Attribute returns the raw value of an attribute
	Attribute(name string) (string, bool)
}

// Frame is a browsing context entered through Page.EnterFrame
type Frame interface {
	// Root is the element to scope queries to the frame's document
	Root() Element

	// URL is the document URL of the frame, used to resolve relative links
	URL() string
}

// Launcher opens a page automation session
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}

// Page defines the page automation capabilities the collector consumes.
// A nil scope means the top-level document.
type Page interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)

	// WaitReady blocks until an element matching css exists in the top-level document
	WaitReady(ctx context.Context, css string) error

	QueryAll(ctx context.Context, scope Element, css string) ([]Element, error)

	// Query returns the first element matching css, if any
	Query(ctx context.Context, scope Element, css string) (Element, bool)

	Text(ctx context.Context, el Element) (string, error)

	// Interactable reports whether the element is visible and enabled
	Interactable(ctx context.Context, el Element) bool

	ScrollIntoView(ctx context.Context, el Element) error

	// Click activates the element with a trusted input event. It returns
	// ErrClickIntercepted when another element would receive the click.
	Click(ctx context.Context, el Element) error

	// ClickByScript activates the element through its click() method
	ClickByScript(ctx context.Context, el Element) error

	RunScript(ctx context.Context, script string, res interface{}) error

	EnterFrame(ctx context.Context, el Element) (Frame, error)
	ExitToTop(ctx context.Context) error

	// SearchText returns the elements of the top-level document that own a
	// text node containing text
	SearchText(ctx context.Context, text string) ([]Element, error)

	// Ancestor returns the element levels generations above el
	Ancestor(ctx context.Context, el Element, levels int) (Element, bool)

	ScrollTo(ctx context.Context, y int64) error
	ScrollToBottom(ctx context.Context) error
	ScrollHeight(ctx context.Context) (int64, error)

	Close() error
}

// Selector is one step of a fallback chain. Text, when set, keeps only
// elements whose text contains it in any casing.
type Selector struct {
	CSS  string `yaml:"css" json:"css"`
	Text string `yaml:"text,omitempty" json:"text,omitempty"`
}

// String returns a readable form used in logs
func (s Selector) String() string {
	if s.Text == "" {
		return s.CSS
	}
	return s.CSS + ":contains(" + s.Text + ")"
}

// FieldSelectors lists the sub-element chains used to derive record fields
type FieldSelectors struct {
	Headline   []string `yaml:"headline"`
	Image      []string `yaml:"image"`
	Advertiser string   `yaml:"advertiser"`
	Tag        string   `yaml:"tag"`
	Body       string   `yaml:"body"`
	Link       string   `yaml:"link"`
}

// PopupSelectors lists the dismissal chains tried after each page load.
// Prompts are texts of permission prompts; PromptAction finds the button
// to click near such a text.
type PopupSelectors struct {
	Prompts      []string   `yaml:"prompts"`
	PromptAction []Selector `yaml:"prompt_action"`
	Notification []Selector `yaml:"notification"`
	Cookie       []Selector `yaml:"cookie"`
	Close        []Selector `yaml:"close"`
	SkipTexts    []string   `yaml:"skip_texts"`
}

// SelectorProfile is the declarative description of a site's markup
type SelectorProfile struct {
	Name         string         `yaml:"name"`
	StartURL     string         `yaml:"start_url"`
	NativeFrame  string         `yaml:"native_frame"`
	FrameMarker  string         `yaml:"frame_marker"`
	AnyFrame     string         `yaml:"any_frame"`
	ClickThrough []string       `yaml:"click_through"`
	AdContainer  []string       `yaml:"ad_container"`
	MainPage     []string       `yaml:"main_page"`
	Fields       FieldSelectors `yaml:"fields"`
	Pagination   []Selector     `yaml:"pagination"`
	Popups       PopupSelectors `yaml:"popups"`
}

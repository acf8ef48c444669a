package adapters

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"ad-collector/internal/types"

	"gopkg.in/yaml.v3"
)

// SiteAdapter describes the markup of a site the collector can harvest
type SiteAdapter interface {
	// Name returns the adapter name used on the command line
	Name() string

	// Profile returns a fresh copy of the adapter's selector profile
	Profile() *types.SelectorProfile
}

// BaseAdapter carries the generic ad markup patterns. Site adapters embed it
// and override only what differs.
type BaseAdapter struct{}

// Name returns the adapter name
func (b *BaseAdapter) Name() string {
	return "generic"
}

// Profile returns the generic selector profile
func (b *BaseAdapter) Profile() *types.SelectorProfile {
	return &types.SelectorProfile{
		Name:        b.Name(),
		StartURL:    "https://www.newsbreak.com",
		NativeFrame: "iframe.mspai-nova-native",
		FrameMarker: "mspai",
		AnyFrame:    "iframe",
		ClickThrough: []string{
			"a[class*='click-through']",
		},
		AdContainer: []string{
			".ad-card-container",
		},
		// Exact ad card class first, then looser class patterns
		MainPage: []string{
			".ad-card-container",
			"[class*='ad-card']",
			"[class*='ad-container']",
			"[class*='advertisement']",
			"[class*='sponsored']",
			"[class*='promo']",
		},
		Fields: types.FieldSelectors{
			Headline:   []string{".ad-headline", "h1, h2, h3, h4, h5, h6"},
			Image:      []string{".ad-foreground", "img"},
			Advertiser: ".ad-advertiser",
			Tag:        ".ad-tag",
			Body:       ".ad-body, p",
			Link:       "a",
		},
		Pagination: []types.Selector{
			{CSS: "a[aria-label*='next' i]"},
			{CSS: "button[aria-label*='next' i]"},
			{CSS: "a[class*='next']"},
			{CSS: "button[class*='next']"},
			{CSS: "a[class*='pagination']"},
			{CSS: "button[class*='pagination']"},
			{CSS: "a[href*='page']"},
			{CSS: "a[href*='p=']"},
			{CSS: "button", Text: "next"},
			{CSS: "a", Text: "next"},
			{CSS: "a", Text: "more"},
			{CSS: "button", Text: "more"},
		},
		Popups: types.PopupSelectors{
			Prompts: []string{
				"wants to",
				"Show notifications",
				"Allow notifications",
				"Block notifications",
				"Enable notifications",
				"Receive notifications",
			},
			PromptAction: []types.Selector{
				{CSS: "button", Text: "allow"},
			},
			Notification: []types.Selector{
				{CSS: "button[aria-label*='allow' i]"},
				{CSS: "button", Text: "allow"},
				{CSS: "button", Text: "accept"},
				{CSS: "button", Text: "ok"},
				{CSS: "button", Text: "yes"},
				{CSS: "[data-testid*='allow']"},
				{CSS: "[data-testid*='accept']"},
				{CSS: ".notification-allow"},
				{CSS: ".popup-allow"},
				{CSS: ".cookie-accept"},
				{CSS: ".consent-accept"},
			},
			Cookie: []types.Selector{
				{CSS: "button", Text: "Accept All"},
				{CSS: "button", Text: "Accept Cookies"},
				{CSS: "button", Text: "I Accept"},
				{CSS: "button", Text: "Agree"},
				{CSS: "button", Text: "Continue"},
				{CSS: ".cookie-accept-all"},
				{CSS: ".consent-accept-all"},
				{CSS: "[data-testid*='cookie-accept']"},
				{CSS: "[data-testid*='consent-accept']"},
			},
			Close: []types.Selector{
				{CSS: "button[aria-label*='close' i]"},
				{CSS: "button", Text: "×"},
				{CSS: "button", Text: "✕"},
				{CSS: "button", Text: "close"},
				{CSS: ".close-button"},
				{CSS: ".popup-close"},
				{CSS: ".modal-close"},
				{CSS: "[data-testid*='close']"},
			},
			SkipTexts: []string{"Share", "Follow", "Like", "Comment", "Reply", "Subscribe"},
		},
	}
}

var registry = map[string]func() SiteAdapter{
	"generic":   func() SiteAdapter { return &BaseAdapter{} },
	"newsbreak": func() SiteAdapter { return NewNewsBreakAdapter() },
}

// Get returns the adapter registered under name
func Get(name string) (SiteAdapter, error) {
	factory, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %s)", types.ErrUnknownAdapter, name, strings.Join(Names(), ", "))
	}
	return factory(), nil
}

// Names returns the registered adapter names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the profile of the named adapter with the optional
// selector file applied over it
func Resolve(name, selectorsFile string) (*types.SelectorProfile, error) {
	adapter, err := Get(name)
	if err != nil {
		return nil, err
	}
	profile := adapter.Profile()
	if selectorsFile == "" {
		return profile, nil
	}
	return LoadProfile(selectorsFile, profile)
}

// LoadProfile reads a YAML selector file and merges it over base.
// Non-empty values in the file replace the base values; lists are replaced
// as a whole so that a file fully controls the order of a chain.
func LoadProfile(path string, base *types.SelectorProfile) (*types.SelectorProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read selector file: %w", err)
	}

	var override types.SelectorProfile
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse selector file %s: %w", path, err)
	}

	return Merge(base, &override), nil
}

// Merge returns a copy of base with the non-empty parts of override applied
func Merge(base, override *types.SelectorProfile) *types.SelectorProfile {
	merged := *base

	mergeString(&merged.Name, override.Name)
	mergeString(&merged.StartURL, override.StartURL)
	mergeString(&merged.NativeFrame, override.NativeFrame)
	mergeString(&merged.FrameMarker, override.FrameMarker)
	mergeString(&merged.AnyFrame, override.AnyFrame)
	mergeList(&merged.ClickThrough, override.ClickThrough)
	mergeList(&merged.AdContainer, override.AdContainer)
	mergeList(&merged.MainPage, override.MainPage)

	mergeList(&merged.Fields.Headline, override.Fields.Headline)
	mergeList(&merged.Fields.Image, override.Fields.Image)
	mergeString(&merged.Fields.Advertiser, override.Fields.Advertiser)
	mergeString(&merged.Fields.Tag, override.Fields.Tag)
	mergeString(&merged.Fields.Body, override.Fields.Body)
	mergeString(&merged.Fields.Link, override.Fields.Link)

	mergeList(&merged.Pagination, override.Pagination)
	mergeList(&merged.Popups.Prompts, override.Popups.Prompts)
	mergeList(&merged.Popups.PromptAction, override.Popups.PromptAction)
	mergeList(&merged.Popups.Notification, override.Popups.Notification)
	mergeList(&merged.Popups.Cookie, override.Popups.Cookie)
	mergeList(&merged.Popups.Close, override.Popups.Close)
	mergeList(&merged.Popups.SkipTexts, override.Popups.SkipTexts)

	return &merged
}

// Marshal renders a profile as YAML
func Marshal(profile *types.SelectorProfile) ([]byte, error) {
	return yaml.Marshal(profile)
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeList[T any](dst *[]T, v []T) {
	if len(v) > 0 {
		*dst = append([]T(nil), v...)
	}
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"

	"ad-collector/adapters"
	"ad-collector/internal/types"
	"ad-collector/utils"
)

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show how the selector profile matches a page without collecting",
		Long: `Inspect fetches a page without a browser and reports the frames found, the
number of elements matched by each ad selector and the next page
candidates. Content rendered by JavaScript is not visible to it.`,
		Args: cobra.NoArgs,
		RunE: runInspectCmd,
	}

	cmd.Flags().String("url", types.DefaultConfig().StartURL, "Page to inspect")
	cmd.Flags().String("adapter", "generic", "Selector profile")
	cmd.Flags().String("selectors", "", "YAML file overriding parts of the selector profile")

	return cmd
}

func runInspectCmd(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := utils.NewLogger(verbose)

	url, _ := cmd.Flags().GetString("url")
	adapter, _ := cmd.Flags().GetString("adapter")
	selectors, _ := cmd.Flags().GetString("selectors")

	profile, err := adapters.Resolve(adapter, selectors)
	if err != nil {
		return fmt.Errorf("failed to load selector profile: %w", err)
	}

	config := types.DefaultConfig()
	config.MaxRetries = 1
	client := utils.NewHTTPClient(config, logger)
	defer client.Close()

	fetched, err := client.Get(context.Background(), url)
	if err != nil {
		return fmt.Errorf("failed to get page: %w", err)
	}

	// Parse HTML
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fetched.Body))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	report(cmd.OutOrStdout(), fetched.URL, doc, profile)
	return nil
}

func report(w io.Writer, pageURL string, doc *goquery.Document, profile *types.SelectorProfile) {
	fmt.Fprintf(w, "=== %s (%s profile) ===\n", pageURL, profile.Name)
	fmt.Fprintf(w, "Total links found: %d\n", doc.Find("a").Length())

	frames := doc.Find(profile.AnyFrame)
	fmt.Fprintf(w, "Frames: %d (native ad frames: %d)\n", frames.Length(), doc.Find(profile.NativeFrame).Length())
	frames.Each(func(i int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		src, _ := s.Attr("src")
		fmt.Fprintf(w, "  %d: class='%s', src='%s'\n", i+1, class, utils.ResolveURL(pageURL, src))
	})

	fmt.Fprintln(w, "Main page ad selectors:")
	for _, css := range profile.MainPage {
		fmt.Fprintf(w, "  %-32s %d\n", css, doc.Find(css).Length())
	}

	fmt.Fprintln(w, "Next page candidates:")
	found := 0
	for _, sel := range profile.Pagination {
		matches := doc.Find(sel.CSS)
		if sel.Text != "" {
			matches = matches.FilterFunction(func(i int, s *goquery.Selection) bool {
				return strings.Contains(strings.ToLower(s.Text()), strings.ToLower(sel.Text))
			})
		}
		matches.Each(func(i int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			text := strings.Join(strings.Fields(s.Text()), " ")
			fmt.Fprintf(w, "  %s: href='%s', text='%s'\n", sel, href, text)
			found++
		})
	}
	if found == 0 {
		fmt.Fprintln(w, "  none")
	}
}

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var searchCategory string

// storiesCmd lists stored stories
var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "List stored stories",
	Long: `List every story in the configured store with its last update time.

Examples:
  # List stories from the default file store
  datastory stories

  # List stories kept in Redis
  STORE_BACKEND=redis datastory stories`,
	Args: cobra.NoArgs,
	RunE: runStories,
}

// slugCmd suggests a free slug for a title
var slugCmd = &cobra.Command{
	Use:   "slug <title>",
	Short: "Suggest a unique slug for a story title",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSlug,
}

// searchCmd queries the content catalog
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the content catalog",
	Long: `Search the content catalog with the same n-gram ranking the API uses.

Examples:
  datastory search 청년 고용
  datastory search --category economy housing`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchCategory, "category", "all", "restrict results to one category")
}

// runStories handles the stories command
func runStories(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	summaries, err := a.stories.ListStories(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list stories: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("No stories saved yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tTITLE\tUPDATED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Slug, s.Title, s.UpdatedAt)
	}
	return w.Flush()
}

// runSlug handles the slug command
func runSlug(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	slug, err := a.stories.SuggestSlug(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to suggest slug: %w", err)
	}
	fmt.Println(slug)
	return nil
}

// runSearch handles the search command
func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.catalog.Search(strings.Join(args, " "), searchCategory)
	if err != nil {
		return fmt.Errorf("failed to search catalog: %w", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(os.Stderr, "No matching content.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tTITLE")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", item.ID, item.Category, item.Title)
	}
	return w.Flush()
}

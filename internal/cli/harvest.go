package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pfrederiksen/dasny-bids/internal/logger"
	"github.com/pfrederiksen/dasny-bids/internal/record"
	"github.com/pfrederiksen/dasny-bids/internal/urlconfig"
	"github.com/spf13/cobra"
)

const (
	// DefaultTarget is the opportunity category scraped by default
	DefaultTarget = "bid-results-and-awards"

	// DefaultPages is the number of listing pages harvested by default
	DefaultPages = 13
)

func newHarvestCmd(a *app) *cobra.Command {
	var (
		target string
		pages  int
	)

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Collect opportunity links from the listing pages",
		Long: `Fetches listing pages 0 through pages-1 of the target category and saves
the normalized title to URL mapping as <urls-dir>/<target>.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHarvest(cmd.Context(), cmd.OutOrStdout(), target, pages)
		},
	}

	cmd.Flags().StringVar(&target, "target", DefaultTarget, "Opportunity category to harvest")
	cmd.Flags().IntVar(&pages, "pages", DefaultPages, "Number of listing pages to fetch")
	cmd.Flags().String("urls-dir", "urls", "Directory the YAML mapping is written to")

	return cmd
}

func (a *app) runHarvest(ctx context.Context, w io.Writer, target string, pages int) error {
	target = strings.Trim(strings.TrimSpace(target), "/")
	if target == "" {
		return fmt.Errorf("--target is required")
	}
	if pages < 0 {
		return fmt.Errorf("invalid page count: %d", pages)
	}

	s, err := a.newScraper()
	if err != nil {
		return err
	}

	links, err := s.Harvest(ctx, target, pages)
	if err != nil {
		return err
	}

	diff := urlconfig.Diff(a.previousLinks(target), links)
	for _, link := range diff.Added {
		a.log.Info("New opportunity", logger.Fields{"title": link.Title, "url": link.URL})
	}
	for _, link := range diff.Changed {
		a.log.Info("Opportunity moved", logger.Fields{"title": link.Title, "url": link.URL})
	}

	path, err := urlconfig.Save(a.settings.URLsDir, target, links)
	if err != nil {
		return fmt.Errorf("saving url config: %w", err)
	}

	a.log.Info("Saved url config", logger.Fields{
		"path":    path,
		"links":   len(links),
		"added":   len(diff.Added),
		"changed": len(diff.Changed),
		"removed": len(diff.Removed),
	})
	fmt.Fprintf(w, "Saved %d links to %s (%d new)\n", len(links), path, len(diff.Added))
	return nil
}

// previousLinks returns the mapping saved by the last harvest of target, or
// nil when there is none
func (a *app) previousLinks(target string) []record.OpportunityLink {
	path := urlconfig.Path(a.settings.URLsDir, target)
	links, err := urlconfig.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			a.log.Warn("Ignoring unreadable previous url config", logger.Fields{"path": path, "error": err.Error()})
		}
		return nil
	}
	return links
}

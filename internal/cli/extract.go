package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pfrederiksen/dasny-bids/internal/logger"
	"github.com/pfrederiksen/dasny-bids/internal/output"
	"github.com/pfrederiksen/dasny-bids/internal/urlconfig"
	"github.com/spf13/cobra"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		yamlPath   string
		outputPath string
		summary    bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Scrape every opportunity page named in a YAML mapping",
		Long: `Reads a title to URL mapping, fetches each opportunity page in file order
and writes one record per page. The output format follows the --output
extension (.csv or .json). Without --output, CSV is written to
<output-dir>/csv/<mapping name>.csv.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd.Context(), cmd.OutOrStdout(), yamlPath, outputPath, summary)
		},
	}

	cmd.Flags().StringVar(&yamlPath, "yaml", "", "YAML mapping to read (default <urls-dir>/"+DefaultTarget+urlconfig.Ext+")")
	cmd.Flags().StringVar(&outputPath, "output", "", "Output file ending in .csv or .json")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a table of the extracted records")

	return cmd
}

func (a *app) runExtract(ctx context.Context, w io.Writer, yamlPath, outputPath string, summary bool) error {
	if yamlPath == "" {
		yamlPath = urlconfig.Path(a.settings.URLsDir, DefaultTarget)
	}

	// resolve the output before any page is fetched
	target, err := output.ResolveTarget(outputPath, yamlPath, a.settings.OutputDir)
	if err != nil {
		return err
	}

	links := urlconfig.Load(yamlPath, a.log)
	if links == nil {
		return fmt.Errorf("no url config loaded from %s", yamlPath)
	}

	s, err := a.newScraper()
	if err != nil {
		return err
	}

	records, err := s.Extract(ctx, links)
	if err != nil {
		return err
	}

	if err := output.WriteFile(target, records); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	a.log.Info("Wrote records", logger.Fields{
		"path":    target.Path,
		"format":  string(target.Format),
		"records": len(records),
	})
	if summary {
		output.RenderSummary(w, records)
	}
	fmt.Fprintf(w, "Wrote %d records to %s\n", len(records), target.Path)
	return nil
}

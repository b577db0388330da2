package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/pfrederiksen/dasny-bids/internal/config"
	"github.com/pfrederiksen/dasny-bids/internal/logger"
	"github.com/pfrederiksen/dasny-bids/internal/output"
	"github.com/pfrederiksen/dasny-bids/internal/pagecache"
	"github.com/pfrederiksen/dasny-bids/internal/scraper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version is set at build time
var Version = "dev"

// app holds the state shared by every command of one invocation
type app struct {
	v        *viper.Viper
	cfgFile  string
	settings *config.Settings
	log      *logger.Logger
	metrics  *logger.Metrics
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{
		v:       config.New(),
		metrics: logger.NewMetrics(),
	}

	cmd := &cobra.Command{
		Use:   "dasny-bids",
		Short: "Scrape DASNY procurement opportunities",
		Long: `A CLI tool to scrape procurement opportunities from the DASNY website.
Harvests opportunity links from the listing pages into a YAML mapping, then
extracts estimates, bid results and awards from every linked page into CSV or JSON.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	// Define flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Config file (default is ./dasny-bids.yaml)")
	flags.String("site", scraper.DefaultSiteURL, "Base URL of the DASNY site")
	flags.String("user-agent", scraper.UserAgent, "User-Agent header sent with every request")
	flags.Duration("timeout", config.DefaultTimeout, "HTTP request timeout, 0 for none")
	flags.String("cache-dir", "", "Directory for the page cache (disabled when empty)")
	flags.Duration("cache-ttl", pagecache.DefaultTTL, "How long cached pages stay fresh")
	flags.String("output-dir", output.DefaultDir, "Directory for default CSV output")
	flags.String("log-level", "", "Log level: debug, info, warn or error (default info, debug with --verbose)")
	flags.String("log-file", "", "Write logs to a rotating file instead of stderr")
	flags.Bool("verbose", false, "Enable verbose logging and print a run summary")

	cmd.AddCommand(newHarvestCmd(a))
	cmd.AddCommand(newExtractCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// flagKeys maps flag names to the setting keys they override
var flagKeys = map[string]string{
	"site":       config.KeySite,
	"user-agent": config.KeyUserAgent,
	"timeout":    config.KeyTimeout,
	"cache-dir":  config.KeyCacheDir,
	"cache-ttl":  config.KeyCacheTTL,
	"output-dir": config.KeyOutputDir,
	"urls-dir":   config.KeyURLsDir,
	"log-level":  config.KeyLogLevel,
	"log-file":   config.KeyLogFile,
	"verbose":    config.KeyVerbose,
}

// bindFlags binds every known flag present in flags to its setting key.
// A flag overrides the other sources only when set on the command line.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// setup resolves settings and opens the logger before a command runs
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := bindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}

	settings, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.settings = settings

	if settings.LogFile != "" {
		a.log, err = logger.Open(logger.Config{Level: string(settings.LogLevel), File: settings.LogFile})
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
	} else {
		a.log = logger.New(settings.LogLevel, cmd.ErrOrStderr())
	}
	a.log = a.log.With(logger.Fields{"run_id": uuid.NewString()})
	logger.SetDefault(a.log)

	a.log.Debug("Resolved settings", logger.Fields{
		"site":       settings.Site,
		"timeout":    settings.Timeout.String(),
		"cache_dir":  settings.CacheDir,
		"output_dir": settings.OutputDir,
		"config":     a.v.ConfigFileUsed(),
	})
	return nil
}

// teardown logs the run summary in verbose mode and closes the logger
func (a *app) teardown(cmd *cobra.Command, args []string) error {
	if a.log == nil {
		return nil
	}
	if a.settings != nil && a.settings.Verbose {
		a.log.Info("Run summary", a.metrics.Summary())
	}
	return a.log.Close()
}

// newScraper builds a scraper from the resolved settings, with the page
// cache attached when one is configured
func (a *app) newScraper() (*scraper.Scraper, error) {
	opts := []scraper.Option{
		scraper.WithTimeout(a.settings.Timeout),
		scraper.WithUserAgent(a.settings.UserAgent),
		scraper.WithLogger(a.log),
		scraper.WithMetrics(a.metrics),
	}

	if a.settings.CacheEnabled() {
		cache, err := pagecache.Open(a.settings.CacheDir, a.settings.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("opening page cache: %w", err)
		}

		removed, err := cache.CleanExpired()
		if err != nil {
			a.log.Warn("Failed to clean page cache", logger.Fields{"dir": cache.Dir(), "error": err.Error()})
		}
		a.log.Debug("Opened page cache", logger.Fields{
			"dir":     cache.Dir(),
			"entries": cache.Size(),
			"expired": removed,
		})

		opts = append(opts, scraper.WithCache(cache))
	}

	return scraper.New(scraper.NewFetcher(opts...), a.settings.Site, a.log, a.metrics)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		// no settings are needed to print the version
		PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dasny-bids version %s\n", Version)
		},
	}
}

// Execute runs the CLI
func Execute() {
	config.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

// exitCode records a failed run in the default logger and closes it, since
// teardown does not run when a command returns an error
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	logger.Error("Command failed", nil, err)
	_ = logger.Default().Close()
	return ExitError
}

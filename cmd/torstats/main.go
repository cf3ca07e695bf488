package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lornebot/torstats/internal/config"
	"github.com/lornebot/torstats/internal/crawl"
	"github.com/lornebot/torstats/internal/daemon"
	"github.com/lornebot/torstats/internal/database"
	"github.com/lornebot/torstats/internal/engage"
	"github.com/lornebot/torstats/internal/notify"
	"github.com/lornebot/torstats/internal/reddit"
	"github.com/lornebot/torstats/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "torstats",
	Short:   "Transcribers of Reddit statistics crawler",
	Long:    "torstats crawls transcriber comment histories, tracks gamma counts, and announces rank changes.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(engageCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("torstats", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/torstats/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure crawl intervals and the Discord channel.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Transcribers:")
		fmt.Printf("  Tracked: %d\n", stats.Transcribers)
		fmt.Printf("  Valid: %d\n", stats.ValidTranscribers)
		fmt.Printf("  Comments scanned: %d\n", stats.CountedComments)
		fmt.Println("\nTranscriptions:")
		fmt.Printf("  Found: %d\n", stats.Transcriptions)
		fmt.Printf("  Engagement errors: %d\n", stats.TranscriptionErrors)
		fmt.Println("\nGamma:")
		fmt.Printf("  Recorded changes: %d\n", stats.GammaEvents)
		return nil
	},
}

// --- add command ---

var addCmd = &cobra.Command{
	Use:   "add [username] [discord-id]",
	Short: "Start tracking a transcriber",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		name := args[0]
		created, err := db.EnsureTranscriber(name)
		if err != nil {
			return err
		}

		if len(args) > 1 {
			if err := db.SetDiscordID(name, args[1]); err != nil {
				return err
			}
		}

		if created {
			fmt.Printf("Now tracking /u/%s. Run 'torstats scan %s' to seed their history.\n", name, name)
		} else {
			fmt.Printf("/u/%s is already tracked.\n", name)
		}
		return nil
	},
}

// --- scan command ---

var scanCmd = &cobra.Command{
	Use:   "scan [username]",
	Short: "Run one crawl round, for every transcriber or a single one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, err := newEngine(db)
		if err != nil {
			return err
		}
		ctx := signalContext()

		if len(args) == 1 {
			return engine.ScanUser(ctx, args[0])
		}

		result, err := engine.ScanAll(ctx)
		if err != nil {
			return err
		}

		fmt.Println("Scan complete:")
		fmt.Printf("  Users: %d\n", result.Users)
		fmt.Printf("  Comments scanned: %d\n", result.Scanned)
		fmt.Printf("  Transcriptions: %d (%d new)\n", result.Transcriptions, result.NewTranscriptions)
		fmt.Printf("  Invalidated: %d\n", result.Invalidated)
		return nil
	},
}

// --- engage command ---

var engageCmd = &cobra.Command{
	Use:   "engage",
	Short: "Refresh engagement counters for recent transcriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		analyzer := engage.New(db, newRedditClient(), cfg.Engage.FetchRetries, cfg.Engage.WindowHours)
		result, err := analyzer.RefreshAll(signalContext())
		if err != nil {
			return err
		}

		fmt.Println("Engagement refresh complete:")
		fmt.Printf("  Checked: %d\n", result.Checked)
		fmt.Printf("  Updated: %d\n", result.Updated)
		fmt.Printf("  Errors: %d\n", result.Errors)
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the crawler daemon: scheduled crawl and engagement rounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, err := newEngine(db)
		if err != nil {
			return err
		}
		analyzer := engage.New(db, newRedditClient(), cfg.Engage.FetchRetries, cfg.Engage.WindowHours)

		d := daemon.New(engine, analyzer, daemon.Options{
			CrawlIntervalSeconds:  cfg.Crawl.IntervalSeconds,
			EngageIntervalSeconds: cfg.Engage.IntervalSeconds,
			ScanAtStartup:         cfg.Crawl.ScanAtStartup,
		})

		fmt.Println("Daemon running. Press Ctrl+C to stop.")
		if err := d.Run(signalContext()); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "torstats.db")
	return database.Open(dbPath)
}

func newRedditClient() *reddit.Client {
	return reddit.NewClient(
		cfg.Reddit.BaseURL,
		cfg.Reddit.UserAgent,
		time.Duration(cfg.Reddit.TimeoutSeconds)*time.Second,
	)
}

func newEngine(db *database.DB) (*crawl.Engine, error) {
	return crawl.New(db, newRedditClient(), newNotifier(),
		cfg.Crawl.BatchSize, cfg.Crawl.HomeSubreddit, cfg.Crawl.Ignore)
}

// newNotifier connects to Discord when a token is configured and falls back
// to log-only announcements otherwise.
func newNotifier() crawl.Notifier {
	// A missing .env is fine; the token may come from the environment.
	_ = godotenv.Load()

	token := os.Getenv(cfg.Discord.TokenEnv)
	if token == "" || cfg.Discord.GammaChannel == "" {
		log.Printf("no Discord token or channel configured, announcing to the log only")
		return notify.LogNotifier{}
	}

	messenger, err := notify.NewDiscordMessenger(token)
	if err != nil {
		log.Printf("WARNING: discord unavailable, announcing to the log only: %v", err)
		return notify.LogNotifier{}
	}
	return notify.NewAnnouncer(messenger, cfg.Discord.GammaChannel)
}

// signalContext returns a context canceled by SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx
}

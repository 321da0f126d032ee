package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/typx/internal/config"
	"github.com/pders01/typx/internal/debuglog"
	"github.com/pders01/typx/internal/render"
	"github.com/pders01/typx/internal/search"
	"github.com/pders01/typx/internal/tui"
	"github.com/pders01/typx/internal/workspace"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	logLevel   string
	quiet      bool

	searchFolder string

	openFolder    string
	openLine      int
	openHighlight string
)

// cliMarker highlights matches in command output.
var cliMarker = search.MarkerFunc(func(s string) string {
	return tui.HighlightStyle.Render(s)
})

var rootCmd = &cobra.Command{
	Use:           "typx",
	Short:         "Search and highlight markdown notes",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("typx %s\n", Version)
		fmt.Println("Markdown search & highlight")
		fmt.Println("github.com/pders01/typx")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.GenerateDefaultConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			return
		}
		fmt.Printf("Generated default configuration at: %s\n", path)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search file names in a folder and content everywhere",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var openCmd = &cobra.Command{
	Use:   "open <file>",
	Short: "Print a file, optionally from a line and with matches highlighted",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

var renderCmd = &cobra.Command{
	Use:   "render <file.md>",
	Short: "Render a markdown file to HTML",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, off)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Skip startup banner")

	searchCmd.Flags().StringVarP(&searchFolder, "folder", "f", "", "Folder whose file names are matched")

	openCmd.Flags().StringVarP(&openFolder, "folder", "f", "", "Folder containing the file")
	openCmd.Flags().IntVarP(&openLine, "line", "l", 0, "Start output at this 1-based line")
	openCmd.Flags().StringVar(&openHighlight, "highlight", "", "Text to highlight")

	configCmd.AddCommand(configGenCmd)
	rootCmd.AddCommand(versionCmd, configCmd, searchCmd, openCmd, renderCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	_ = debuglog.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and starts logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if err := debuglog.Setup(debuglog.ParseLogLevel(level), cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !quiet {
		tui.ShowBanner(Version)
	}

	env, err := openEnv(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer env.Close()

	app := tui.NewApp(cfg, env.backend, env.store)
	defer app.Close()

	if env.ws != nil && cfg.Workspace.Watch {
		w, err := workspace.NewWatcher(env.ws, watchSettle, app.Refresh)
		if err != nil {
			debuglog.Warnf("workspace watcher disabled: %v", err)
		} else {
			w.Start()
			defer func() { _ = w.Stop() }()
		}
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := openEnv(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer env.Close()

	query := strings.TrimSpace(strings.Join(args, " "))
	results, err := combinedSearch(cmd.Context(), env.backend, query, searchFolder)
	out := cmd.OutOrStdout()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), search.MsgSearchError)
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(out, search.MsgNoResults)
		return nil
	}
	for _, r := range results {
		fmt.Fprintln(out, search.Format(r, query, cliMarker))
	}
	if env.store != nil {
		if err := env.store.RecordQuery(query); err != nil {
			debuglog.Warnf("recording query: %v", err)
		}
	}
	return nil
}

// combinedSearch matches file names of folder and searches content across
// the workspace, merged the way the search panel shows them. A folder that
// cannot be listed contributes no filename matches.
func combinedSearch(ctx context.Context, backend search.Backend, query, folder string) ([]search.Result, error) {
	if query == "" {
		return nil, nil
	}
	files, err := backend.ListFiles(ctx, folder)
	if err != nil {
		debuglog.Warnf("listing files in %q: %v", folder, err)
		files = nil
	}
	hits, err := backend.SearchContent(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	return search.Merge(search.MatchFilenames(files, query, folder), hits, folder), nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := openEnv(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer env.Close()

	text, err := env.backend.Open(cmd.Context(), args[0], openFolder)
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	if openLine > 0 {
		offset, err := search.LineOffset(text, openLine)
		if err != nil {
			return err
		}
		text = text[offset:]
	}
	if openHighlight != "" {
		text, _ = search.Highlight(text, openHighlight, cliMarker)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	html, err := render.NewHTML().Render(string(data))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), html)
	return nil
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sadopc/apitester/internal/app"
	"github.com/sadopc/apitester/internal/config"
	"github.com/sadopc/apitester/internal/logging"
	"github.com/sadopc/apitester/internal/ui/render"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	storage    string
	dataDir    string
	noColor    bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "apitester",
		Short: "Send HTTP requests and keep a local history",
		Long: `apitester sends HTTP requests from the terminal, shows the status,
timing, size and body of each response, and keeps the last 50 requests
in a local history that can be listed, exported and replayed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to config file (default ~/.config/apitester/config.yaml)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Verbose logging")
	pf.StringVar(&g.storage, "storage", "", "History backend: sqlite, file or memory")
	pf.StringVar(&g.dataDir, "data-dir", "", "Directory for persisted history")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newSendCmd(g))
	cmd.AddCommand(newHistoryCmd(g))
	cmd.AddCommand(newReplayCmd(g))
	cmd.AddCommand(newFmtCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig reads the config file and applies flag overrides.
func (g *globalFlags) loadConfig() config.Config {
	var cfg config.Config
	if g.configPath != "" {
		cfg = config.LoadFile(g.configPath)
	} else {
		cfg = config.Load()
	}
	if g.storage != "" {
		cfg.Storage = g.storage
	}
	if g.dataDir != "" {
		cfg.DataDir = g.dataDir
	}
	return cfg
}

// open builds the runtime for a command. The caller must Close it.
func (g *globalFlags) open(cmd *cobra.Command) (*app.Runtime, error) {
	return app.Build(g.loadConfig(), g.logger(cmd))
}

func (g *globalFlags) logger(cmd *cobra.Command) zerolog.Logger {
	w := cmd.ErrOrStderr()
	return logging.New(w, g.verbose, g.colorFor(w))
}

func (g *globalFlags) printer(cmd *cobra.Command) *render.Printer {
	w := cmd.OutOrStdout()
	return render.NewPrinter(w, g.colorFor(w))
}

// colorFor reports whether w is a terminal that should get colored output.
func (g *globalFlags) colorFor(w io.Writer) bool {
	if g.noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "apitester %s (%s) built %s\n", version, commit, date)
		},
	}
}

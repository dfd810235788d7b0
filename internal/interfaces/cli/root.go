// Package cli implements the ligandscreen command line: batch screening of a
// query table, the HTTP API server and build information.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ligandscreen/internal/config"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Exit codes returned by Execute.
const (
	ExitOK    = 0
	ExitError = 1
	// ExitFatal marks a run that could not start: the corpus, the query
	// table, the codec or the configuration is unusable.
	ExitFatal = 2
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	EnvFiles   []string
}

// CLIContext carries the loaded configuration and logger through the
// command tree.
type CLIContext struct {
	Config *config.Config
	Logger logging.Logger
	// ConfigPath is the file the configuration came from, empty when it was
	// built from the environment alone.
	ConfigPath string
}

// NewRootCommand creates the root command with all global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ligandscreen",
		Short: "Screen compounds against a PDB ligand corpus by fingerprint similarity",
		Long: "ligandscreen ranks reference ligands by Tanimoto similarity of Morgan fingerprints,\n" +
			"annotates the best candidates with their source organisms from the RCSB Data API\n" +
			"and prefers matches from the target organisms.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipConfig"] == "true" {
				return nil
			}
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./ligandscreen.yaml if present)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.LogFormat, "log-format", "", "log format (json, console)")
	pf.StringSliceVar(&opts.EnvFiles, "env-file", nil, "dotenv files to load before reading the environment (default: ./.env if present)")

	cmd.AddCommand(
		NewScreenCommand(),
		NewServeCommand(),
		NewVersionCommand(),
	)
	return cmd
}

// persistentPreRun loads config and logger and stores the CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	if err := config.LoadEnvFiles(opts.EnvFiles...); err != nil {
		return err
	}

	path := resolveConfigPath(opts.ConfigPath)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(opts.LogLevel)
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = strings.ToLower(opts.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "logger initialization failed")
	}
	logging.SetDefault(logger)

	cliCtx := &CLIContext{Config: cfg, Logger: logger, ConfigPath: path}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// resolveConfigPath returns the explicit path, else the first default
// location that exists, else "" for an environment-only configuration.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	searchPaths := []string{"./ligandscreen.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".ligandscreen", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/ligandscreen/config.yaml")

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the root command with args and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		PrintError(rootCmd, err)
	}
	_ = logging.Sync(logging.Default())
	return ExitCode(err)
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.IsFatal(errors.GetCode(err)):
		return ExitFatal
	default:
		return ExitError
	}
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if len(row[i]) > colWidths[i] {
				colWidths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			if i == len(headers)-1 {
				sb.WriteString(val)
			} else {
				sb.WriteString(padRight(val, colWidths[i]))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(headers))
	for i, w := range colWidths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

// padRight pads s with spaces to the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

//Personal.AI order the ending

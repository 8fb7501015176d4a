package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gnatsheet/gnatsheet/internal/config"
	"github.com/gnatsheet/gnatsheet/internal/database"
	"github.com/gnatsheet/gnatsheet/internal/model"
	"github.com/gnatsheet/gnatsheet/internal/parser"
	"github.com/gnatsheet/gnatsheet/internal/report"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <report-file>...",
		Short: "Convert GNATprove report files to spreadsheet format",
		Long: `Export parses GNATprove report files and renders them as structured
artifacts. The default format is a three-sheet xlsx workbook: a per-unit
summary, per-item details, and the suppressed messages.

Without --out the report is parsed and summarized on stdout but no
artifact is written. With several report files, --out names a directory
and one artifact is written per report.

Each parsed report is also recorded in the local history database (see
'gnatsheet compare'), unless --no-history is given.

Examples:
  # Parse a report without writing an artifact
  gnatsheet export obj/gnatprove/gnatprove.out

  # Write the spreadsheet
  gnatsheet export --out results.xlsx obj/gnatprove/gnatprove.out

  # JSON for tool integration (format inferred from the extension)
  gnatsheet export --out results.json obj/gnatprove/gnatprove.out

  # Several reports into one directory
  gnatsheet export --out artifacts/ proj1/gnatprove.out proj2/gnatprove.out

Configuration file (.gnatsheet) example:
  export:
    format: xlsx
    summarySheet: Units
  history:
    enabled: true`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExportCmd,
	}

	// Artifact flags
	cmd.Flags().StringP("out", "o", "",
		"Output artifact path; a directory when several reports are given (omit to parse without writing)")
	cmd.Flags().StringP("format", "f", "",
		"Output format: xlsx, json, or markdown (default: inferred from --out, else xlsx)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .gnatsheet in current or home directory)")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the history database")

	// Batch flags
	cmd.Flags().Int("jobs", config.DefaultConcurrency,
		"Number of reports processed in parallel")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	logger := setupLogger(getVerboseFlag(cmd))
	slog.SetDefault(logger)

	return runExport(cmd.Context(), cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
// Precedence, lowest to highest: defaults, config file, output file
// extension, explicit flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load settings from the config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.ApplyTo(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.OutputPath, err = cmd.Flags().GetString("out")
	if err != nil {
		return nil, err
	}

	// An explicit output name like results.json decides the format
	// unless the --format flag overrides it below.
	if inferred := config.FormatFromPath(cfg.OutputPath); inferred != "" {
		cfg.Format = inferred
	}

	formatFlag, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}
	if formatFlag != "" {
		cfg.Format = config.Format(strings.ToLower(formatFlag))
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if noHistory {
		cfg.SaveHistory = false
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("jobs")
	if err != nil {
		return nil, err
	}

	// Positional arguments are the report files.
	cfg.Inputs = args

	return cfg, nil
}

// runExport parses and renders all configured report files.
func runExport(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting export",
		"inputs", len(cfg.Inputs),
		"format", string(cfg.Format),
		"saveHistory", cfg.SaveHistory,
	)

	// Open the history database once; SaveRun calls are serialized by
	// the connection pool.
	var db *database.HistoryDB
	if cfg.SaveHistory {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close() //nolint:errcheck // Read-mostly handle, nothing to flush
		logger.Info("history database opened", "dir", cfg.DBDir)
	}

	if len(cfg.Inputs) == 1 {
		return exportOne(ctx, cfg, cfg.Inputs[0], cfg.OutputPath, db, logger)
	}

	// With several reports --out names a directory, one artifact each.
	if cfg.OutputPath != "" {
		if err := os.MkdirAll(cfg.OutputPath, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for _, input := range cfg.Inputs {
		g.Go(func() error {
			out := ""
			if cfg.OutputPath != "" {
				out = filepath.Join(cfg.OutputPath, deriveOutputName(input, cfg.Format))
			}
			return exportOne(gctx, cfg, input, out, db, logger)
		})
	}
	return g.Wait()
}

// exportOne parses one report file, writes its artifact (or prints a
// summary when no output is configured), and records the run.
func exportOne(ctx context.Context, cfg *config.Config, inputPath, outputPath string, db *database.HistoryDB, logger *slog.Logger) error {
	rep, err := parser.ParseFile(inputPath)
	if err != nil {
		return err
	}
	logger.Debug("report parsed",
		"input", inputPath,
		"units", len(rep.Units),
		"items", rep.NumItems(),
	)

	if outputPath == "" {
		printSummary(inputPath, rep)
	} else {
		if err := writeArtifact(cfg, rep, outputPath); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", outputPath)
	}

	if db != nil {
		key, err := historyKey(inputPath)
		if err != nil {
			return err
		}
		runID, err := db.SaveRun(ctx, key, rep)
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		logger.Debug("run recorded", "id", runID, "report", key)
	}

	return nil
}

// writeArtifact renders the report into the configured format at path,
// creating parent directories as needed.
func writeArtifact(cfg *config.Config, rep *model.Report, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	if _, err := newWriter(cfg, f).Write(rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return f.Close()
}

// newWriter selects the report writer for the configured format.
// Validate has already rejected unknown formats.
func newWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch cfg.Format {
	case config.FormatJSON:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case config.FormatMarkdown:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewExcelWriter(out,
			report.WithSheetNames(cfg.SummarySheet, cfg.DetailsSheet, cfg.SuppressionsSheet))
	}
}

// deriveOutputName maps an input report name to an artifact name in
// the output directory, e.g. gnatprove.out -> gnatprove.xlsx.
func deriveOutputName(inputPath string, format config.Format) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + format.Extension()
}

// historyKey normalizes a report path for history lookups, so export
// and compare agree on the key regardless of the working directory.
func historyKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve report path: %w", err)
	}
	return abs, nil
}

// printSummary prints a one-line digest of a parsed report.
func printSummary(path string, rep *model.Report) {
	totals := rep.Totals()
	fmt.Printf("%s: %d units, %d items, %d/%d checks proved (%.0f%%), %d flow errors, %d flow warnings, %d suppressions\n",
		path,
		len(rep.Units),
		rep.NumItems(),
		totals.ProvedChecks,
		totals.Checks,
		totals.ProofRatio()*100,
		totals.FlowErrors,
		totals.FlowWarnings,
		totals.Suppressions,
	)
}

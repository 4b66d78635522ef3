package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/nconklindev/sheetpix/internal/config"
	"github.com/nconklindev/sheetpix/internal/job"
	"github.com/nconklindev/sheetpix/internal/logging"
	"github.com/nconklindev/sheetpix/internal/oss"
	"github.com/nconklindev/sheetpix/internal/types"
	"github.com/nconklindev/sheetpix/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	workspace  string
	outputDir  string
	nameColumn string
	noZip      bool
	upload     bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sheetpix [document.xlsx]",
		Short: "Extract embedded images from a spreadsheet and name them after its rows",
		Long: `sheetpix pulls every image embedded in an xlsx workbook, numbers them in
archive order and renames each one after the Name column of the matching row.

Run without arguments to pick a workbook interactively.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("sheetpix %s\ncommit: %s\nbuilt: %s\n", version, commit, date))

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "sheetpix.yaml", "Path to configuration file")
	rootCmd.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (overrides config)")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Image directory name inside the workspace (overrides config)")
	rootCmd.Flags().StringVarP(&nameColumn, "name-column", "n", "", "Header of the column holding image names (overrides config)")
	rootCmd.Flags().BoolVar(&noZip, "no-zip", false, "Skip packaging the images into a zip archive")
	rootCmd.Flags().BoolVar(&upload, "upload", false, "Upload the archive to OSS after packaging")

	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		if _, err := os.Stat(args[0]); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", args[0])
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	interactive := len(args) == 0
	log, closer, err := logging.New(cfg.Logging, interactive)
	if err != nil {
		return err
	}
	defer closer.Close()

	var publisher job.Publisher
	if cfg.OSS.Enabled {
		uploader, err := oss.NewUploader(&cfg.OSS, log)
		if err != nil {
			return err
		}
		publisher = uploader
	}

	runner, err := job.New(cfg, log, publisher)
	if err != nil {
		return err
	}

	if interactive {
		p := tea.NewProgram(ui.InitialModel(cfg, runner), tea.WithAltScreen(), tea.WithMouseCellMotion())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("failed to run UI: %w", err)
		}
		return nil
	}

	docPath := args[0]
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := runner.Run(ctx, docPath, nil)
	if err != nil {
		log.WithError(err).WithField("document", docPath).Error("Run failed")
		return err
	}

	printSummary(cmd, result)
	return nil
}

// loadConfig reads the config file and applies command line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if workspace != "" {
		cfg.Workspace.Root = workspace
	}
	if outputDir != "" {
		cfg.Workspace.ImagesDir = outputDir
	}
	if nameColumn != "" {
		cfg.Extract.NameColumn = nameColumn
	}
	if noZip {
		cfg.Package.Enabled = false
	}
	if cmd.Flags().Changed("upload") {
		cfg.OSS.Enabled = upload
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func printSummary(cmd *cobra.Command, result *types.RunResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Extracted %d image(s) from %s into %s\n",
		len(result.Match.Images), result.Document, result.OutputDir)
	for _, f := range result.Files {
		fmt.Fprintf(out, "  %-40s %s\n", f.Name, humanize.Bytes(uint64(f.Size)))
	}

	for _, skip := range result.Match.Skipped {
		fmt.Fprintf(out, "Skipped row %d: %s", skip.Row+1, skip.Reason)
		if skip.Detail != "" {
			fmt.Fprintf(out, " (%s)", skip.Detail)
		}
		fmt.Fprintln(out)
	}

	if result.Archive != nil {
		fmt.Fprintf(out, "Archive: %s (%s, %d files)\n",
			result.Archive.Path, humanize.Bytes(uint64(result.Archive.Size)), result.Archive.Files)
	}
	if result.Upload != nil {
		fmt.Fprintf(out, "Uploaded: %s\n", result.Upload.SignedURL)
	}
	fmt.Fprintf(out, "Done in %s\n", result.Duration.Round(time.Millisecond))
}

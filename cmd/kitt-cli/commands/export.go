package commands

import (
	"fmt"
	"log/slog"
	"time"

	"kittexport/internal/pipeline"
	"kittexport/internal/render"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	portalFlags
	format          string
	outputDir       string
	renderTimeout   time.Duration
	readySelector   string
	headful         bool
	installBrowser  bool
	continueOnError bool
}

var exportFlags exportOptions

func (o *exportOptions) register(cmd *cobra.Command) {
	o.portalFlags.register(cmd)
	cmd.Flags().StringVarP(&o.format, "format", "f", "pdf", fmt.Sprintf("The export format, one of %v.", render.Formats()))
	cmd.Flags().StringVarP(&o.outputDir, "out", "o", "lectures", "The directory exported files are written to.")
	cmd.Flags().DurationVar(&o.renderTimeout, "render-timeout", time.Second*30, "How long to wait for a page to become ready.")
	cmd.Flags().StringVar(&o.readySelector, "ready-selector", "body", "A css selector that is visible once a page has rendered.")
	cmd.Flags().BoolVar(&o.headful, "headful", false, "Show the browser window.")
	cmd.Flags().BoolVar(&o.installBrowser, "install-browser", false, "Download the playwright driver and chromium before starting.")
	cmd.Flags().BoolVar(&o.continueOnError, "continue-on-error", false, "Report lectures that fail to export instead of stopping.")
}

func init() {
	exportFlags.register(exportCmd)
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--camp <id>] [--format pdf|html|mhtml|md] [--out <dir>]",
	Short: "Exports the content of every lecture of a camp to files.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, exportFlags.portalFlags)
		if err != nil {
			return err
		}

		exportFlags.apply(cmd, &cfg)

		runCfg, err := cfg.pipelineConfig(exportFlags.cloudflare)
		if err != nil {
			return err
		}
		runCfg.InstallBrowser = exportFlags.installBrowser

		slog.Info("exporting camp", "camp", runCfg.CampId, "format", runCfg.Format, "out", runCfg.DestinationDir)
		report, err := pipeline.Run(cmd.Context(), runCfg)
		printReport(report)
		return err
	},
}

// apply lets the export flags set on the command line win over cfg, flags
// that were left at their default only fill in what cfg lacks.
func (o exportOptions) apply(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()
	if flags.Changed("format") || cfg.Format == "" {
		cfg.Format = o.format
	}
	if flags.Changed("out") || cfg.OutputDir == "" {
		cfg.OutputDir = o.outputDir
	}
	if flags.Changed("ready-selector") || cfg.ReadySelector == "" {
		cfg.ReadySelector = o.readySelector
	}
	if flags.Changed("render-timeout") || cfg.RenderTimeoutSeconds <= 0 {
		cfg.RenderTimeout = o.renderTimeout
	}
	if flags.Changed("headful") {
		headless := !o.headful
		cfg.Headless = &headless
	}
	if flags.Changed("continue-on-error") {
		cfg.ContinueOnError = o.continueOnError
	}
}

func printReport(report pipeline.Report) {
	if report.RunId == "" {
		return
	}

	t := newTable()
	t.AppendHeader(table.Row{"Week", "Lecture", "Result"})
	for _, outcome := range report.Exported {
		t.AppendRow(table.Row{outcome.Lecture.Week, outcome.Lecture.Name, outcome.Path})
	}
	for _, lecture := range report.Skipped {
		t.AppendRow(table.Row{lecture.Week, lecture.Name, "no content"})
	}
	for _, outcome := range report.Failed {
		t.AppendRow(table.Row{outcome.Lecture.Week, outcome.Lecture.Name, fmt.Sprintf("failed: %v", outcome.Err)})
	}
	t.AppendFooter(table.Row{
		"",
		fmt.Sprintf("%d exported, %d skipped, %d failed", len(report.Exported), len(report.Skipped), len(report.Failed)),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	})
	t.Render()
}

package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/healthloom-cli/internal/analysis"
	"github.com/KaramelBytes/healthloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaOutputPath string
	anaDelimiter  string
	anaSampleRows int
	anaMaxRows    int
	anaGroupBy    []string
	anaCorr       bool
	anaOutliers   bool
	anaOutlierThr float64
	anaNoUnits    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file.csv]",
	Short: "Summarize a converted health CSV",
	Long: `Analyze reads a converted CSV and prints a markdown summary: schema with
per-column statistics, optional group-by aggregation (try --group-by type),
Pearson correlations, and robust outlier counts. With no argument it picks the
newest converted CSV in the configured output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveCSVArg(args)
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		if cfg != nil {
			opt.MaxRows = cfg.MaxRows
			opt.SampleRows = cfg.SampleRows
		}
		if cmd.Flags().Changed("sample-rows") {
			opt.SampleRows = anaSampleRows
		}
		if cmd.Flags().Changed("max-rows") {
			opt.MaxRows = anaMaxRows
		}
		switch anaDelimiter {
		case "":
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", anaDelimiter)
		}
		opt.GroupBy = anaGroupBy
		opt.Correlations = anaCorr
		if cmd.Flags().Changed("outliers") {
			opt.Outliers = anaOutliers
		} else {
			opt.Outliers = true
		}
		if anaOutlierThr > 0 {
			opt.OutlierThreshold = anaOutlierThr
		}
		if anaNoUnits {
			opt.NormalizeUnits = false
		}

		rep, err := analysis.AnalyzeCSV(path, opt)
		if err != nil {
			return err
		}
		md := rep.Markdown()
		if anaOutputPath != "" {
			if err := os.WriteFile(anaOutputPath, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Println(md)
		return nil
	},
}

// resolveCSVArg returns the explicit path argument or falls back to the
// newest converted CSV in the configured output directory.
func resolveCSVArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	dir, prefix := ".", "apple_health_export"
	if cfg != nil {
		if cfg.OutputDir != "" {
			dir = cfg.OutputDir
		}
		if cfg.CSVPrefix != "" {
			prefix = cfg.CSVPrefix
		}
	}
	path, err := utils.FindLatestCSV(dir, prefix)
	if err != nil {
		return "", err
	}
	debugf("using %s\n", path)
	return path, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 0, "maximum rows to process (0 = unlimited)")
	analyzeCmd.Flags().StringSliceVar(&anaGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeCmd.Flags().BoolVar(&anaCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	analyzeCmd.Flags().BoolVar(&anaOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	analyzeCmd.Flags().Float64Var(&anaOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	analyzeCmd.Flags().BoolVar(&anaNoUnits, "no-unit-normalize", false, "skip lb/°F/mi unit normalization of the value column")
}

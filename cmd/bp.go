package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/healthloom-cli/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	bpOutputPath string
	bpYears      []int
	bpLang       string
	bpNoWeekly   bool
	bpDelimiter  string
)

var bpCmd = &cobra.Command{
	Use:   "bp [file.csv]",
	Short: "Blood pressure and heart rate statistics from a converted CSV",
	Long: `Bp pairs each systolic reading with the nearest diastolic reading, then
reports overall averages, linear trends for both series, heart rate statistics
over the same window, and weekly box summaries (the numbers behind the usual
scatter-with-trend and weekly boxplot views). With no argument it picks the
newest converted CSV in the configured output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveCSVArg(args)
		if err != nil {
			return err
		}
		opt := analysis.BPOptions{
			Years:  bpYears,
			Weekly: !bpNoWeekly,
		}
		switch bpDelimiter {
		case "":
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", bpDelimiter)
		}
		lang := bpLang
		if lang == "" && cfg != nil {
			lang = cfg.ReportLang
		}

		rep, err := analysis.BuildBPReport(path, opt)
		if err != nil {
			return err
		}
		debugf("%d paired readings, %d heart rate readings in window\n", rep.Pairs, rep.HRCount)
		md := rep.Markdown(lang)
		if bpOutputPath != "" {
			if err := os.WriteFile(bpOutputPath, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote report to %s\n", bpOutputPath)
			return nil
		}
		fmt.Println(md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bpCmd)
	bpCmd.Flags().StringVarP(&bpOutputPath, "output", "o", "", "optional path to write the report (Markdown)")
	bpCmd.Flags().IntSliceVar(&bpYears, "years", nil, "restrict to these years, e.g. --years 2015,2016,2019")
	bpCmd.Flags().StringVar(&bpLang, "lang", "", "report label language: en | de (default from config)")
	bpCmd.Flags().BoolVar(&bpNoWeekly, "no-weekly", false, "skip the weekly box summaries")
	bpCmd.Flags().StringVar(&bpDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
}

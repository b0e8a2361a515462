package cmd

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/healthloom-cli/internal/export"
	"github.com/spf13/cobra"
)

var (
	convOutputDir  string
	convPrefix     string
	convNoManifest bool
	convKeepIdents bool
	convNoSort     bool
	convDateFormat string
)

var convertCmd = &cobra.Command{
	Use:   "convert <export.xml|export.zip|dir>",
	Short: "Convert an Apple Health export into a flat CSV",
	Long: `Convert reads an Apple Health export (the raw export.xml, the export.zip
Apple ships, or an unzipped export directory), flattens every record and its
metadata entries into one row, and writes a dated CSV plus a run manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		started := time.Now()

		progressf("Reading %s...", input)
		data, err := export.ReadExport(input)
		if err != nil {
			progressf("\n")
			return err
		}
		progressf("done! (%d bytes)\n", len(data))

		progressf("Pre-processing...")
		data = export.Preprocess(data)
		progressf("done!\n")

		progressf("Converting XML to CSV...")
		records, err := export.Parse(data)
		if err != nil {
			progressf("\n")
			return err
		}
		table := export.Flatten(records)
		if !convKeepIdents {
			table.StripIdentifiers()
		}
		table.Reorder()
		if !convNoSort {
			table.SortByStartDate()
		}
		progressf("done!\n")
		debugf("parsed %d records into %d columns\n", len(table.Rows), len(table.Columns))

		opt := export.WriteOptions{
			OutDir:     convOutputDir,
			Prefix:     convPrefix,
			DateFormat: convDateFormat,
		}
		if cfg != nil {
			if opt.OutDir == "" {
				opt.OutDir = cfg.OutputDir
			}
			if opt.Prefix == "" {
				opt.Prefix = cfg.CSVPrefix
			}
			if opt.DateFormat == "" {
				opt.DateFormat = cfg.DateFormat
			}
		}

		progressf("Saving CSV file...")
		csvPath, err := export.WriteCSV(table, opt)
		if err != nil {
			progressf("\n")
			return err
		}
		progressf("done!\n")
		fmt.Printf("✓ Wrote %d rows to %s\n", len(table.Rows), csvPath)

		writeManifest := !convNoManifest
		if cfg != nil && !cfg.WriteManifest {
			writeManifest = false
		}
		if writeManifest {
			mPath, err := export.WriteManifest(table, input, csvPath, time.Since(started))
			if err != nil {
				return fmt.Errorf("write manifest: %w", err)
			}
			debugf("manifest at %s\n", mPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVarP(&convOutputDir, "output", "o", "", "output directory for the CSV (default from config)")
	convertCmd.Flags().StringVar(&convPrefix, "prefix", "", "CSV filename prefix (default apple_health_export)")
	convertCmd.Flags().StringVar(&convDateFormat, "date-format", "", "Go layout for the filename date (default 2006-01-02)")
	convertCmd.Flags().BoolVar(&convNoManifest, "no-manifest", false, "skip writing the run manifest JSON")
	convertCmd.Flags().BoolVar(&convKeepIdents, "keep-identifiers", false, "keep the full HK identifier prefixes in type values and column names")
	convertCmd.Flags().BoolVar(&convNoSort, "no-sort", false, "keep document order instead of sorting newest first")
}

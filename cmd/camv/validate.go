package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/camvtools/camv/internal/fragment"
	"github.com/camvtools/camv/internal/localize"
	"github.com/camvtools/camv/internal/match"
	"github.com/camvtools/camv/internal/peptide"
	"github.com/camvtools/camv/internal/pipeline"
	"github.com/camvtools/camv/internal/searchdata"
	"github.com/camvtools/camv/internal/spectra"
	"github.com/camvtools/camv/internal/store"
)

func newValidateCmd() *cobra.Command {
	var (
		searchPath string
		mgfPath    string
		outPath    string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Match search hits against spectra and score modification sites",
		Long: `Validate enumerates candidate modification placements for each search hit,
generates theoretical fragment ions, matches them against the MGF spectra
and writes ranked localization results to a DuckDB database.`,
		Example: `  camv validate --search hits.tsv --mgf run01.mgf --out run01.duckdb
  camv validate --search hits.tsv.gz --mgf run01.mgf.gz --out run01.duckdb --workers 8
  camv validate --search hits.tsv --mgf run01.mgf --out run01.duckdb --tolerance 20 --tolerance-unit ppm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger(verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			opts := pipeline.Options{
				Enumerate: peptide.EnumerateOptions{
					MaxCombinations: viper.GetInt("combinations.max"),
					Unrestricted:    viper.GetBool("combinations.unrestricted"),
					Strict:          viper.GetBool("combinations.strict"),
				},
				Fragment: fragment.Config{
					A:         viper.GetBool("series.a"),
					Internal:  viper.GetBool("series.internal"),
					Immonium:  viper.GetBool("series.immonium"),
					Reporters: viper.GetBool("series.reporters"),
					LossDepth: fragment.DefaultConfig().LossDepth,
				},
				Localize: localize.Config{
					Margin:    viper.GetFloat64("localize.margin"),
					AutoMaybe: viper.GetBool("localize.auto_maybe"),
				},
				Workers: viper.GetInt("workers"),
			}
			if v := viper.GetFloat64("tolerance.value"); v > 0 {
				tol, err := parseTolerance(v, viper.GetString("tolerance.unit"))
				if err != nil {
					return err
				}
				opts.Tolerance = &tol
			}

			return runValidate(cmd, logger, opts, searchPath, mgfPath, outPath)
		},
	}

	cmd.Flags().StringVar(&searchPath, "search", "", "Search hits TSV file (plain or gzipped)")
	cmd.Flags().StringVar(&mgfPath, "mgf", "", "MGF spectra file (plain or gzipped)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output DuckDB database path")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	cmd.Flags().Float64("tolerance", 0, "Fragment match tolerance (0 selects per-collision-type defaults)")
	cmd.Flags().String("tolerance-unit", "ppm", "Tolerance unit: ppm or da")
	cmd.Flags().Int("workers", 0, "Worker goroutines (0 selects the CPU count)")
	cmd.Flags().Int("max-combinations", peptide.DefaultMaxCombinations, "Cap on modification placements per peptide")
	cmd.Flags().Bool("unrestricted", false, "Remove the combination cap (reprocessing mode)")
	cmd.Flags().Bool("strict", false, "Fail peptides that exceed the combination cap")
	cmd.Flags().Float64("margin", localize.DefaultMargin, "Probability gap below which top placements are ambiguous")
	cmd.Flags().Bool("auto-maybe", true, "Pre-mark ambiguous top hits for review")
	cmd.Flags().Bool("a-ions", true, "Generate a-series ions")
	cmd.Flags().Bool("internal-ions", true, "Generate internal fragment ions")
	cmd.Flags().Bool("immonium-ions", true, "Generate immonium ions")
	cmd.Flags().Bool("reporter-ions", true, "Generate isobaric reporter ions")

	viper.BindPFlag("tolerance.value", cmd.Flags().Lookup("tolerance"))
	viper.BindPFlag("tolerance.unit", cmd.Flags().Lookup("tolerance-unit"))
	viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	viper.BindPFlag("combinations.max", cmd.Flags().Lookup("max-combinations"))
	viper.BindPFlag("combinations.unrestricted", cmd.Flags().Lookup("unrestricted"))
	viper.BindPFlag("combinations.strict", cmd.Flags().Lookup("strict"))
	viper.BindPFlag("localize.margin", cmd.Flags().Lookup("margin"))
	viper.BindPFlag("localize.auto_maybe", cmd.Flags().Lookup("auto-maybe"))
	viper.BindPFlag("series.a", cmd.Flags().Lookup("a-ions"))
	viper.BindPFlag("series.internal", cmd.Flags().Lookup("internal-ions"))
	viper.BindPFlag("series.immonium", cmd.Flags().Lookup("immonium-ions"))
	viper.BindPFlag("series.reporters", cmd.Flags().Lookup("reporter-ions"))

	cmd.MarkFlagRequired("search")
	cmd.MarkFlagRequired("mgf")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runValidate(cmd *cobra.Command, logger *zap.Logger, opts pipeline.Options, searchPath, mgfPath, outPath string) error {
	queries, err := loadQueries(searchPath)
	if err != nil {
		return fmt.Errorf("loading search hits: %w", err)
	}
	logger.Info("loaded search hits", zap.Int("queries", len(queries)), zap.String("path", searchPath))

	scans, err := loadScans(mgfPath)
	if err != nil {
		return fmt.Errorf("loading spectra: %w", err)
	}
	logger.Info("loaded spectra", zap.Int("scans", len(scans)), zap.String("path", mgfPath))

	validator, err := pipeline.New(opts)
	if err != nil {
		return err
	}
	validator.SetLogger(logger)

	results, err := validator.ProcessAll(cmd.Context(), queries, scans)
	if err != nil {
		return err
	}

	db, err := store.Open(outPath)
	if err != nil {
		return fmt.Errorf("opening results database: %w", err)
	}
	defer db.Close()

	if err := db.WriteResults(results); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	var ok, truncated, failed int
	for _, res := range results {
		switch res.Status {
		case pipeline.StatusFailed:
			failed++
		case pipeline.StatusTruncated:
			truncated++
		default:
			ok++
		}
	}
	logger.Info("validation complete",
		zap.Int("ok", ok),
		zap.Int("truncated", truncated),
		zap.Int("failed", failed),
		zap.String("out", outPath))
	fmt.Fprintf(cmd.OutOrStdout(), "Processed %d scans (%d ok, %d truncated, %d failed) -> %s\n",
		len(results), ok, truncated, failed, outPath)
	return nil
}

// loadQueries reads the full search hit table into memory.
func loadQueries(path string) ([]*peptide.Query, error) {
	parser, err := searchdata.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer parser.Close()
	return parser.All()
}

// loadScans reads all MGF spectra keyed by scan number. Duplicate scan
// numbers keep the first occurrence.
func loadScans(path string) (map[int]*spectra.Scan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	source := filepath.Base(path)
	scans := make(map[int]*spectra.Scan)
	reader := spectra.NewMGFReader(r, source)
	for reader.Next() {
		scan := reader.Scan()
		if _, seen := scans[scan.Number]; !seen {
			scans[scan.Number] = scan
		}
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	return scans, nil
}

func parseTolerance(value float64, unit string) (match.Tolerance, error) {
	var u match.Unit
	switch strings.ToLower(unit) {
	case "ppm":
		u = match.PPM
	case "da", "dalton":
		u = match.Dalton
	default:
		return match.Tolerance{}, fmt.Errorf("unknown tolerance unit %q (want ppm or da)", unit)
	}
	tol := match.Tolerance{Value: value, Unit: u}
	if err := tol.Validate(); err != nil {
		return match.Tolerance{}, err
	}
	return tol, nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}

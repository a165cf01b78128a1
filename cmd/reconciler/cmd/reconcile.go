package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pdf-reconciliation-service/cmd/reconciler/config"
	"pdf-reconciliation-service/internal/bundle"
	"pdf-reconciliation-service/internal/extractor"
	"pdf-reconciliation-service/internal/matcher"
	"pdf-reconciliation-service/internal/pdfops"
	"pdf-reconciliation-service/internal/reconciler"
	"pdf-reconciliation-service/pkg/logger"
)

// Flags for the reconcile command
var (
	invoicesDir string
	proofFile   string
	outputDir   string
	eventsFile  string
	logFormat   string

	toleranceMode    string
	amountTolerance  float64
	tolerancePercent float64
	minSharedPrefix  int
	codeSimilarity   float64
	lastResort       bool

	cacheFile    string
	disableOCR   bool
	ocrLanguages []string

	disableVision bool
	visionAPIKey  string
	visionModel   string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Pair invoice PDFs with proof-of-payment pages",
	Long: `Reconcile extracts amounts, billing codes and entity names from every
invoice PDF in a directory and from every page of a proof-of-payment PDF,
pairs the two sets, and writes a zip archive with one merged PDF per
matched invoice.

Extraction is tiered: the embedded text layer first, then OCR, then the
vision service, then the filename. OCR needs a local tesseract install;
the vision tier needs an API key (flag or RECONCILER_VISION_API_KEY).

Examples:
  # Basic reconciliation
  reconciler reconcile --invoices-dir ./invoices --proof-file proofs.pdf

  # Percentage tolerance and a custom output directory
  reconciler reconcile -i ./invoices -p proofs.pdf \
    --tolerance-mode percent --tolerance-percent 1.0 -o ./out

  # Stream progress events as NDJSON to stdout
  reconciler reconcile -i ./invoices -p proofs.pdf --events-file -

  # Reuse extraction results across runs
  reconciler reconcile -i ./invoices -p proofs.pdf --cache-file .extraction.db`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&invoicesDir, "invoices-dir", "i", "", "directory with invoice PDFs (required)")
	reconcileCmd.Flags().StringVarP(&proofFile, "proof-file", "p", "", "multi-page proof-of-payment PDF (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory for the result archive")
	reconcileCmd.Flags().StringVar(&eventsFile, "events-file", "", "write NDJSON progress events to this file ('-' for stdout)")
	reconcileCmd.Flags().StringVar(&logFormat, "log-format", "text", "log format: text, json")

	// Matching configuration flags
	reconcileCmd.Flags().StringVar(&toleranceMode, "tolerance-mode", "absolute", "amount tolerance mode: absolute, percent")
	reconcileCmd.Flags().Float64VarP(&amountTolerance, "amount-tolerance", "a", 0.05, "absolute amount tolerance in currency units")
	reconcileCmd.Flags().Float64Var(&tolerancePercent, "tolerance-percent", 2.0, "percentage amount tolerance (0.0-100.0)")
	reconcileCmd.Flags().IntVar(&minSharedPrefix, "min-shared-prefix", 20, "minimum shared digits for a partial code match")
	reconcileCmd.Flags().Float64Var(&codeSimilarity, "code-similarity", 0.6, "similarity threshold for fuzzy code matching (0.0-1.0)")
	reconcileCmd.Flags().BoolVar(&lastResort, "last-resort", true, "pair the single leftover invoice with the single leftover proof")

	// Extraction flags
	reconcileCmd.Flags().StringVar(&cacheFile, "cache-file", "", "sqlite file for caching extraction results (optional)")
	reconcileCmd.Flags().BoolVar(&disableOCR, "no-ocr", false, "disable the OCR extraction tier")
	reconcileCmd.Flags().StringSliceVar(&ocrLanguages, "ocr-languages", []string{"por", "eng"}, "tesseract language packs")
	reconcileCmd.Flags().BoolVar(&disableVision, "no-vision", false, "disable the vision extraction tier")
	reconcileCmd.Flags().StringVar(&visionAPIKey, "vision-api-key", "", "vision service API key (or RECONCILER_VISION_API_KEY)")
	reconcileCmd.Flags().StringVar(&visionModel, "vision-model", extractor.DefaultVisionModel, "vision model name")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("invoices-dir")
	reconcileCmd.MarkFlagRequired("proof-file")

	// Bind flags to viper
	viper.BindPFlag("invoices-dir", reconcileCmd.Flags().Lookup("invoices-dir"))
	viper.BindPFlag("proof-file", reconcileCmd.Flags().Lookup("proof-file"))
	viper.BindPFlag("output-dir", reconcileCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("events-file", reconcileCmd.Flags().Lookup("events-file"))
	viper.BindPFlag("log-format", reconcileCmd.Flags().Lookup("log-format"))
	viper.BindPFlag("tolerance-mode", reconcileCmd.Flags().Lookup("tolerance-mode"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("tolerance-percent", reconcileCmd.Flags().Lookup("tolerance-percent"))
	viper.BindPFlag("min-shared-prefix", reconcileCmd.Flags().Lookup("min-shared-prefix"))
	viper.BindPFlag("code-similarity", reconcileCmd.Flags().Lookup("code-similarity"))
	viper.BindPFlag("last-resort", reconcileCmd.Flags().Lookup("last-resort"))
	viper.BindPFlag("cache-file", reconcileCmd.Flags().Lookup("cache-file"))
	viper.BindPFlag("no-ocr", reconcileCmd.Flags().Lookup("no-ocr"))
	viper.BindPFlag("ocr-languages", reconcileCmd.Flags().Lookup("ocr-languages"))
	viper.BindPFlag("no-vision", reconcileCmd.Flags().Lookup("no-vision"))
	viper.BindPFlag("vision-api-key", reconcileCmd.Flags().Lookup("vision-api-key"))
	viper.BindPFlag("vision-model", reconcileCmd.Flags().Lookup("vision-model"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file and env)
	invoicesDir = viper.GetString("invoices-dir")
	proofFile = viper.GetString("proof-file")
	outputDir = viper.GetString("output-dir")
	eventsFile = viper.GetString("events-file")
	logFormat = viper.GetString("log-format")
	toleranceMode = viper.GetString("tolerance-mode")
	amountTolerance = viper.GetFloat64("amount-tolerance")
	tolerancePercent = viper.GetFloat64("tolerance-percent")
	minSharedPrefix = viper.GetInt("min-shared-prefix")
	codeSimilarity = viper.GetFloat64("code-similarity")
	lastResort = viper.GetBool("last-resort")
	cacheFile = viper.GetString("cache-file")
	disableOCR = viper.GetBool("no-ocr")
	ocrLanguages = viper.GetStringSlice("ocr-languages")
	disableVision = viper.GetBool("no-vision")
	visionAPIKey = viper.GetString("vision-api-key")
	visionModel = viper.GetString("vision-model")

	if invoicesDir == "" {
		return fmt.Errorf("invoices-dir is required")
	}
	if proofFile == "" {
		return fmt.Errorf("proof-file is required")
	}

	info, err := os.Stat(invoicesDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("invoices directory does not exist: %s", invoicesDir)
	}
	if err != nil {
		return fmt.Errorf("error accessing invoices directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("invoices-dir is not a directory: %s", invoicesDir)
	}

	if info, err := os.Stat(proofFile); err != nil {
		return fmt.Errorf("error accessing proof file: %w", err)
	} else if info.IsDir() {
		return fmt.Errorf("proof-file is a directory, expected a file: %s", proofFile)
	}

	if logFormat != "text" && logFormat != "json" {
		return fmt.Errorf("invalid log format '%s'. Valid formats: text, json", logFormat)
	}

	if mode := matcher.ToleranceMode(toleranceMode); !mode.IsValid() {
		return fmt.Errorf("invalid tolerance mode '%s'. Valid modes: absolute, percent", toleranceMode)
	}
	if amountTolerance < 0 {
		return fmt.Errorf("amount tolerance cannot be negative")
	}
	if tolerancePercent < 0.0 || tolerancePercent > 100.0 {
		return fmt.Errorf("tolerance percent must be between 0.0 and 100.0")
	}

	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		return fmt.Errorf("output directory does not exist: %s", outputDir)
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Logging is configured before any component grabs the global logger.
	log, err := logger.NewLogger(config.CreateLoggerConfig(viper.GetBool("verbose"), logFormat))
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	logger.SetGlobalLogger(log)

	matchConfig, err := config.CreateMatcherConfig(config.MatcherOptions{
		ToleranceMode:    toleranceMode,
		AmountTolerance:  amountTolerance,
		TolerancePercent: tolerancePercent,
		MinSharedPrefix:  minSharedPrefix,
		CodeSimilarity:   codeSimilarity,
		LastResort:       lastResort,
	})
	if err != nil {
		return err
	}

	sink, sinkCloser, err := config.CreateEventSink(eventsFile)
	if err != nil {
		return err
	}
	if sinkCloser != nil {
		defer sinkCloser.Close()
	}

	engine := pdfops.NewEngine()

	var ocr pdfops.OCRClient
	if !disableOCR {
		ocr, err = pdfops.NewTesseractClient(ocrLanguages...)
		if err != nil {
			// OCR is one tier of several; a missing tesseract install
			// degrades extraction instead of blocking the run.
			log.WithError(err).Warn("OCR unavailable, continuing without it")
		} else {
			defer ocr.Close()
		}
	}

	var vision extractor.VisionClient
	if !disableVision && visionAPIKey != "" {
		client, err := extractor.NewGeminiClient(ctx, visionAPIKey, visionModel)
		if err != nil {
			log.WithError(err).Warn("Vision service unavailable, continuing without it")
		} else {
			defer client.Close()
			vision = client
		}
	}

	var cache *extractor.Cache
	if cacheFile != "" {
		cache, err = extractor.OpenCache(cacheFile)
		if err != nil {
			log.WithError(err).Warn("Extraction cache unavailable, continuing without it")
		} else {
			defer cache.Close()
		}
	}

	pipeline := extractor.NewPipeline(extractor.DefaultTiers(engine, ocr, vision), cache)
	orchestrator := reconciler.New(engine, pipeline, matcher.NewFunnel(matchConfig), bundle.NewBuilder(engine), sink)

	invoices, skipped, err := reconciler.LoadInvoices(invoicesDir)
	if err != nil {
		return err
	}
	for _, skip := range skipped {
		log.WithError(skip).Warn("Skipping unreadable invoice file")
	}
	if len(invoices) == 0 {
		return fmt.Errorf("no invoice PDFs found in %s", invoicesDir)
	}

	proofData, err := reconciler.LoadProofFile(proofFile)
	if err != nil {
		return err
	}

	result, err := orchestrator.Run(ctx, invoices, proofData)
	if err != nil {
		return err
	}

	archivePath := filepath.Join(outputDir, result.Archive.Name)
	if err := os.WriteFile(archivePath, result.Archive.Data, 0644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	printSummary(result, archivePath)
	return nil
}

func printSummary(result *reconciler.Result, archivePath string) {
	summary := result.Summary

	fmt.Printf("Reconciliation finished: %d/%d invoices matched\n", summary.Matched, summary.TotalInvoices)
	for method, count := range summary.MatchesByMethod {
		fmt.Printf("  %-18s %d\n", method, count)
	}
	if summary.Unmatched > 0 {
		fmt.Printf("Unmatched invoices (%d):\n", summary.Unmatched)
		for _, rec := range result.UnmatchedInvoices {
			fmt.Printf("  %s\n", rec.Origin())
		}
	}
	if summary.UnusedProofs > 0 {
		fmt.Printf("Unused proof pages: %d\n", summary.UnusedProofs)
	}
	fmt.Printf("Archive: %s (%d entries)\n", archivePath, len(result.Archive.Entries))
}

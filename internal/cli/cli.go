// Package cli wires the command-line surface: flag handling, I/O at the
// process boundary, and assembly of the correction pipeline.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"neospeller/internal/cache"
	"neospeller/internal/config"
	"neospeller/internal/correction"
	"neospeller/internal/filewalker"
	"neospeller/internal/language"
	"neospeller/internal/pipeline"
	"neospeller/internal/worker"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:   "neospeller",
		Short: "Fixes spelling and grammar in source code comments",
		Long: `neospeller extracts the comments from a source file, sends only the
comment text to a correction service, and splices the corrected text back
into place. Code outside comments is never modified.`,
	}

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(checkDirCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Correct comments in a single file (or stdin) and print the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, _ := cmd.Flags().GetString("lang")
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runCheck(lang, path)
		},
	}

	cmd.Flags().String("lang", "", "Source language tag (e.g. python)")
	_ = cmd.MarkFlagRequired("lang")

	return cmd
}

func checkDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-dir <input-dir> <output-dir>",
		Short: "Correct comments in every supported file under a directory",
		Long: `Walks the input directory, infers each file's language from its
extension, and writes corrected copies under the output directory with the
same relative layout. Files whose correction fails are skipped, never
half-written.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckDir(args[0], args[1])
		},
	}
}

// runCheck handles the `check` command: one text in, one corrected text out.
func runCheck(langTag, path string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()

	desc, err := language.Lookup(langTag)
	if err != nil {
		return err
	}

	var input []byte
	if path != "" {
		input, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read input file: %w", err)
		}
	} else {
		input, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}

	corrector, cleanup, err := buildCorrector(ctx, cfg, desc.Name)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := pipeline.Run(ctx, string(input), desc, corrector)
	if err != nil {
		return err
	}

	// Stdout carries only the rebuilt source; diagnostics go to stderr.
	if _, err := os.Stdout.WriteString(out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// runCheckDir handles the `check-dir` command.
func runCheckDir(inputDir, outputDir string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()

	entries, err := filewalker.Walk(inputDir)
	if err != nil {
		return fmt.Errorf("walk input directory: %w", err)
	}
	if len(entries) == 0 {
		log.Warn().Str("root", inputDir).Msg("No supported files found")
		return nil
	}

	inputAbs, err := filepath.Abs(inputDir)
	if err != nil {
		return fmt.Errorf("resolve input directory: %w", err)
	}
	outputAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	if err := os.MkdirAll(outputAbs, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	store, pool, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	// One corrector per language so each request carries the right prompt;
	// the cache is shared across all of them.
	correctors := make(map[string]pipeline.Corrector)
	correctorFor := func(lang string) pipeline.Corrector {
		if c, ok := correctors[lang]; ok {
			return c
		}
		var c pipeline.Corrector = newClient(cfg, lang)
		if store != nil {
			c = cache.NewCorrector(store, c)
		}
		correctors[lang] = c
		return c
	}
	for _, e := range entries {
		correctorFor(e.Lang)
	}

	log.Info().Int("files", len(entries)).Msg("Starting correction pipeline")

	filePool := worker.New(cfg.WorkerCount, func(ctx context.Context, entry filewalker.FileEntry) (string, error) {
		desc, err := language.Lookup(entry.Lang)
		if err != nil {
			return "", err
		}
		input, err := os.ReadFile(entry.Path)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}

		out, err := pipeline.Run(ctx, string(input), desc, correctorFor(entry.Lang))
		if err != nil {
			return "", err
		}

		relPath, err := filepath.Rel(inputAbs, entry.Path)
		if err != nil {
			return "", fmt.Errorf("compute relative path: %w", err)
		}
		outPath := filepath.Join(outputAbs, relPath)
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		if err := os.WriteFile(outPath, []byte(out), 0644); err != nil {
			return "", fmt.Errorf("write output file: %w", err)
		}
		return outPath, nil
	})

	results := filePool.Run(ctx, entries)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		log.Info().Str("input", r.Input.Path).Str("output", r.Value).Msg("File corrected")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(entries))
	}

	log.Info().Int("files", len(entries)).Str("output", outputDir).Msg("Correction pipeline complete")
	return nil
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Warn().Msg("Received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

func newClient(cfg *config.Config, lang string) *correction.Client {
	return correction.NewClient(correction.Options{
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		Language:  lang,
		BatchSize: cfg.BatchSize,
	})
}

// openCache connects the Postgres-backed correction cache when DATABASE_URL
// is configured. Without it, corrections are not cached across runs.
func openCache(ctx context.Context, cfg *config.Config) (*cache.Cache, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")

	store := cache.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := store.Preload(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to preload cache")
	}

	return store, pool, nil
}

// buildCorrector assembles the corrector stack for a single invocation.
func buildCorrector(ctx context.Context, cfg *config.Config, lang string) (pipeline.Corrector, func(), error) {
	client := newClient(cfg, lang)

	store, pool, err := openCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if pool != nil {
			pool.Close()
		}
	}
	if store == nil {
		return client, cleanup, nil
	}
	return cache.NewCorrector(store, client), cleanup, nil
}

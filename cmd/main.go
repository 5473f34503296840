package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"study-assistant/internal/config"
	"study-assistant/internal/db"
	"study-assistant/internal/export"
	"study-assistant/internal/helper"
	"study-assistant/internal/inference"
	"study-assistant/internal/models"
	"study-assistant/internal/server"
	"study-assistant/internal/study"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the document file")
	serve := flag.Bool("serve", false, "Start the HTTP API")
	full := flag.Bool("full", false, "Generate MCQs for every chunk instead of the first few")
	query := flag.String("query", "", "Question to search the document for")
	embed := flag.Bool("embed", false, "Create embeddings and export them")
	outDir := flag.String("out", "", "Directory for exported files")
	seed := flag.Int64("seed", 0, "Seed for option shuffling and distractor sampling")
	dryRun := flag.Bool("dry-run", false, "Only extract and chunk, do not call any model")
	resetDB := flag.Bool("reset-db", false, "Drop and recreate the database tables")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if *outDir != "" {
		cfg.Study.DataDir = *outDir
	}
	if *seed != 0 {
		cfg.Questions.Seed = *seed
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Debug().Interface("config", cfg).Msg("Loaded config")

	if *serve && *filePath != "" {
		log.Fatal().Msg("Please provide either -serve or a document file using the -file flag, but not both")
	}
	if !*serve && *filePath == "" {
		log.Fatal().Msg("Please provide a document file using the -file flag or start the API with -serve")
	}

	ctx := context.Background()

	var dbInstance *bun.DB
	if cfg.Database.Enabled && !*dryRun {
		dbInstance = openDB(ctx, cfg, *resetDB)
		defer dbInstance.Close()
	}

	registry := inference.NewRegistry(cfg)
	svc := study.NewService(cfg, registry, dbInstance)

	if *serve {
		app := server.New(cfg, server.NewHandler(svc, study.NewStore()))
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
		return
	}

	runPipeline(ctx, svc, *filePath, options{
		full:    *full,
		embed:   *embed,
		query:   *query,
		dryRun:  *dryRun,
		dataDir: cfg.Study.DataDir,
	})
}

type options struct {
	full    bool
	embed   bool
	query   string
	dryRun  bool
	dataDir string
}

func openDB(ctx context.Context, cfg *config.Config, reset bool) *bun.DB {
	dbClient, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	dbInstance := db.NewDB(dbClient, cfg.Database.Debug)

	if reset {
		if err := db.DropAll(ctx, dbInstance); err != nil {
			log.Fatal().Err(err).Msg("Error clearing database")
		}
	}
	if err := db.InitDB(ctx, dbInstance); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}
	return dbInstance
}

// runPipeline prints every study view for one document, in the order the
// views are offered interactively.
func runPipeline(ctx context.Context, svc *study.Service, filePath string, opts options) {
	s, err := svc.IngestFile(ctx, filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error processing document")
	}
	log.Info().Msgf("Created %d chunks", len(s.Chunks))

	if path, err := svc.SaveChunks(s); err != nil {
		log.Error().Err(err).Msg("Error saving chunks")
	} else {
		log.Info().Str("path", path).Msg("Chunks saved")
	}

	if opts.dryRun {
		helper.PrettyPrint(s.Chunks)
		return
	}

	log.Info().Msg("Summaries: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	summaries, err := svc.Summaries(ctx, s)
	if err != nil {
		log.Fatal().Err(err).Msg("Error summarizing")
	}
	for _, sm := range summaries {
		fmt.Printf("Chunk %d → %s\n---\n", sm.ID, sm.Summary)
	}

	log.Info().Msg("MCQs: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	report, err := svc.MCQs(ctx, s, !opts.full)
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating MCQs")
	}
	for _, f := range report.Failures {
		log.Error().Err(f.Err).Int("chunk", f.ChunkID).Msg("MCQ generation failed")
	}
	for _, m := range report.MCQs {
		printMCQ(m)
	}
	if len(report.MCQs) > 0 {
		path, err := svc.SaveMCQs(ctx, s)
		if err != nil {
			log.Error().Err(err).Msg("Error saving MCQs")
		} else {
			log.Info().Str("path", path).Msg("MCQs saved")
		}
	}

	log.Info().Msg("Flashcards: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	cards, err := svc.Flashcards(ctx, s)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating flashcards")
	}
	for _, fc := range cards {
		fmt.Printf("Q: %s\nA: %s\n---\n", fc.Front, fc.Back)
	}
	if path, err := svc.SaveFlashcards(s, cards); err != nil {
		log.Error().Err(err).Msg("Error saving flashcards")
	} else {
		log.Info().Str("path", path).Msg("Flashcards saved")
	}

	bundle := map[string]any{
		"file":       s.Filename,
		"summaries":  summaries,
		"mcqs":       report.MCQs,
		"flashcards": cards,
	}
	name := strings.TrimSuffix(s.Filename, filepath.Ext(s.Filename)) + "_study.json"
	if _, err := export.SaveJSON(bundle, filepath.Join(opts.dataDir, name)); err != nil {
		log.Error().Err(err).Msg("Error saving study bundle")
	}

	if !opts.embed && opts.query == "" {
		return
	}

	if _, err := svc.Embed(ctx, s); err != nil {
		log.Fatal().Err(err).Msg("Error creating embeddings")
	}
	if opts.embed {
		path, err := svc.SaveEmbeddings(ctx, s)
		if err != nil {
			log.Error().Err(err).Msg("Error saving embeddings")
		} else {
			log.Info().Str("path", path).Msg("Embeddings saved")
		}
	}
	if opts.query == "" {
		return
	}

	results, err := svc.Ask(ctx, s, opts.query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error searching")
	}
	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", opts.query)
	for _, r := range results {
		fmt.Printf("Score: %.3f\n%s\n---\n", r.Score, r.Text)
	}

	response, err := svc.Chat(ctx, s, opts.query)
	if err != nil {
		log.Error().Err(err).Msg("Error answering")
		return
	}
	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)
}

func printMCQ(m models.MCQ) {
	fmt.Printf("Q: %s\n", m.Question)
	for i, opt := range m.Options {
		fmt.Printf("%c. %s\n", models.OptionLetters[i%len(models.OptionLetters)], opt)
	}
	fmt.Printf("Correct: %s\n---\n", m.Answer)
}

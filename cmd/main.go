package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"groundwater-rag/internal/api"
	"groundwater-rag/internal/config"
	"groundwater-rag/internal/embedding"
	"groundwater-rag/internal/helper"
	"groundwater-rag/internal/index"
	"groundwater-rag/internal/llmservice"
	"groundwater-rag/internal/parser"
	"groundwater-rag/internal/prompt"
	"groundwater-rag/internal/rag"
	"groundwater-rag/internal/telemetry"
)

const configFilePath = "./configs/config.yaml"

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	query := flag.String("query", "", "Answer a single question and exit")
	indexOnly := flag.Bool("index-only", false, "Build or load the vector index and exit")
	dryRun := flag.Bool("dry-run", false, "Parse and chunk the corpus without embedding or saving")
	exportFile := flag.String("export", "", "Export the chromem index snapshot to this file and exit")
	importFile := flag.String("import", "", "Import a chromem index snapshot from this file before starting")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	helper.InitLogger(cfg.Log)
	log.Debug().Interface("config", cfg.Index).Str("corpus", cfg.Corpus.Dir).Msg("Loaded config")

	if *dryRun {
		parseCorpus(cfg)
		return
	}

	// fail before embedding the corpus
	if err := checkCompletionKey(cfg, *exportFile, *indexOnly); err != nil {
		log.Fatal().Err(err).Msg("Missing completion API key")
	}

	ctx := context.Background()
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing tracer")
	}
	defer shutdownTracer(context.Background())

	store, idx := loadIndex(ctx, cfg, *importFile)
	defer store.Close()

	if *exportFile != "" {
		exportIndex(ctx, store, *exportFile)
		return
	}
	if *indexOnly {
		log.Info().Int("chunks", idx.Count()).Msg("Index ready")
		return
	}

	persona, err := prompt.Load(cfg.RAG.PersonaFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading persona")
	}
	assistant := newAssistant(cfg, idx, persona)

	if *query != "" {
		answerQuery(ctx, assistant, *query)
		return
	}

	serve(cfg, api.NewHandler(assistant, persona, idx))
}

// checkCompletionKey requires the inference key in the modes that call
// the completion API: serving and -query
func checkCompletionKey(cfg *config.Config, exportFile string, indexOnly bool) error {
	if exportFile != "" || indexOnly {
		return nil
	}
	return cfg.RequireInferenceKey()
}

// parseCorpus prints the chunks the indexer would embed
func parseCorpus(cfg *config.Config) {
	docs, chunks, err := parser.ParseToChunks(cfg.Corpus.Dir, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing corpus")
	}
	log.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Parsed corpus")
	helper.PrettyPrint(chunks)
}

func loadIndex(ctx context.Context, cfg *config.Config, importFile string) (index.Store, *index.VectorIndex) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	if cfg.Index.Backend == "chromem" && cfg.Index.PersistDir != "" {
		if err := helper.CreateFolder(cfg.Index.PersistDir); err != nil {
			log.Fatal().Err(err).Msg("Error creating folder")
		}
	}

	store, err := index.OpenStore(ctx, cfg, embedding.EmbeddingFunc(embedder))
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}

	if importFile != "" {
		cs, ok := store.(*index.ChromemStore)
		if !ok {
			log.Fatal().Str("backend", cfg.Index.Backend).Msg("Import requires the chromem backend")
		}
		if err := cs.Import(ctx, importFile); err != nil {
			log.Fatal().Err(err).Str("file", importFile).Msg("Error importing index")
		}
		log.Info().Str("file", importFile).Msg("Imported index snapshot")
	}

	idx, err := index.EnsureIndex(ctx, cfg.Corpus.Dir, store, embedder, index.OptionsFromConfig(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("Error preparing vector index")
	}
	return store, idx
}

func exportIndex(ctx context.Context, store index.Store, file string) {
	cs, ok := store.(*index.ChromemStore)
	if !ok {
		log.Fatal().Msg("Export requires the chromem backend")
	}
	if err := cs.Export(ctx, file); err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Error exporting index")
	}
	log.Info().Str("file", file).Msg("Exported index snapshot")
}

func newAssistant(cfg *config.Config, idx *index.VectorIndex, persona *prompt.Persona) *rag.RAG {
	llm, err := llmservice.NewClient(&cfg.InferenceLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing completion client")
	}
	retriever := rag.NewRetriever(idx, cfg.RAG.TopK, cfg.RAG.DomainKeyword)
	return rag.NewRAG(retriever, persona, llm)
}

func answerQuery(ctx context.Context, assistant *rag.RAG, query string) {
	reply, err := assistant.Ask(ctx, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	if !reply.HasAnswer() {
		log.Info().Msg("Message: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", reply.Message)
		return
	}

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, s := range reply.Sources {
		fmt.Println(s)
	}
	fmt.Println()

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", reply.Answer)
}

func serve(cfg *config.Config, handler *api.Handler) {
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(cfg, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Command bridged runs the permission-aware document sync and retrieval
// bridge between a source repository and a content lake: batch ingestion,
// asynchronous text extraction/chunking/embedding, and a semantic
// search/RAG HTTP API scoped to the caller's read authorities.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aborroy/alfresco-lake-bridge/internal/chatclient"
	"github.com/aborroy/alfresco-lake-bridge/internal/config"
	"github.com/aborroy/alfresco-lake-bridge/internal/discovery"
	"github.com/aborroy/alfresco-lake-bridge/internal/embedclient"
	"github.com/aborroy/alfresco-lake-bridge/internal/extraction"
	"github.com/aborroy/alfresco-lake-bridge/internal/httpapi"
	"github.com/aborroy/alfresco-lake-bridge/internal/httpauth"
	"github.com/aborroy/alfresco-lake-bridge/internal/ingest"
	"github.com/aborroy/alfresco-lake-bridge/internal/jobs"
	"github.com/aborroy/alfresco-lake-bridge/internal/lakeclient"
	"github.com/aborroy/alfresco-lake-bridge/internal/logging"
	"github.com/aborroy/alfresco-lake-bridge/internal/queue"
	"github.com/aborroy/alfresco-lake-bridge/internal/rag/prompt"
	"github.com/aborroy/alfresco-lake-bridge/internal/retrieval"
	"github.com/aborroy/alfresco-lake-bridge/internal/sourceclient"
	"github.com/aborroy/alfresco-lake-bridge/internal/syncsvc"
	"github.com/aborroy/alfresco-lake-bridge/internal/workerpool"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("bridged")
	}
}

func run() error {
	cfgPath := flag.String("config", "config.yaml", "path to the bridge's YAML configuration")
	logLevel := flag.String("log-level", "info", "zerolog level (trace, debug, info, warn, error)")
	logPretty := flag.Bool("log-pretty", false, "render logs through zerolog's console writer")
	flag.Parse()

	logging.Init(*logLevel, *logPretty)
	logger := logging.Component("bridged")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	source := sourceclient.New(cfg.Source.URL, cfg.Source.Security.BasicAuth.Username, cfg.Source.Security.BasicAuth.Password)

	lake := lakeclient.New(cfg.Lake.URL, cfg.Lake.RepositoryID, lakeclient.Config{
		TokenURL:     cfg.Lake.IDP.TokenURL,
		ClientID:     cfg.Lake.IDP.ClientID,
		ClientSecret: cfg.Lake.IDP.ClientSecret,
		Username:     cfg.Lake.IDP.Username,
		Password:     cfg.Lake.IDP.Password,
	})

	if cfg.Lake.Model.Bootstrap.Enabled {
		if frags, err := parseBootstrapFragments(cfg.Lake.Model.Bootstrap.Fragments); err != nil {
			logger.Warn().Err(err).Msg("skip model bootstrap: invalid fragment configuration")
		} else if err := lake.EnsureModel(context.Background(), frags); err != nil {
			logger.Warn().Err(err).Msg("model bootstrap failed, continuing with existing schema")
		}
	}

	extract := extraction.New(cfg.TransformService.URL, time.Duration(cfg.TransformService.TimeoutMs)*time.Millisecond)
	embed := embedclient.New(cfg.EmbeddingClient.BaseURL, cfg.EmbeddingClient.APIKey, cfg.EmbeddingClient.Model,
		time.Duration(cfg.EmbeddingClient.TimeoutMs)*time.Millisecond)
	chat := chatclient.New(chatclient.Config{
		Provider: cfg.ChatClient.Provider,
		BaseURL:  cfg.ChatClient.BaseURL,
		APIKey:   cfg.ChatClient.APIKey,
		Model:    cfg.ChatClient.Model,
		Timeout:  time.Duration(cfg.ChatClient.TimeoutMs) * time.Millisecond,
	})

	q := queue.New(cfg.Transform.QueueCapacity)
	jobRegistry := jobs.New()

	ingester := ingest.New(lake, source, q, jobRegistry, cfg.Lake.TargetPath, logging.Component("ingest"))

	configuredRoots := make([]discovery.RootConfig, 0, len(cfg.Sources))
	for _, r := range cfg.Sources {
		configuredRoots = append(configuredRoots, discovery.RootConfig{
			FolderID: r.Folder, Recursive: r.Recursive, Types: r.Types, MimeTypes: r.MimeTypes,
		})
	}
	exclusion := discovery.ExclusionConfig{Paths: cfg.Exclude.Paths, Aspects: cfg.Exclude.Aspects}
	syncer := syncsvc.New(source, ingester, jobRegistry, configuredRoots, exclusion, logging.Component("syncsvc"))

	pool := workerpool.New(workerpool.Config{
		Workers:              cfg.Transform.WorkerThreads,
		MaxChunkSize:         cfg.Embedding.ChunkSize,
		MinChunkSize:         cfg.Embedding.ChunkSize / 4,
		ChunkOverlap:         cfg.Embedding.ChunkOverlap,
		ExtractionTimeoutMs:  cfg.TransformService.TimeoutMs,
	}, q, source, extract, embed, lake, logging.Component("workerpool"))

	retriever := retrieval.New(embed, source, lake, cfg.Embedding.ModelName, logging.Component("retrieval"))
	ragCfg := prompt.Config{
		DefaultTopK:         cfg.RAG.DefaultTopK,
		DefaultMinScore:     cfg.RAG.DefaultMinScore,
		MaxContextLength:    cfg.RAG.MaxContextLength,
		DefaultSystemPrompt: cfg.RAG.DefaultSystemPrompt,
	}
	orchestrator := prompt.New(retriever, chat, ragCfg)

	sourceValidator := httpauth.NewSourceValidator(cfg.Source.URL, &http.Client{Timeout: 30 * time.Second})
	authMiddleware := httpauth.Middleware(sourceValidator, sourceValidator)

	api := httpapi.NewServer(syncer, jobRegistry, q, retriever, orchestrator, repositoryResolver{source}).
		WithHealthCheckers(source, lake, extract)
	logged := httpapi.LoggingMiddleware(logging.Component("http"))
	handler := logged(publicAndProtected(api, authMiddleware(api)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	poolCtx, poolCancel := context.WithCancel(context.Background())
	defer poolCancel()
	go pool.Run(poolCtx)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("bridged listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	poolCancel()

	return nil
}

// publicAndProtected routes actuator health/info straight to api, bypassing
// authentication, and sends everything else through the protected handler.
func publicAndProtected(api, protected http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/actuator/", api)
	mux.Handle("/", protected)
	return mux
}

// repositoryResolver adapts sourceclient.Client to httpapi.RepositoryResolver.
type repositoryResolver struct {
	source *sourceclient.Client
}

func (r repositoryResolver) RepositoryID(ctx context.Context) (string, error) {
	return r.source.RepositoryID(ctx)
}

func parseBootstrapFragments(raw map[string]string) (lakeclient.Fragments, error) {
	var frags lakeclient.Fragments
	for section, body := range raw {
		var target *map[string]json.RawMessage
		switch section {
		case "schemas":
			target = &frags.Schemas
		case "types":
			target = &frags.Types
		case "mixinTypes":
			target = &frags.MixinTypes
		default:
			continue
		}
		var parsed map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &parsed); err != nil {
			return lakeclient.Fragments{}, fmt.Errorf("parse %s fragment: %w", section, err)
		}
		*target = parsed
	}
	return frags, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/m-mizutani/clog"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ideawell/cofounderd/internal/api"
	"github.com/ideawell/cofounderd/internal/chat"
	"github.com/ideawell/cofounderd/internal/completion"
	"github.com/ideawell/cofounderd/internal/composer"
	"github.com/ideawell/cofounderd/internal/config"
	"github.com/ideawell/cofounderd/internal/embedding"
	"github.com/ideawell/cofounderd/internal/insights"
	"github.com/ideawell/cofounderd/internal/memory"
	"github.com/ideawell/cofounderd/internal/retrieval"
	"github.com/ideawell/cofounderd/internal/storage"
	"github.com/ideawell/cofounderd/internal/vectorstore"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the cofounderd server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running cofounderd server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cofounderd system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "cofounderd.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func initLogging(level string) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	handler := clog.New(
		clog.WithWriter(os.Stderr),
		clog.WithLevel(logLevel),
		clog.WithTimeFmt("15:04:05"),
		clog.WithSource(false),
		clog.WithAttrHook(clog.GoerrHook),
	)
	slog.SetDefault(slog.New(handler))
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "cofounderd version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	initLogging(cfg.Log.Level)

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("cofounderd is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("cofounderd is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the relational conversation log.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Embedding client, optionally wrapped in the in-process cache.
	var embedder embedding.Client = embedding.NewHTTPClient(embedding.Options{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	})
	if cfg.Embedding.CacheEntries > 0 {
		cached, err := embedding.NewCachedClient(embedder, cfg.Embedding.CacheEntries)
		if err != nil {
			return fmt.Errorf("building embedding cache: %w", err)
		}
		embedder = cached
	}

	// Vector memory backend.
	var vectors vectorstore.Store
	switch cfg.Vector.Backend {
	case "pinecone":
		vectors = vectorstore.NewPineconeStore(vectorstore.PineconeOptions{
			Host:       cfg.Vector.PineconeHost,
			APIKey:     cfg.Vector.PineconeAPIKey,
			Namespace:  cfg.Vector.Namespace,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    cfg.Vector.Timeout,
		})
		slog.Info("using pinecone vector backend", "host", cfg.Vector.PineconeHost, "namespace", cfg.Vector.Namespace)
	case "embedded":
		embeddedStore, err := vectorstore.NewChromemStore(vectorstore.ChromemOptions{
			Name:       cfg.Vector.Namespace,
			Dimensions: cfg.Embedding.Dimensions,
			DataDir:    cfg.Vector.DataDir,
		})
		if err != nil {
			return fmt.Errorf("opening embedded vector store: %w", err)
		}
		vectors = embeddedStore
		slog.Info("using embedded vector backend", "dataDir", cfg.Vector.DataDir)
	default:
		return fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}

	// Completion provider.
	var completer completion.Completer
	switch cfg.Completion.Provider {
	case "openai":
		completer = completion.NewOpenAIClient(completion.OpenAIOptions{
			BaseURL:   cfg.Completion.BaseURL,
			APIKey:    cfg.Completion.APIKey,
			Model:     cfg.Completion.Model,
			MaxTokens: cfg.Completion.MaxTokens,
			Timeout:   cfg.Completion.Timeout,
		})
	case "anthropic":
		completer = completion.NewAnthropicClient(completion.AnthropicOptions{
			APIKey:    cfg.Completion.APIKey,
			Model:     cfg.Completion.Model,
			MaxTokens: cfg.Completion.MaxTokens,
			Timeout:   cfg.Completion.Timeout,
		})
	default:
		return fmt.Errorf("unknown completion provider %q", cfg.Completion.Provider)
	}
	slog.Info("completion provider ready", "provider", cfg.Completion.Provider, "model", cfg.Completion.Model)

	// Build the turn pipeline.
	writer := memory.NewWriter(embedder, vectors)
	retriever := retrieval.NewRetriever(embedder, vectors, retrieval.Options{
		TopK:     cfg.Retrieval.TopK,
		MinScore: cfg.Retrieval.MinScore,
		Window:   cfg.Retrieval.Window,
	})
	comp := composer.New(0)
	orch := chat.NewOrchestrator(retriever, comp, completer, completion.NewFallback(nil), writer, store)
	analyzer := insights.NewAnalyzer(writer)

	// Build HTTP handler and server.
	var handler http.Handler = api.NewHandler(api.Deps{
		Chat:      orch,
		Retriever: retriever,
		Analyzer:  analyzer,
		Memory:    vectors,
		Log:       store,
	})
	if cfg.Server.APIToken != "" {
		handler = api.BearerAuth(cfg.Server.APIToken)(handler)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build the MCP server (stdio transport).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Searcher: retriever,
		Analyzer: analyzer,
		Writer:   writer,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "cofounderd listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	slog.Info("MCP server started (stdio transport)")

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("cofounderd is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop cofounderd (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to cofounderd (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Vector backend", "%s", cfg.Vector.Backend)
	if cfg.Vector.Backend == "pinecone" {
		printStatus("Pinecone host", "%s", cfg.Vector.PineconeHost)
	}
	printStatus("Embedding model", "%s", cfg.Embedding.Model)
	printStatus("Completion", "%s (%s)", cfg.Completion.Provider, cfg.Completion.Model)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"appbuilder-backend/internal/artifact"
	"appbuilder-backend/internal/client"
	"appbuilder-backend/internal/config"
	"appbuilder-backend/internal/session"
	"appbuilder-backend/internal/ui"
	"appbuilder-backend/pkg/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// version 构建时通过 -ldflags 注入
var version = "dev"

var (
	configPath string
	serverURL  string
	outDir     string
	previewAt  string
	showCode   bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "builder",
	Short: "Generate a single-file web app from a prompt",
	Long: `builder sends a natural language description to the app-builder server,
shows build progress while the code streams in, and writes the result to index.html.

Examples:
  builder generate "Landing Page for a coffee shop"
  builder generate "Task Manager" --out ./task-manager --preview :8080
  builder health`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate an app and write index.html",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the builder server is reachable",
	RunE:  runHealth,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "builder API base URL (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")

	generateCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write index.html to (default from config)")
	generateCmd.Flags().StringVar(&previewAt, "preview", "", "Serve a sandboxed preview on this address after the build, e.g. :8080")
	generateCmd.Flags().BoolVar(&showCode, "show-code", false, "Print the generated code as it streams in")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	if err := logger.InitWithOutput(level, "text", os.Stderr); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	if serverURL != "" {
		cfg.Client.ServerURL = serverURL
	}
	if outDir != "" {
		cfg.Client.OutputDir = outDir
	}
	if previewAt != "" {
		cfg.Client.PreviewAddress = previewAt
	}
	return cfg, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prompt := strings.Join(args, " ")
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(os.Stderr, "\n  Building: %s\n\n", prompt)

	sink := ui.NewTerminalSink(os.Stderr, ui.Options{
		ShowCode: showCode,
		Code:     os.Stdout,
		Spinner:  !color.NoColor,
	})
	defer sink.Stop()

	store := artifact.NewStore()
	coord := session.NewCoordinator(client.New(cfg.Client.ServerURL, nil), cfg.Progress, sink, store)

	s, err := coord.Submit(ctx, prompt)
	if err != nil {
		return err
	}

	// ctx 取消时会话自己会以失败结束
	if err := s.Wait(context.Background()); err != nil {
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) {
			return fmt.Errorf("server rejected the prompt: %w", err)
		}
		return fmt.Errorf("build failed after %d bytes: %w", len(s.Text()), err)
	}

	// 命令行里不等自动折叠，直接显示摘要
	if !s.Progress().Collapsed {
		s.ToggleDetail()
	}

	a, _ := s.Artifact()
	report, err := artifact.Inspect(a)
	if err != nil {
		logger.Warnf("failed to inspect artifact: %v", err)
	}

	path, err := artifact.WriteFile(cfg.Client.OutputDir, a)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Fprintf(os.Stderr, "\n  Saved %q to %s\n", report.Label(), path)
	if !report.Complete {
		color.New(color.FgYellow).Fprintf(os.Stderr, "  ⚠ the document looks incomplete (no closing </html>)\n")
	}

	if cfg.Client.PreviewAddress == "" {
		return nil
	}
	return servePreview(ctx, cfg.Client.PreviewAddress, store)
}

func servePreview(ctx context.Context, addr string, store *artifact.Store) error {
	server := &http.Server{
		Addr:    addr,
		Handler: artifact.NewPreviewRouter(store),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	color.New(color.FgCyan).Fprintf(os.Stderr, "  Preview at http://%s/ (Ctrl+C to stop)\n", previewHost(addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("preview server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func previewHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := client.New(cfg.Client.ServerURL, nil).Health(ctx)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "  ✗ %s unreachable\n", cfg.Client.ServerURL)
		return err
	}

	color.New(color.FgGreen).Fprintf(os.Stderr, "  ✓ %s: %s (%s)\n", cfg.Client.ServerURL, health.Status, health.Message)
	return nil
}

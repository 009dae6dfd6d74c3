package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"ytrag/internal/config"
	"ytrag/internal/domain"
	"ytrag/internal/embedding/tfidf"
	"ytrag/internal/llm"
	"ytrag/internal/logger"
	"ytrag/internal/service"
	"ytrag/internal/tokens"
	"ytrag/internal/tui"
	"ytrag/internal/youtube"
)

func tuiAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logFile, err := logger.OpenFile(cfg.Log.File)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	log, err := newLogger(cfg, logFile)
	if err != nil {
		return err
	}
	bot, err := newChatbot(cfg, log)
	if err != nil {
		return err
	}

	m := tui.New(ctx, bot, cmd.Args().First())
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func askAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("usage: ytrag ask <video> <question>")
	}
	ref := cmd.Args().First()
	question := strings.Join(cmd.Args().Tail(), " ")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	bot, err := newChatbot(cfg, log)
	if err != nil {
		return err
	}

	if _, err := bot.ProcessVideo(ctx, ref); err != nil {
		return errors.New(tui.DescribeError(err))
	}
	answer, err := bot.Ask(ctx, question)
	if err != nil {
		return errors.New(tui.DescribeError(err))
	}
	fmt.Println(answer)
	return nil
}

func loadConfig(cmd *cli.Command) (*config.AppConfig, error) {
	if err := config.LoadDotEnv(cmd.String("env")); err != nil {
		return nil, err
	}

	var (
		cfg *config.AppConfig
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.AppConfig, out io.Writer) (*slog.Logger, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	lc := logger.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.Log.Format
	if out != nil {
		lc.Output = out
	}
	return logger.New(lc), nil
}

func newChatbot(cfg *config.AppConfig, log *slog.Logger) (*service.Chatbot, error) {
	llmCfg := llm.Config{
		APIKey:  cfg.APIKey(os.LookupEnv),
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
	}

	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case config.EmbedderTFIDF:
		emb = tfidf.NewEmbedder()
	case config.EmbedderOpenAI:
		e, err := llm.NewEmbedder(llmCfg, cfg.Embedder.Model,
			llm.WithBatchSize(cfg.Embedder.BatchSize),
			llm.WithDimensions(cfg.Embedder.Dimensions),
			llm.WithRequestsPerSecond(cfg.Embedder.RequestsPerSecond),
			llm.WithEmbedderLogger(log))
		if err != nil {
			return nil, fmt.Errorf("embedder init failed: %w", err)
		}
		emb = e
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	gen, err := llm.NewGenerator(llmCfg, cfg.LLM.Model, cfg.LLM.Temperature,
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithGeneratorLogger(log))
	if err != nil {
		return nil, fmt.Errorf("generator init failed: %w", err)
	}

	source := youtube.NewClient(
		youtube.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Transcript.TimeoutSecs) * time.Second}),
		youtube.WithLogger(log))

	opts := []service.Option{service.WithLogger(log)}
	if counter, err := tokens.ForModel(cfg.LLM.Model); err != nil {
		log.Warn("token counting disabled", slog.Any("err", err))
	} else {
		opts = append(opts, service.WithTokenCounter(counter))
	}

	return service.NewChatbot(source, emb, gen, service.Config{
		Languages:        cfg.Transcript.Languages,
		ChunkSize:        cfg.Chunker.ChunkSize,
		ChunkOverlap:     cfg.Chunker.ChunkOverlap,
		RetrievalK:       cfg.Retrieval.K,
		SummarySentences: cfg.Summarizer.MaxSentences,
		PromptTemplate:   cfg.Prompt.Template,
	}, opts...)
}

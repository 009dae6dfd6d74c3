package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "ytrag",
		Usage: "Ask questions about a YouTube video from its transcript",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to YAML config file (default ./config.yaml, then ~/.config/ytrag/config.yaml)",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "path to .env file",
				Value: ".env",
			},
		},
		ArgsUsage: "[video]",
		Action:    tuiAction,
		Commands: []*cli.Command{
			{
				Name:      "tui",
				Usage:     "interactive terminal UI",
				ArgsUsage: "[video]",
				Action:    tuiAction,
			},
			{
				Name:      "ask",
				Usage:     "answer one question about a video and exit",
				ArgsUsage: "<video> <question>",
				Action:    askAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ytrag:", err)
		os.Exit(1)
	}
}

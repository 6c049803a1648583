package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jan/streamchat/internal/chat"
	"github.com/jan/streamchat/internal/client"
	"github.com/jan/streamchat/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file (optional, env vars work too)")
	verbose := flag.Bool("verbose", false, "print badges, emotes and role flags for each message")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <stream-url-or-handle>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "supported platforms: %s\n", strings.Join(client.Platforms(), ", "))
		flag.PrintDefaults()
		os.Exit(2)
	}
	streamURL := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	c, err := client.New(streamURL, cfg.Client())
	if err != nil {
		slog.Error("Failed to create client", "error", err)
		os.Exit(1)
	}
	slog.Info("Connecting", "platform", c.Platform(), "stream", streamURL)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := make(chan chat.Message, 64)
	errChan := make(chan error, 1)
	go func() {
		errChan <- c.Stream(ctx, out)
		close(out)
	}()

	for msg := range out {
		fmt.Printf("[%s] %s: %s\n", msg.Platform, msg.Author, msg.Content)
		if *verbose {
			printDetails(msg)
		}
	}

	if err := <-errChan; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Stream error", "error", err)
		os.Exit(1)
	}
	slog.Info("Disconnected")
}

func printDetails(msg chat.Message) {
	if len(msg.Badges) > 0 {
		fmt.Printf("  badges: %s\n", strings.Join(msg.Badges, ", "))
	}
	for _, e := range msg.Emotes {
		fmt.Printf("  emote: %s (%d-%d)\n", e.ID, e.Start, e.End)
	}
	if msg.Color != "" {
		fmt.Printf("  color: %s\n", msg.Color)
	}
	if msg.IsModerator || msg.IsSubscriber || msg.IsVIP {
		fmt.Printf("  mod=%t sub=%t vip=%t\n", msg.IsModerator, msg.IsSubscriber, msg.IsVIP)
	}
}

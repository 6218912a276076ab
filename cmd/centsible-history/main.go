package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"centsible/internal/cli"
	"centsible/internal/config"
	"centsible/internal/history"
	applog "centsible/internal/log"
	"centsible/internal/tui"
)

func main() {
	configFlag := flag.String("config", config.DefaultClientConfigPath(), "Path to the TOML config file")
	logFlag := flag.String("log", "", "Write logs to the specified file path")
	serverFlag := flag.String("server", "", "Server URL, overriding server_url")
	flag.Parse()

	loadResult, err := config.LoadClientFrom(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "centsible-history: config error: %v\n", err)
		os.Exit(1)
	}
	cfg := loadResult.Config
	for _, w := range loadResult.Warnings {
		fmt.Fprintf(os.Stderr, "centsible-history: config warning: %s\n", w)
	}
	if *serverFlag != "" {
		cfg.ServerURL = *serverFlag
	}

	// stdout belongs to the terminal UI
	var logOut io.Writer = io.Discard
	if *logFlag != "" {
		f, err := os.OpenFile(*logFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "centsible-history: failed to open log %q: %v\n", *logFlag, err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := cli.SetupLogger(applog.ComponentTUI, logOut)

	client, err := history.NewClient(cfg.ServerURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "centsible-history: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Starting history client", "server_url", cfg.ServerURL, "locale", cfg.Locale)

	model := tui.NewModel(client,
		tui.WithLocale(cfg.Locale),
		tui.WithUsername(cfg.Username),
		tui.WithAutoLoad(cfg.RefreshOnStart),
		tui.WithLogger(logger),
		tui.WithNow(time.Now),
	)
	p := tea.NewProgram(model, tea.WithAltScreen())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			p.Quit()
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "centsible-history: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/orlabot/relay-server/chat"
	"github.com/orlabot/relay-server/history"
	"github.com/orlabot/relay-server/linebot"
	"github.com/orlabot/relay-server/ollama"
	"github.com/orlabot/relay-server/session"
	"github.com/orlabot/relay-server/slackbot"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := LoadConfig()

	gateway := ollama.New(cfg.ChatURL, cfg.VisionURL)
	dispatcher := chat.NewDispatcher(gateway, chat.Models{
		Chat:     ollama.ModelChat,
		Question: ollama.ModelChatZhTW,
		Vision:   ollama.ModelVision,
		Prompt:   ollama.ModelPrompt,
	})

	if cfg.DBPath != "" {
		log, err := history.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open transcript log", "err", err)
			os.Exit(1)
		}
		defer log.Close()
		dispatcher.SetRecorder(log)
	}

	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	if cfg.SlackToken != "" {
		handler := slackbot.NewHandler(slackbot.NewClient(cfg.SlackToken), dispatcher)
		r.Handle("/slack/events", handler).Methods(http.MethodPost)
		if cfg.SlackAppToken != "" {
			go slackbot.NewSocketClient(cfg.SlackAppToken, handler).Run(context.Background())
		}
	} else {
		slog.Warn("SLACK_BOT_TOKEN not set, slack routes disabled")
	}

	if cfg.LineToken != "" && cfg.LineSecret != "" {
		handler := linebot.NewHandler(linebot.NewClient(cfg.LineToken), cfg.LineSecret, dispatcher)
		r.Handle("/line/callback", handler).Methods(http.MethodPost)
	} else {
		slog.Warn("LINE credentials not set, line routes disabled")
	}

	api := &apiHandler{
		Dispatcher:  dispatcher,
		Sessions:    session.NewRegistry(),
		ExternalURL: cfg.ExternalURL,
	}
	r.HandleFunc("/session", api.handleSession).Methods(http.MethodPost)
	r.HandleFunc("/messages", api.handleMessages).Methods(http.MethodPost)
	r.HandleFunc("/prompt", api.handlePrompt).Methods(http.MethodPost)

	if cfg.Warmup {
		go gateway.Warmup(context.Background())
	}

	slog.Info("relay-server starting", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

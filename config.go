package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr    string
	ChatURL       string
	VisionURL     string
	SlackToken    string
	SlackAppToken string
	LineToken     string
	LineSecret    string
	DBPath        string
	ExternalURL   string
	Warmup        bool
}

func LoadConfig() Config {
	// Populate the environment from .env if present, matching local setups.
	godotenv.Load()

	cfg := Config{}

	flag.StringVar(&cfg.ListenAddr, "addr", defaultAddr(), "Listen address")
	flag.StringVar(&cfg.ChatURL, "chat-url", envOrDefault("OLLAMA_CHAT_URL", "http://localhost:11434/api/chat"), "Chat completion endpoint")
	flag.StringVar(&cfg.VisionURL, "vision-url", envOrDefault("OLLAMA_VISION_URL", "http://localhost:11434/api/generate"), "Vision completion endpoint")
	flag.StringVar(&cfg.SlackToken, "slack-token", os.Getenv("SLACK_BOT_TOKEN"), "Slack bot token")
	flag.StringVar(&cfg.SlackAppToken, "slack-app-token", os.Getenv("SLACK_APP_TOKEN"), "Slack app-level token (enables Socket Mode)")
	flag.StringVar(&cfg.LineToken, "line-token", os.Getenv("LINE_CHANNEL_TOKEN"), "LINE channel access token")
	flag.StringVar(&cfg.LineSecret, "line-secret", os.Getenv("LINE_CHANNEL_SECRET"), "LINE channel secret")
	flag.StringVar(&cfg.DBPath, "db", os.Getenv("RELAY_DB"), "SQLite transcript log path (empty disables logging)")
	flag.StringVar(&cfg.ExternalURL, "external-url", os.Getenv("RELAY_EXTERNAL_URL"), "External URL embedded in session codes")
	flag.BoolVar(&cfg.Warmup, "warmup", envOrDefault("RELAY_WARMUP", "1") != "0", "Prime backend models at startup")
	flag.Parse()

	return cfg
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultAddr() string {
	if v := os.Getenv("RELAY_ADDR"); v != "" {
		return v
	}
	// Railway, Render, etc. set PORT
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":5001"
}

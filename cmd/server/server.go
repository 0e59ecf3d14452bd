package main

import (
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ftsurya/ai-recruitment-agent/internal/config"
	h "github.com/ftsurya/ai-recruitment-agent/internal/http"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
		}))
	}
	r := h.NewRouter(cfg)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

package http

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/ftsurya/ai-recruitment-agent/internal/config"
	"github.com/ftsurya/ai-recruitment-agent/internal/core/gemini"
	"github.com/ftsurya/ai-recruitment-agent/internal/core/interview"
	"github.com/ftsurya/ai-recruitment-agent/internal/core/proctor"
	"github.com/ftsurya/ai-recruitment-agent/internal/http/handlers"
	"github.com/ftsurya/ai-recruitment-agent/internal/repo/memory"
	"github.com/ftsurya/ai-recruitment-agent/pkg/ws"
)

func NewRouter(cfg config.Config) *gin.Engine {
	r := gin.Default()
	repo := memory.NewInterviewRepo()
	hub := ws.NewHub()

	vision, err := gemini.New(cfg.GeminiAPIKey, cfg.VisionModel)
	if err != nil {
		log.Fatal("gemini client:", err)
	}

	wsScheme := "ws"
	if os.Getenv("TLS") == "1" {
		wsScheme = "wss"
	}
	host := os.Getenv("PUBLIC_HOST")
	if host == "" {
		host = "localhost:" + cfg.Port
	}

	pcfg := proctor.Config{
		VisualInterval: cfg.VisualInterval,
		AudioInterval:  cfg.AudioInterval,
		NoiseThreshold: cfg.NoiseThreshold,
	}
	scfg := interview.Config{WarningLimit: cfg.WarningLimit}
	streamer := func() interview.Streamer {
		return gemini.NewLiveClient(cfg.GeminiAPIKey, cfg.LiveModel)
	}

	ih := handlers.NewInterviewsHandler(repo, wsScheme, host)
	lh := handlers.NewLiveHandler(hub, repo, vision, pcfg, scfg, streamer)

	api := r.Group("/v1")
	api.POST("/interviews", ih.Create)
	api.GET("/interviews/:id/summary", ih.Summary)
	r.GET("/v1/live", lh.WS)
	return r
}

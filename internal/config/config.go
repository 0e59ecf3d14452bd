package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port         string
	GeminiAPIKey string
	VisionModel  string
	LiveModel    string

	VisualInterval time.Duration
	AudioInterval  time.Duration
	NoiseThreshold float64
	WarningLimit   int

	LogFile string
}

func Load() Config {
	return Config{
		Port:           getenv("PORT", "8080"),
		GeminiAPIKey:   getenv("GEMINI_API_KEY", ""),
		VisionModel:    getenv("VISION_MODEL", "gemini-2.5-flash"),
		LiveModel:      getenv("LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
		VisualInterval: getdur("PROCTOR_VISUAL_INTERVAL", 15*time.Second),
		AudioInterval:  getdur("PROCTOR_AUDIO_INTERVAL", 2*time.Second),
		NoiseThreshold: getfloat("PROCTOR_NOISE_THRESHOLD", 35),
		WarningLimit:   getint("WARNING_LIMIT", 2),
		LogFile:        getenv("LOG_FILE", ""),
	}
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getdur(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if p, err := time.ParseDuration(v); err == nil {
			return p
		}
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			return p
		}
	}
	return d
}

func getfloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			return p
		}
	}
	return d
}

package gemini

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ftsurya/ai-recruitment-agent/pkg/types"
)

const proctoringPrompt = `You are an AI proctor for an online job interview. Analyze this single image frame captured from the candidate's webcam. Your task is to detect policy violations and quality issues.

Check for the following things:
1. Cheating: Is the candidate holding, looking at, or interacting with a mobile phone or any other secondary device? Be very strict about this.
2. Presence: Is a person clearly visible and sitting upright, facing forward towards the camera? The candidate must be present in the frame.
3. Eye Contact: Is the candidate's gaze significantly deviated away from the screen for what seems like an extended period? Infer this based on head position and eye direction. Flag this if it is very obvious.
4. Video Quality: Is the image very dark, blurry, or pixelated to the point where the candidate is not clearly visible?

Respond ONLY with a JSON object matching the provided schema.
- If a mobile phone is detected, set "cheating_detected" to true and "cheating_reason" to "Mobile phone usage".
- If the candidate is not visible, set "candidate_absent" to true.
- If significant eye contact deviation is detected, set "eye_contact_deviation" to true.
- If there's a major video quality problem, set "video_quality_issue" to true and provide a "video_quality_reason".
- If no issues are detected, set all boolean flags to false and reasons to "None".`

// Client wraps the generative model for discrete request/response calls
// (frame proctoring). The streaming interview session uses LiveClient.
type Client struct {
	c     *genai.Client
	model string
}

func New(apiKey, model string) (*Client, error) {
	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2: false,
		MaxIdleConns:      100,
		IdleConnTimeout:   90 * time.Second,
	}
	hc := &http.Client{Transport: tr, Timeout: 30 * time.Second}
	reqTimeout := 15 * time.Second
	cl, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
		HTTPOptions: genai.HTTPOptions{
			APIVersion: "v1",
			Timeout:    &reqTimeout,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Client{c: cl, model: model}, nil
}

func (g *Client) Close() error { return nil }

// AnalyzeFrame submits one JPEG webcam frame to the vision oracle and
// returns its structured judgment. The caller treats any error as "no
// violation detected this tick".
func (g *Client) AnalyzeFrame(ctx context.Context, jpeg []byte) (types.VisionResult, error) {
	parts := []*genai.Part{
		{Text: proctoringPrompt},
		{InlineData: &genai.Blob{Data: jpeg, MIMEType: "image/jpeg"}},
	}

	temp := float32(0.2)
	maxTok := int32(1024)
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"cheating_detected":     {Type: genai.TypeBoolean},
				"cheating_reason":       {Type: genai.TypeString},
				"candidate_absent":      {Type: genai.TypeBoolean},
				"eye_contact_deviation": {Type: genai.TypeBoolean},
				"video_quality_issue":   {Type: genai.TypeBoolean},
				"video_quality_reason":  {Type: genai.TypeString},
			},
			Required: []string{"cheating_detected", "candidate_absent"},
		},
		Temperature:     &temp,
		MaxOutputTokens: maxTok,
	}

	var lastErr error
	for i := 0; i < 3; i++ {
		resp, err := g.c.Models.GenerateContent(ctx, g.model, []*genai.Content{{Parts: parts}}, cfg)
		if err != nil {
			lastErr = err
			if retriable(err) {
				time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
				continue
			}
			return types.VisionResult{}, err
		}
		if out, ok := parseVision(resp); ok {
			return out, nil
		}
		lastErr = errors.New("empty response")
		time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
	}
	return types.VisionResult{}, lastErr
}

func parseVision(resp *genai.GenerateContentResponse) (types.VisionResult, bool) {
	var out types.VisionResult
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.MIMEType == "application/json" {
				if json.Unmarshal(p.InlineData.Data, &out) == nil {
					return out, true
				}
			}
			if p.Text != "" {
				if json.Unmarshal([]byte(p.Text), &out) == nil {
					return out, true
				}
			}
		}
	}
	if t := resp.Text(); t != "" {
		if json.Unmarshal([]byte(t), &out) == nil {
			return out, true
		}
	}
	return types.VisionResult{}, false
}

func retriable(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected EOF") ||
		strings.Contains(s, "timeout") ||
		strings.Contains(s, "RST_STREAM") ||
		strings.Contains(s, "connection reset")
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ftsurya/ai-recruitment-agent/internal/repo/memory"
	"github.com/ftsurya/ai-recruitment-agent/pkg/types"
)

type InterviewsHandler struct {
	Repo   *memory.InterviewRepo
	Scheme string
	Host   string
}

func NewInterviewsHandler(repo *memory.InterviewRepo, scheme, host string) *InterviewsHandler {
	return &InterviewsHandler{Repo: repo, Scheme: scheme, Host: host}
}

func (h *InterviewsHandler) Create(c *gin.Context) {
	var req types.CreateInterviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	iv := &memory.Interview{
		ID:             "intv_" + uuid.NewString(),
		CreatedAt:      time.Now(),
		CandidateName:  req.CandidateName,
		JobDescription: req.JobDescription,
		ResumeText:     req.ResumeText,
		Status:         "created",
	}
	h.Repo.Save(iv)
	wsURL := h.Scheme + "://" + h.Host + "/v1/live?sess=" + iv.ID
	c.JSON(http.StatusOK, types.CreateInterviewResp{
		InterviewID: iv.ID,
		WSURL:       wsURL,
	})
}

func (h *InterviewsHandler) Summary(c *gin.Context) {
	id := c.Param("id")
	iv, ok := h.Repo.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	resp := types.SummaryResp{
		InterviewID:   iv.ID,
		Status:        iv.Status,
		QuestionCount: iv.QuestionCount,
		WarningCount:  iv.WarningCount,
	}
	if iv.Artifact != nil {
		resp.Transcript = iv.Artifact.Transcript
		resp.CodeSubmission = iv.Artifact.CodeSubmission
		resp.RecordingData = iv.Artifact.RecordingData
	}
	c.JSON(http.StatusOK, resp)
}

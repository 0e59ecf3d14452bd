package memory

import (
	"sync"
	"time"

	"github.com/ftsurya/ai-recruitment-agent/pkg/types"
)

// Interview is the server-side record of one live interview session.
// Durable persistence of the artifact is the host application's job; this
// repo only holds state for the lifetime of the process.
type Interview struct {
	ID             string
	CreatedAt      time.Time
	CandidateName  string
	JobDescription string
	ResumeText     string
	Status         string
	QuestionCount  int
	WarningCount   int
	Artifact       *types.SessionArtifact
}

type InterviewRepo struct {
	m sync.Map
}

func NewInterviewRepo() *InterviewRepo {
	return &InterviewRepo{}
}

// Save stores a snapshot of iv. Stored records are never mutated in place;
// every update swaps in a fresh copy, so a record returned by Get stays
// stable while mutators run concurrently.
func (r *InterviewRepo) Save(iv *Interview) {
	snap := *iv
	r.m.Store(snap.ID, &snap)
}

func (r *InterviewRepo) Get(id string) (*Interview, bool) {
	v, ok := r.m.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Interview), true
}

func (r *InterviewRepo) SetStatus(id, status string) {
	v, ok := r.m.Load(id)
	if !ok {
		return
	}
	iv := *v.(*Interview)
	iv.Status = status
	r.m.Store(id, &iv)
}

func (r *InterviewRepo) SetProgress(id string, questions, warnings int) {
	v, ok := r.m.Load(id)
	if !ok {
		return
	}
	iv := *v.(*Interview)
	iv.QuestionCount = questions
	iv.WarningCount = warnings
	r.m.Store(id, &iv)
}

func (r *InterviewRepo) SetArtifact(id string, art types.SessionArtifact) {
	v, ok := r.m.Load(id)
	if !ok {
		return
	}
	iv := *v.(*Interview)
	iv.Artifact = &art
	r.m.Store(id, &iv)
}

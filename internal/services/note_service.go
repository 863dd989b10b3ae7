package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fanlume/fanlume-backend/internal/data/repos"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	pkgerrors "github.com/fanlume/fanlume-backend/internal/pkg/errors"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

const noteSystemPrompt = `You summarize what is known about a fan for the human operator who may take over the conversation. Write 2-4 plain sentences covering spending behavior, interests, and personal facts. No markdown, no headings, no speculation beyond the provided data.`

// NoteService maintains the free-text personal note on a fan profile.
// Notes are advisory context for operators, not an algorithmic input.
type NoteService interface {
	SetManual(dbc dbctx.Context, fanID, creatorID uuid.UUID, note, author string) error
	GenerateSummary(dbc dbctx.Context, fanID, creatorID uuid.UUID) (string, error)
}

type noteService struct {
	log      *logger.Logger
	profiles repos.FanProfileRepo
	memory   MemoryService
	client   OpenAIClient
}

func NewNoteService(baseLog *logger.Logger, profiles repos.FanProfileRepo, memory MemoryService, client OpenAIClient) NoteService {
	return &noteService{
		log:      baseLog.With("service", "NoteService"),
		profiles: profiles,
		memory:   memory,
		client:   client,
	}
}

func (s *noteService) SetManual(dbc dbctx.Context, fanID, creatorID uuid.UUID, note, author string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return pkgerrors.ErrInvalidArgument
	}
	return s.saveNote(dbc, fanID, creatorID, note, author)
}

// GenerateSummary asks the model for an operator-facing digest of the
// profile and memory context, then stores it as an AI-authored note.
func (s *noteService) GenerateSummary(dbc dbctx.Context, fanID, creatorID uuid.UUID) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("no language model configured")
	}
	profile, err := s.profiles.GetByPair(dbc, fanID, creatorID)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "", pkgerrors.ErrNotFound
	}
	mc, err := s.memory.GetMemoryContext(dbc, fanID, creatorID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Spending tier: %s (total %.2f). Quality tier: %s (score %d). Activity: %s.\n",
		profile.SpendingTier, profile.TotalSpent, profile.QualityTier, profile.QualityScore, profile.ActivityLevel)
	if profile.Language != "" {
		fmt.Fprintf(&b, "Language: %s.\n", profile.Language)
	}
	if profile.PreferredTone != nil {
		fmt.Fprintf(&b, "Tone: %s.\n", *profile.PreferredTone)
	}
	if facts := FormatForPrompt(mc); facts != "" {
		b.WriteString("Known facts: " + facts + "\n")
	}

	note, err := s.client.Generate(dbc.Ctx, noteSystemPrompt, b.String())
	if err != nil {
		return "", err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return "", fmt.Errorf("empty summary returned")
	}
	if err := s.saveNote(dbc, fanID, creatorID, note, "ai"); err != nil {
		return "", err
	}
	return note, nil
}

func (s *noteService) saveNote(dbc dbctx.Context, fanID, creatorID uuid.UUID, note, author string) error {
	now := time.Now().UTC()
	return s.profiles.UpdateFields(dbc, fanID, creatorID, map[string]any{
		"personal_note":            note,
		"personal_note_updated_at": now,
		"personal_note_updated_by": author,
	})
}

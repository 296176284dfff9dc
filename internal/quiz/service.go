package quiz

import (
	"context"
	"strings"
	"time"

	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/db"
	"github.com/mind-engage/aiquiz/internal/grading"
	"github.com/mind-engage/aiquiz/internal/logger"
	"github.com/mind-engage/aiquiz/internal/rbac"
)

// Service is the owner-scoped CRUD surface for banks, questions and quizzes.
// Non-owners get apierr.ErrUnauthorized unless their role grants the *:any permission.
type Service struct {
	store   *SQLStore
	checker *rbac.Checker
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store *SQLStore, checker *rbac.Checker, log *logger.Logger) *Service {
	if checker == nil {
		checker = rbac.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, checker: checker, log: log.With("service", "QuizService"), now: time.Now}
}

func (s *Service) ownedBank(ctx context.Context, p rbac.Principal, id string) (Bank, error) {
	b, err := s.store.GetBank(ctx, id)
	if err != nil {
		return Bank{}, err
	}
	return b, s.checker.Owns(p, b.OwnerID, rbac.PermBankAny)
}

func (s *Service) ownedQuiz(ctx context.Context, p rbac.Principal, id string) (Quiz, error) {
	qz, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	return qz, s.checker.Owns(p, qz.OwnerID, rbac.PermQuizAny)
}

// ---- banks ----

func (s *Service) CreateBank(ctx context.Context, p rbac.Principal, in BankInput) (*Bank, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	b := &Bank{ID: newID(), OwnerID: p.ID, Name: in.Name, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateBank(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ListBanks(ctx context.Context, p rbac.Principal, skip, limit int) ([]Bank, error) {
	skip, limit = db.Page(skip, limit)
	return s.store.ListBanks(ctx, p.ID, skip, limit)
}

// GetBank returns the bank with its questions.
func (s *Service) GetBank(ctx context.Context, p rbac.Principal, id string) (*Bank, error) {
	b, err := s.ownedBank(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if b.Questions, err = s.store.ListQuestions(ctx, id, 0, 1000); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Service) UpdateBank(ctx context.Context, p rbac.Principal, id string, patch BankPatch) (*Bank, error) {
	b, err := s.ownedBank(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apierr.Invalid("bank name is required")
		}
		b.Name = name
	}
	if patch.Description != nil {
		b.Description = *patch.Description
	}
	b.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateBank(ctx, b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Service) DeleteBank(ctx context.Context, p rbac.Principal, id string) error {
	if _, err := s.ownedBank(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.DeleteBank(ctx, id); err != nil {
		return err
	}
	s.log.Info("bank deleted", "bank_id", id, "user_id", p.ID)
	return nil
}

// ---- questions ----

func buildOptions(in []OptionInput) []Option {
	out := make([]Option, 0, len(in))
	for i, o := range in {
		out = append(out, Option{ID: newID(), Position: i + 1, Content: strings.TrimSpace(o.Content), IsCorrect: o.IsCorrect})
	}
	return out
}

func (s *Service) CreateQuestion(ctx context.Context, p rbac.Principal, bankID string, in QuestionInput) (*Question, error) {
	if _, err := s.ownedBank(ctx, p, bankID); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	q := &Question{
		ID:          newID(),
		BankID:      bankID,
		Prompt:      in.Prompt,
		Answer:      in.Answer,
		Explanation: in.Explanation,
		Difficulty:  in.Difficulty,
		Options:     buildOptions(in.Options),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) ListQuestions(ctx context.Context, p rbac.Principal, bankID string, skip, limit int) ([]Question, error) {
	if _, err := s.ownedBank(ctx, p, bankID); err != nil {
		return nil, err
	}
	skip, limit = db.Page(skip, limit)
	return s.store.ListQuestions(ctx, bankID, skip, limit)
}

func (s *Service) GetQuestion(ctx context.Context, p rbac.Principal, id string) (*Question, error) {
	q, owner, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checker.Owns(p, owner, rbac.PermBankAny); err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, p rbac.Principal, id string, patch QuestionPatch) (*Question, error) {
	q, err := s.GetQuestion(ctx, p, id)
	if err != nil {
		return nil, err
	}
	in := QuestionInput{Prompt: q.Prompt, Answer: q.Answer, Explanation: q.Explanation, Difficulty: q.Difficulty}
	if patch.Prompt != nil {
		in.Prompt = *patch.Prompt
	}
	if patch.Answer != nil {
		in.Answer = *patch.Answer
	}
	if patch.Explanation != nil {
		in.Explanation = *patch.Explanation
	}
	if patch.Difficulty != nil {
		in.Difficulty = *patch.Difficulty
	}
	if patch.Options != nil {
		in.Options = *patch.Options
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	q.Prompt, q.Answer, q.Explanation, q.Difficulty = in.Prompt, in.Answer, in.Explanation, in.Difficulty
	if patch.Options != nil {
		q.Options = buildOptions(in.Options)
	}
	if err := s.store.UpdateQuestion(ctx, *q, patch.Options != nil); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, p rbac.Principal, id string) error {
	if _, err := s.GetQuestion(ctx, p, id); err != nil {
		return err
	}
	return s.store.DeleteQuestion(ctx, id)
}

// ---- quizzes ----

func (s *Service) CreateQuiz(ctx context.Context, p rbac.Principal, in QuizInput) (*Quiz, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if _, err := s.ownedBank(ctx, p, in.BankID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	qz := &Quiz{
		ID:              newID(),
		OwnerID:         p.ID,
		BankID:          in.BankID,
		Title:           in.Title,
		DurationSeconds: in.DurationSeconds,
		RandomOrder:     true,
		AllowBacktrack:  true,
		StartTime:       now,
		CreatedAt:       now,
		QuestionIDs:     in.QuestionIDs,
	}
	if in.RandomOrder != nil {
		qz.RandomOrder = *in.RandomOrder
	}
	if in.AllowBacktrack != nil {
		qz.AllowBacktrack = *in.AllowBacktrack
	}
	if in.StartTime != nil {
		qz.StartTime = in.StartTime.UTC()
	}
	if err := s.store.CreateQuiz(ctx, qz, in.QuestionCount); err != nil {
		return nil, err
	}
	s.log.Info("quiz created", "quiz_id", qz.ID, "questions", qz.QuestionCount)
	return qz, nil
}

func (s *Service) GetQuiz(ctx context.Context, p rbac.Principal, id string) (*Quiz, error) {
	qz, err := s.ownedQuiz(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return &qz, nil
}

func (s *Service) ListQuizzes(ctx context.Context, p rbac.Principal, skip, limit int) ([]Quiz, error) {
	skip, limit = db.Page(skip, limit)
	return s.store.ListQuizzes(ctx, p.ID, skip, limit)
}

func (s *Service) UpdateQuiz(ctx context.Context, p rbac.Principal, id string, patch QuizPatch) (*Quiz, error) {
	qz, err := s.ownedQuiz(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apierr.Invalid("quiz title is required")
		}
		qz.Title = title
	}
	if patch.DurationSeconds != nil {
		if *patch.DurationSeconds < 0 {
			return nil, apierr.Invalid("duration_seconds must not be negative")
		}
		qz.DurationSeconds = *patch.DurationSeconds
	}
	if patch.RandomOrder != nil {
		qz.RandomOrder = *patch.RandomOrder
	}
	if patch.AllowBacktrack != nil {
		qz.AllowBacktrack = *patch.AllowBacktrack
	}
	if err := s.store.UpdateQuiz(ctx, qz); err != nil {
		return nil, err
	}
	return &qz, nil
}

func (s *Service) DeleteQuiz(ctx context.Context, p rbac.Principal, id string) error {
	if _, err := s.ownedQuiz(ctx, p, id); err != nil {
		return err
	}
	return s.store.DeleteQuiz(ctx, id)
}

func (s *Service) ListSubmissions(ctx context.Context, p rbac.Principal, quizID string, skip, limit int) ([]grading.Submission, error) {
	if _, err := s.ownedQuiz(ctx, p, quizID); err != nil {
		return nil, err
	}
	skip, limit = db.Page(skip, limit)
	return s.store.ListSubmissions(ctx, quizID, skip, limit)
}

package grading

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/logger"
	"github.com/mind-engage/aiquiz/internal/rbac"
)

// Key is one question of a quiz with its stored correct answer.
type Key struct {
	QuestionID string
	Answer     string
}

// QuizKey is a quiz's fixed ordered question list plus its owner.
type QuizKey struct {
	QuizID  string
	OwnerID string
	Keys    []Key
}

type Outcome struct {
	QuestionID string
	Correct    bool
}

type Submission struct {
	ID             string            `json:"id"`
	QuizID         string            `json:"quiz_id"`
	UserID         string            `json:"user_id"`
	TotalQuestions int               `json:"total_questions"`
	CorrectAnswers int               `json:"correct_answers"`
	Score          float64           `json:"score_percentage"`
	Answers        map[string]string `json:"answers"`
	SubmittedAt    time.Time         `json:"submitted_at"`
}

type Report struct {
	QuizID          string  `json:"quiz_id"`
	TotalQuestions  int     `json:"total_questions"`
	CorrectAnswers  int     `json:"correct_answers"`
	ScorePercentage float64 `json:"score_percentage"`
}

// Store loads answer keys and persists a graded submission. RecordSubmission
// must apply the submission row and every counter increment atomically.
type Store interface {
	QuizKey(ctx context.Context, quizID string) (QuizKey, error)
	RecordSubmission(ctx context.Context, sub Submission, outcomes []Outcome) error
}

var tracer = otel.Tracer("github.com/mind-engage/aiquiz/internal/grading")

type Engine struct {
	store   Store
	checker *rbac.Checker
	log     *logger.Logger
	now     func() time.Time
}

func NewEngine(store Store, checker *rbac.Checker, log *logger.Logger) *Engine {
	if checker == nil {
		checker = rbac.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{store: store, checker: checker, log: log.With("service", "GradingEngine"), now: time.Now}
}

// Grade scores answers against the quiz and records the attempt. Every question
// counts toward the total; an unanswered one is incorrect. Submitting the same
// answers twice yields the same score and increments the counters twice.
func (e *Engine) Grade(ctx context.Context, quizID string, answers map[string]string, p rbac.Principal) (rep Report, err error) {
	ctx, span := tracer.Start(ctx, "grading.Grade", trace.WithAttributes(
		attribute.String("quiz.id", quizID),
		attribute.String("user.id", p.ID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "grade failed")
		} else {
			span.SetAttributes(
				attribute.Int("quiz.total_questions", rep.TotalQuestions),
				attribute.Int("quiz.correct_answers", rep.CorrectAnswers),
			)
		}
		span.End()
	}()

	qk, err := e.store.QuizKey(ctx, quizID)
	if err != nil {
		return Report{}, err
	}
	if err := e.checker.Owns(p, qk.OwnerID, rbac.PermQuizAny); err != nil {
		return Report{}, err
	}

	outcomes, correct, err := Score(qk.Keys, answers)
	if err != nil {
		return Report{}, fmt.Errorf("quiz %s: %w", quizID, err)
	}
	rep = Report{
		QuizID:          quizID,
		TotalQuestions:  len(outcomes),
		CorrectAnswers:  correct,
		ScorePercentage: Percentage(correct, len(outcomes)),
	}

	if answers == nil {
		answers = map[string]string{}
	}
	sub := Submission{
		ID:             uuid.NewString(),
		QuizID:         quizID,
		UserID:         p.ID,
		TotalQuestions: rep.TotalQuestions,
		CorrectAnswers: rep.CorrectAnswers,
		Score:          rep.ScorePercentage,
		Answers:        answers,
		SubmittedAt:    e.now().UTC(),
	}
	if err := e.store.RecordSubmission(ctx, sub, outcomes); err != nil {
		return Report{}, fmt.Errorf("record submission: %w", err)
	}
	e.log.Info("quiz graded", "quiz_id", quizID, "user_id", p.ID, "correct", correct, "total", rep.TotalQuestions)
	return rep, nil
}

// Score tallies answers against keys in key order. It fails with
// apierr.ErrEmptyQuiz when there is nothing to grade.
func Score(keys []Key, answers map[string]string) ([]Outcome, int, error) {
	if len(keys) == 0 {
		return nil, 0, apierr.ErrEmptyQuiz
	}
	out := make([]Outcome, 0, len(keys))
	correct := 0
	for _, k := range keys {
		got, ok := answers[k.QuestionID]
		hit := ok && Match(got, k.Answer)
		if hit {
			correct++
		}
		out = append(out, Outcome{QuestionID: k.QuestionID, Correct: hit})
	}
	return out, correct, nil
}

// Percentage is 100*correct/total rounded to two decimals.
func Percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(10000*float64(correct)/float64(total)) / 100
}

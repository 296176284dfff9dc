package quiz

import (
	"strings"
	"time"

	"github.com/mind-engage/aiquiz/internal/apierr"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

func (d Difficulty) valid() bool {
	return d == Easy || d == Medium || d == Hard
}

type Bank struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"user_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Questions   []Question `json:"questions,omitempty"`
}

type Option struct {
	ID        string `json:"id"`
	Position  int    `json:"position"`
	Content   string `json:"content"`
	IsCorrect bool   `json:"is_correct"`
}

type Stat struct {
	Attempts        int `json:"attempts"`
	CorrectAttempts int `json:"correct_attempts"`
}

type Question struct {
	ID          string     `json:"id"`
	BankID      string     `json:"bank_id"`
	Prompt      string     `json:"prompt"`
	Answer      string     `json:"answer"`
	Explanation string     `json:"explanation"`
	Difficulty  Difficulty `json:"difficulty"`
	Options     []Option   `json:"options"`
	Stats       Stat       `json:"stats"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Quiz is a fixed, ordered selection of a bank's questions.
type Quiz struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"user_id"`
	BankID          string    `json:"bank_id"`
	Title           string    `json:"title"`
	DurationSeconds int       `json:"duration_seconds"`
	RandomOrder     bool      `json:"random_order"`
	AllowBacktrack  bool      `json:"allow_backtrack"`
	QuestionCount   int       `json:"question_count"`
	StartTime       time.Time `json:"start_time"`
	CreatedAt       time.Time `json:"created_at"`
	QuestionIDs     []string  `json:"question_ids"`
}

type BankInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in *BankInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apierr.Invalid("bank name is required")
	}
	return nil
}

type BankPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type OptionInput struct {
	Content   string `json:"content"`
	IsCorrect bool   `json:"is_correct"`
}

type QuestionInput struct {
	Prompt      string        `json:"prompt"`
	Answer      string        `json:"answer"`
	Explanation string        `json:"explanation"`
	Difficulty  Difficulty    `json:"difficulty"`
	Options     []OptionInput `json:"options"`
}

func (in *QuestionInput) normalize() error {
	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return apierr.Invalid("question prompt is required")
	}
	if strings.TrimSpace(in.Answer) == "" {
		return apierr.Invalid("question answer is required")
	}
	if in.Difficulty == "" {
		in.Difficulty = Medium
	}
	if !in.Difficulty.valid() {
		return apierr.Invalid("unknown difficulty %q", in.Difficulty)
	}
	for i, o := range in.Options {
		if strings.TrimSpace(o.Content) == "" {
			return apierr.Invalid("option %d is empty", i+1)
		}
	}
	return nil
}

// QuestionPatch replaces Options wholesale when non-nil.
type QuestionPatch struct {
	Prompt      *string        `json:"prompt"`
	Answer      *string        `json:"answer"`
	Explanation *string        `json:"explanation"`
	Difficulty  *Difficulty    `json:"difficulty"`
	Options     *[]OptionInput `json:"options"`
}

type QuizInput struct {
	BankID          string     `json:"bank_id"`
	Title           string     `json:"title"`
	DurationSeconds int        `json:"duration_seconds"`
	RandomOrder     *bool      `json:"random_order"`
	AllowBacktrack  *bool      `json:"allow_backtrack"`
	QuestionCount   int        `json:"question_count"`
	QuestionIDs     []string   `json:"question_ids"`
	StartTime       *time.Time `json:"start_time"`
}

func (in *QuizInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.BankID == "":
		return apierr.Invalid("bank_id is required")
	case in.Title == "":
		return apierr.Invalid("quiz title is required")
	case in.DurationSeconds < 0:
		return apierr.Invalid("duration_seconds must not be negative")
	case len(in.QuestionIDs) == 0 && in.QuestionCount <= 0:
		return apierr.Invalid("either question_ids or a positive question_count is required")
	}
	seen := make(map[string]struct{}, len(in.QuestionIDs))
	for _, id := range in.QuestionIDs {
		if _, dup := seen[id]; dup {
			return apierr.Invalid("question %s listed twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

type QuizPatch struct {
	Title           *string `json:"title"`
	DurationSeconds *int    `json:"duration_seconds"`
	RandomOrder     *bool   `json:"random_order"`
	AllowBacktrack  *bool   `json:"allow_backtrack"`
}

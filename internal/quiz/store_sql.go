package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/db"
	"github.com/mind-engage/aiquiz/internal/grading"
)

// querier is satisfied by *sql.DB and *sql.Tx. SQLite runs on a single
// connection, so code inside a transaction must only use the tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(h *sql.DB) *SQLStore { return &SQLStore{db: h} }

var _ grading.Store = (*SQLStore)(nil)

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, apierr.ErrNotFound)
}

func affected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

func unix(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// ---- banks ----

func (s *SQLStore) CreateBank(ctx context.Context, b *Bank) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO question_banks (id,user_id,name,description,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		b.ID, b.OwnerID, b.Name, b.Description, b.CreatedAt.Unix(), b.UpdatedAt.Unix())
	return err
}

func (s *SQLStore) GetBank(ctx context.Context, id string) (Bank, error) {
	var (
		b                Bank
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,name,description,created_at,updated_at FROM question_banks WHERE id=$1`, id,
	).Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Bank{}, notFound("bank", id)
	}
	if err != nil {
		return Bank{}, err
	}
	b.CreatedAt, b.UpdatedAt = unix(created), unix(updated)
	return b, nil
}

func (s *SQLStore) ListBanks(ctx context.Context, ownerID string, skip, limit int) ([]Bank, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id,user_id,name,description,created_at,updated_at FROM question_banks
		WHERE user_id=$1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, ownerID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Bank{}
	for rows.Next() {
		var (
			b                Bank
			created, updated int64
		)
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &created, &updated); err != nil {
			return nil, err
		}
		b.CreatedAt, b.UpdatedAt = unix(created), unix(updated)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateBank(ctx context.Context, b Bank) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE question_banks SET name=$2, description=$3, updated_at=$4 WHERE id=$1`,
		b.ID, b.Name, b.Description, b.UpdatedAt.Unix())
	if err != nil {
		return err
	}
	return affected(res, "bank", b.ID)
}

// DeleteBank removes the bank; questions, options, stats and quizzes go with it.
func (s *SQLStore) DeleteBank(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM question_banks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return affected(res, "bank", id)
}

// ---- questions ----

// CreateQuestion inserts the question, its options and a zeroed stat row.
func (s *SQLStore) CreateQuestion(ctx context.Context, q *Question) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO questions (id,bank_id,prompt,answer,explanation,difficulty,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			q.ID, q.BankID, q.Prompt, q.Answer, q.Explanation, string(q.Difficulty), q.CreatedAt.Unix())
		if err != nil {
			return err
		}
		if err := insertOptions(ctx, tx, q.ID, q.Options); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO question_stats (question_id,attempts,correct_attempts) VALUES ($1,0,0)`, q.ID)
		return err
	})
}

func insertOptions(ctx context.Context, tx *sql.Tx, questionID string, opts []Option) error {
	for i := range opts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO question_options (id,question_id,position,content,is_correct)
			VALUES ($1,$2,$3,$4,$5)`,
			opts[i].ID, questionID, opts[i].Position, opts[i].Content, opts[i].IsCorrect)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetQuestion returns the question with options and stats, plus the owner of its bank.
func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, string, error) {
	var (
		q       Question
		diff    string
		owner   string
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT q.id,q.bank_id,q.prompt,q.answer,q.explanation,q.difficulty,q.created_at,b.user_id
		FROM questions q JOIN question_banks b ON b.id=q.bank_id
		WHERE q.id=$1`, id,
	).Scan(&q.ID, &q.BankID, &q.Prompt, &q.Answer, &q.Explanation, &diff, &created, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, "", notFound("question", id)
	}
	if err != nil {
		return Question{}, "", err
	}
	q.Difficulty, q.CreatedAt = Difficulty(diff), unix(created)
	qs := []Question{q}
	if err := loadDetails(ctx, s.db, qs); err != nil {
		return Question{}, "", err
	}
	return qs[0], owner, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, bankID string, skip, limit int) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id,bank_id,prompt,answer,explanation,difficulty,created_at FROM questions
		WHERE bank_id=$1 ORDER BY created_at, id LIMIT $2 OFFSET $3`, bankID, limit, skip)
	if err != nil {
		return nil, err
	}
	out := []Question{}
	for rows.Next() {
		var (
			q       Question
			diff    string
			created int64
		)
		if err := rows.Scan(&q.ID, &q.BankID, &q.Prompt, &q.Answer, &q.Explanation, &diff, &created); err != nil {
			rows.Close()
			return nil, err
		}
		q.Difficulty, q.CreatedAt = Difficulty(diff), unix(created)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// release the connection before the follow-up queries
	rows.Close()
	if err := loadDetails(ctx, s.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

func loadDetails(ctx context.Context, q querier, qs []Question) error {
	for i := range qs {
		opts, err := loadOptions(ctx, q, qs[i].ID)
		if err != nil {
			return err
		}
		qs[i].Options = opts
		err = q.QueryRowContext(ctx,
			`SELECT attempts,correct_attempts FROM question_stats WHERE question_id=$1`, qs[i].ID,
		).Scan(&qs[i].Stats.Attempts, &qs[i].Stats.CorrectAttempts)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
	}
	return nil
}

func loadOptions(ctx context.Context, q querier, questionID string) ([]Option, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id,position,content,is_correct FROM question_options
		WHERE question_id=$1 ORDER BY position`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Option{}
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Position, &o.Content, &o.IsCorrect); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateQuestion writes the scalar fields and, when replaceOptions is set, swaps the option list.
func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question, replaceOptions bool) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE questions SET prompt=$2, answer=$3, explanation=$4, difficulty=$5 WHERE id=$1`,
			q.ID, q.Prompt, q.Answer, q.Explanation, string(q.Difficulty))
		if err != nil {
			return err
		}
		if err := affected(res, "question", q.ID); err != nil {
			return err
		}
		if !replaceOptions {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM question_options WHERE question_id=$1`, q.ID); err != nil {
			return err
		}
		return insertOptions(ctx, tx, q.ID, q.Options)
	})
}

// DeleteQuestion also drops it from every quiz that listed it.
func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return affected(res, "question", id)
}

// ---- quizzes ----

// CreateQuiz stores the quiz with an explicit ordered question list, or with
// up to sample questions drawn at random from its bank when the list is empty.
func (s *SQLStore) CreateQuiz(ctx context.Context, qz *Quiz, sample int) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		ids := qz.QuestionIDs
		if len(ids) == 0 {
			var err error
			if ids, err = sampleQuestions(ctx, tx, qz.BankID, sample); err != nil {
				return err
			}
		} else {
			for _, id := range ids {
				var bank string
				err := tx.QueryRowContext(ctx, `SELECT bank_id FROM questions WHERE id=$1`, id).Scan(&bank)
				if errors.Is(err, sql.ErrNoRows) {
					return apierr.Invalid("question %s does not exist", id)
				}
				if err != nil {
					return err
				}
				if bank != qz.BankID {
					return apierr.Invalid("question %s is not in bank %s", id, qz.BankID)
				}
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO quizzes (id,user_id,bank_id,title,duration_seconds,random_order,allow_backtrack,start_time,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			qz.ID, qz.OwnerID, qz.BankID, qz.Title, qz.DurationSeconds, qz.RandomOrder, qz.AllowBacktrack,
			qz.StartTime.Unix(), qz.CreatedAt.Unix())
		if err != nil {
			return err
		}
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO quiz_questions (quiz_id,question_id,position) VALUES ($1,$2,$3)`,
				qz.ID, id, i+1); err != nil {
				return err
			}
		}
		qz.QuestionIDs = ids
		qz.QuestionCount = len(ids)
		return nil
	})
}

func sampleQuestions(ctx context.Context, q querier, bankID string, n int) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM questions WHERE bank_id=$1 ORDER BY RANDOM() LIMIT $2`, bankID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const quizCols = `id,user_id,bank_id,title,duration_seconds,random_order,allow_backtrack,start_time,created_at`

func scanQuiz(sc interface{ Scan(...any) error }) (Quiz, error) {
	var (
		qz             Quiz
		start, created int64
	)
	err := sc.Scan(&qz.ID, &qz.OwnerID, &qz.BankID, &qz.Title, &qz.DurationSeconds,
		&qz.RandomOrder, &qz.AllowBacktrack, &start, &created)
	qz.StartTime, qz.CreatedAt = unix(start), unix(created)
	return qz, err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	qz, err := scanQuiz(s.db.QueryRowContext(ctx, `SELECT `+quizCols+` FROM quizzes WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, notFound("quiz", id)
	}
	if err != nil {
		return Quiz{}, err
	}
	if qz.QuestionIDs, err = quizQuestionIDs(ctx, s.db, id); err != nil {
		return Quiz{}, err
	}
	qz.QuestionCount = len(qz.QuestionIDs)
	return qz, nil
}

func quizQuestionIDs(ctx context.Context, q querier, quizID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT question_id FROM quiz_questions WHERE quiz_id=$1 ORDER BY position`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) ListQuizzes(ctx context.Context, ownerID string, skip, limit int) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+quizCols+` FROM quizzes
		WHERE user_id=$1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, ownerID, limit, skip)
	if err != nil {
		return nil, err
	}
	out := []Quiz{}
	for rows.Next() {
		qz, err := scanQuiz(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, qz)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	for i := range out {
		if out[i].QuestionIDs, err = quizQuestionIDs(ctx, s.db, out[i].ID); err != nil {
			return nil, err
		}
		out[i].QuestionCount = len(out[i].QuestionIDs)
	}
	return out, nil
}

// UpdateQuiz changes settings only; the question list is fixed at creation.
func (s *SQLStore) UpdateQuiz(ctx context.Context, qz Quiz) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE quizzes SET title=$2, duration_seconds=$3, random_order=$4, allow_backtrack=$5 WHERE id=$1`,
		qz.ID, qz.Title, qz.DurationSeconds, qz.RandomOrder, qz.AllowBacktrack)
	if err != nil {
		return err
	}
	return affected(res, "quiz", qz.ID)
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return affected(res, "quiz", id)
}

// ---- grading ----

func (s *SQLStore) QuizKey(ctx context.Context, quizID string) (grading.QuizKey, error) {
	qk := grading.QuizKey{QuizID: quizID}
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM quizzes WHERE id=$1`, quizID).Scan(&qk.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return grading.QuizKey{}, notFound("quiz", quizID)
	}
	if err != nil {
		return grading.QuizKey{}, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT qq.question_id, q.answer
		FROM quiz_questions qq JOIN questions q ON q.id = qq.question_id
		WHERE qq.quiz_id=$1 ORDER BY qq.position`, quizID)
	if err != nil {
		return grading.QuizKey{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var k grading.Key
		if err := rows.Scan(&k.QuestionID, &k.Answer); err != nil {
			return grading.QuizKey{}, err
		}
		qk.Keys = append(qk.Keys, k)
	}
	return qk, rows.Err()
}

// RecordSubmission writes the submission row and every counter increment in
// one transaction. Increments are relative, so concurrent submissions never
// overwrite each other.
func (s *SQLStore) RecordSubmission(ctx context.Context, sub grading.Submission, outcomes []grading.Outcome) error {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quiz_submissions (id,quiz_id,user_id,total_questions,correct_answers,score,answers_json,submitted_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			sub.ID, sub.QuizID, sub.UserID, sub.TotalQuestions, sub.CorrectAnswers, sub.Score,
			string(answers), sub.SubmittedAt.Unix())
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			inc := 0
			if o.Correct {
				inc = 1
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO question_stats (question_id,attempts,correct_attempts) VALUES ($1,1,$2)
				ON CONFLICT (question_id) DO UPDATE SET
				  attempts = question_stats.attempts + 1,
				  correct_attempts = question_stats.correct_attempts + EXCLUDED.correct_attempts`,
				o.QuestionID, inc)
			if err != nil {
				return fmt.Errorf("stats for %s: %w", o.QuestionID, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) ListSubmissions(ctx context.Context, quizID string, skip, limit int) ([]grading.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id,quiz_id,user_id,total_questions,correct_answers,score,answers_json,submitted_at
		FROM quiz_submissions WHERE quiz_id=$1 ORDER BY submitted_at DESC, id LIMIT $2 OFFSET $3`,
		quizID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []grading.Submission{}
	for rows.Next() {
		var (
			sub     grading.Submission
			answers string
			at      int64
		)
		if err := rows.Scan(&sub.ID, &sub.QuizID, &sub.UserID, &sub.TotalQuestions, &sub.CorrectAnswers,
			&sub.Score, &answers, &at); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
			return nil, fmt.Errorf("submission %s answers: %w", sub.ID, err)
		}
		sub.SubmittedAt = unix(at)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func newID() string { return uuid.NewString() }

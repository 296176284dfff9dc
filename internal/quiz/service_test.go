package quiz

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/db/dbtest"
	"github.com/mind-engage/aiquiz/internal/grading"
	"github.com/mind-engage/aiquiz/internal/rbac"
)

var (
	alice = rbac.Principal{ID: "alice", Role: "user"}
	bob   = rbac.Principal{ID: "bob", Role: "user"}
	root  = rbac.Principal{ID: "root", Role: "admin"}
)

type fixture struct {
	h     *sql.DB
	store *SQLStore
	svc   *Service
	bank  *Bank
	qs    []*Question
}

// newFixture seeds alice's bank with the three-question geography/maths set.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	h := dbtest.Open(t)
	for _, p := range []rbac.Principal{alice, bob, root} {
		dbtest.SeedUser(t, h, p.ID, p.ID+"@example.com")
	}
	store := NewSQLStore(h)
	f := &fixture{h: h, store: store, svc: NewService(store, nil, nil)}
	ctx := context.Background()

	var err error
	if f.bank, err = f.svc.CreateBank(ctx, alice, BankInput{Name: "basics"}); err != nil {
		t.Fatal(err)
	}
	for _, in := range []QuestionInput{
		{Prompt: "Capital of France?", Answer: "Paris", Options: []OptionInput{{Content: "Paris", IsCorrect: true}, {Content: "Lyon"}}},
		{Prompt: "Answer to everything?", Answer: "42", Difficulty: Easy},
		{Prompt: "Linear search complexity?", Answer: "O(n)", Difficulty: Hard},
	} {
		q, err := f.svc.CreateQuestion(ctx, alice, f.bank.ID, in)
		if err != nil {
			t.Fatal(err)
		}
		f.qs = append(f.qs, q)
	}
	return f
}

func (f *fixture) ids() []string {
	out := make([]string, len(f.qs))
	for i, q := range f.qs {
		out[i] = q.ID
	}
	return out
}

func (f *fixture) stats(t *testing.T, id string) Stat {
	t.Helper()
	q, _, err := f.store.GetQuestion(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return q.Stats
}

func TestBankOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.GetBank(ctx, alice, f.bank.ID)
	if err != nil {
		t.Fatal(err)
	}
	opts := 0
	for _, q := range got.Questions {
		opts += len(q.Options)
	}
	if len(got.Questions) != 3 || opts != 2 {
		t.Fatalf("bank = %+v", got)
	}
	if _, err := f.svc.GetBank(ctx, bob, f.bank.ID); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("bob err = %v", err)
	}
	if _, err := f.svc.GetBank(ctx, root, f.bank.ID); err != nil {
		t.Fatalf("admin err = %v", err)
	}
	if err := f.svc.DeleteBank(ctx, bob, f.bank.ID); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("bob delete err = %v", err)
	}
	if _, err := f.svc.GetBank(ctx, alice, "nope"); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	list, _ := f.svc.ListBanks(ctx, bob, 0, 10)
	if len(list) != 0 {
		t.Fatalf("bob sees %d banks", len(list))
	}
}

func TestQuestionDefaultsAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if f.qs[0].Difficulty != Medium {
		t.Fatalf("default difficulty = %q", f.qs[0].Difficulty)
	}
	if _, err := f.svc.CreateQuestion(ctx, alice, f.bank.ID, QuestionInput{Prompt: "x", Answer: "y", Difficulty: "brutal"}); !errors.Is(err, apierr.ErrInvalidInput) {
		t.Fatalf("bad difficulty err = %v", err)
	}

	answer := "Paris, France"
	opts := []OptionInput{{Content: "Paris, France", IsCorrect: true}}
	q, err := f.svc.UpdateQuestion(ctx, alice, f.qs[0].ID, QuestionPatch{Answer: &answer, Options: &opts})
	if err != nil {
		t.Fatal(err)
	}
	again, err := f.svc.GetQuestion(ctx, alice, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Answer != answer || len(again.Options) != 1 || !again.Options[0].IsCorrect {
		t.Fatalf("question = %+v", again)
	}
	if _, err := f.svc.UpdateQuestion(ctx, bob, q.ID, QuestionPatch{Answer: &answer}); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("bob update err = %v", err)
	}
}

func TestCreateQuizExplicitAndSampled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := []string{f.qs[2].ID, f.qs[0].ID}
	qz, err := f.svc.CreateQuiz(ctx, alice, QuizInput{BankID: f.bank.ID, Title: "pick", QuestionIDs: order})
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.GetQuiz(ctx, alice, qz.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.QuestionCount != 2 || got.QuestionIDs[0] != order[0] || got.QuestionIDs[1] != order[1] {
		t.Fatalf("quiz = %+v", got)
	}
	if !got.RandomOrder || !got.AllowBacktrack {
		t.Fatal("flags should default to true")
	}

	sampled, err := f.svc.CreateQuiz(ctx, alice, QuizInput{BankID: f.bank.ID, Title: "sample", QuestionCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	if sampled.QuestionCount != 2 {
		t.Fatalf("sampled %d questions", sampled.QuestionCount)
	}
	all, err := f.svc.CreateQuiz(ctx, alice, QuizInput{BankID: f.bank.ID, Title: "more than bank", QuestionCount: 10})
	if err != nil {
		t.Fatal(err)
	}
	if all.QuestionCount != 3 {
		t.Fatalf("oversized sample took %d questions", all.QuestionCount)
	}

	bad := []QuizInput{
		{BankID: f.bank.ID, Title: "dup", QuestionIDs: []string{f.qs[0].ID, f.qs[0].ID}},
		{BankID: f.bank.ID, Title: "ghost", QuestionIDs: []string{"ghost"}},
		{BankID: f.bank.ID, Title: "nothing"},
		{BankID: f.bank.ID, QuestionCount: 1},
	}
	for _, in := range bad {
		if _, err := f.svc.CreateQuiz(ctx, alice, in); !errors.Is(err, apierr.ErrInvalidInput) {
			t.Errorf("CreateQuiz(%+v) err = %v", in, err)
		}
	}
	if _, err := f.svc.CreateQuiz(ctx, bob, QuizInput{BankID: f.bank.ID, Title: "steal", QuestionCount: 1}); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("bob quiz err = %v", err)
	}
}

func TestGradeAgainstStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	qz, err := f.svc.CreateQuiz(ctx, alice, QuizInput{BankID: f.bank.ID, Title: "t", QuestionIDs: f.ids()})
	if err != nil {
		t.Fatal(err)
	}
	engine := grading.NewEngine(f.store, nil, nil)

	answers := map[string]string{f.qs[0].ID: "paris", f.qs[1].ID: "42", f.qs[2].ID: "On"}
	rep, err := engine.Grade(ctx, qz.ID, answers, alice)
	if err != nil {
		t.Fatal(err)
	}
	if rep.CorrectAnswers != 2 || rep.ScorePercentage != 66.67 {
		t.Fatalf("report = %+v", rep)
	}
	if _, err := engine.Grade(ctx, qz.ID, answers, alice); err != nil {
		t.Fatal(err)
	}
	if st := f.stats(t, f.qs[0].ID); st != (Stat{Attempts: 2, CorrectAttempts: 2}) {
		t.Fatalf("q1 stats = %+v", st)
	}
	if st := f.stats(t, f.qs[2].ID); st != (Stat{Attempts: 2, CorrectAttempts: 0}) {
		t.Fatalf("q3 stats = %+v", st)
	}

	subs, err := f.svc.ListSubmissions(ctx, alice, qz.ID, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 || subs[0].Answers[f.qs[0].ID] != "paris" {
		t.Fatalf("submissions = %+v", subs)
	}
	if _, err := f.svc.ListSubmissions(ctx, bob, qz.ID, 0, 0); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("bob submissions err = %v", err)
	}
}

func TestDeletedQuestionsLeaveEmptyQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	qz, err := f.svc.CreateQuiz(ctx, alice, QuizInput{BankID: f.bank.ID, Title: "t", QuestionIDs: []string{f.qs[1].ID}})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteQuestion(ctx, alice, f.qs[1].ID); err != nil {
		t.Fatal(err)
	}
	_, err = grading.NewEngine(f.store, nil, nil).Grade(ctx, qz.ID, map[string]string{}, alice)
	if !errors.Is(err, apierr.ErrEmptyQuiz) {
		t.Fatalf("err = %v", err)
	}
	var n int
	if err := f.h.QueryRow(`SELECT COUNT(*) FROM quiz_submissions`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("submissions = %d, %v", n, err)
	}
}

func TestDeleteBankCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	qz, err := f.svc.CreateQuiz(ctx, alice, QuizInput{BankID: f.bank.ID, Title: "t", QuestionCount: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteBank(ctx, alice, f.bank.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.GetQuiz(ctx, alice, qz.ID); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("quiz survived: %v", err)
	}
	for _, table := range []string{"questions", "question_options", "question_stats", "quiz_questions"} {
		var n int
		if err := f.h.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows", table, n)
		}
	}
}

func TestConcurrentSubmissionsKeepEveryIncrement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	qz, err := f.svc.CreateQuiz(ctx, alice, QuizInput{BankID: f.bank.ID, Title: "t", QuestionIDs: f.ids()})
	if err != nil {
		t.Fatal(err)
	}
	engine := grading.NewEngine(f.store, nil, nil)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Grade(ctx, qz.ID, map[string]string{f.qs[0].ID: "Paris"}, alice)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	if st := f.stats(t, f.qs[0].ID); st != (Stat{Attempts: n, CorrectAttempts: n}) {
		t.Fatalf("q1 stats = %+v", st)
	}
	if st := f.stats(t, f.qs[1].ID); st != (Stat{Attempts: n}) {
		t.Fatalf("q2 stats = %+v", st)
	}
}

func TestRecordSubmissionIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	qz, err := f.svc.CreateQuiz(ctx, alice, QuizInput{BankID: f.bank.ID, Title: "t", QuestionIDs: f.ids()})
	if err != nil {
		t.Fatal(err)
	}
	sub := grading.Submission{
		ID:             "sub-1",
		QuizID:         qz.ID,
		UserID:         alice.ID,
		TotalQuestions: 2,
		CorrectAnswers: 1,
		Score:          50,
		Answers:        map[string]string{f.qs[0].ID: "Paris"},
		SubmittedAt:    time.Now(),
	}
	// The second counter references a question that does not exist.
	outcomes := []grading.Outcome{{QuestionID: f.qs[0].ID, Correct: true}, {QuestionID: "ghost"}}
	if err := f.store.RecordSubmission(ctx, sub, outcomes); err == nil {
		t.Fatal("expected foreign key failure")
	}

	if st := f.stats(t, f.qs[0].ID); st != (Stat{}) {
		t.Fatalf("q1 stats = %+v, want untouched", st)
	}
	var n int
	if err := f.h.QueryRow(`SELECT COUNT(*) FROM quiz_submissions`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("%d submissions survived the rollback", n)
	}
}

package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/aiquiz/internal/api/response"
	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/grading"
	"github.com/mind-engage/aiquiz/internal/quiz"
)

// POST /quizzes
func CreateQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.QuizInput
		if err := response.Decode(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		qz, err := svc.CreateQuiz(r.Context(), principal(r), in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, qz)
	}
}

func ListQuizzesHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit := page(r)
		out, err := svc.ListQuizzes(r.Context(), principal(r), skip, limit)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, out)
	}
}

func GetQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qz, err := svc.GetQuiz(r.Context(), principal(r), chi.URLParam(r, "quizID"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, qz)
	}
}

func UpdateQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch quiz.QuizPatch
		if err := response.Decode(r, &patch); err != nil {
			response.Error(w, err)
			return
		}
		qz, err := svc.UpdateQuiz(r.Context(), principal(r), chi.URLParam(r, "quizID"), patch)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, qz)
	}
}

func DeleteQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteQuiz(r.Context(), principal(r), chi.URLParam(r, "quizID")); err != nil {
			response.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// decodeAnswers accepts either {"answers": {...}} or a bare
// question_id -> answer object.
func decodeAnswers(r *http.Request) (map[string]string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apierr.Invalid("read body: %v", err)
	}
	var wrapped struct {
		Answers map[string]string `json:"answers"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wrapped); err == nil && wrapped.Answers != nil {
		return wrapped.Answers, nil
	}
	var bare map[string]string
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, apierr.Invalid("answers must map question ids to strings")
	}
	return bare, nil
}

// POST /quizzes/{quizID}/submit
func SubmitQuizHandler(engine *grading.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answers, err := decodeAnswers(r)
		if err != nil {
			response.Error(w, err)
			return
		}
		rep, err := engine.Grade(r.Context(), chi.URLParam(r, "quizID"), answers, principal(r))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, rep)
	}
}

// GET /quizzes/{quizID}/submissions
func ListSubmissionsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit := page(r)
		out, err := svc.ListSubmissions(r.Context(), principal(r), chi.URLParam(r, "quizID"), skip, limit)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, out)
	}
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/aiquiz/internal/api/response"
	"github.com/mind-engage/aiquiz/internal/quiz"
)

// POST /banks
func CreateBankHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.BankInput
		if err := response.Decode(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		b, err := svc.CreateBank(r.Context(), principal(r), in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, b)
	}
}

// GET /banks
func ListBanksHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit := page(r)
		out, err := svc.ListBanks(r.Context(), principal(r), skip, limit)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, out)
	}
}

// GET /banks/{bankID} returns the bank with its questions.
func GetBankHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.GetBank(r.Context(), principal(r), chi.URLParam(r, "bankID"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, b)
	}
}

// PUT /banks/{bankID}
func UpdateBankHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch quiz.BankPatch
		if err := response.Decode(r, &patch); err != nil {
			response.Error(w, err)
			return
		}
		b, err := svc.UpdateBank(r.Context(), principal(r), chi.URLParam(r, "bankID"), patch)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, b)
	}
}

// DELETE /banks/{bankID}
func DeleteBankHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteBank(r.Context(), principal(r), chi.URLParam(r, "bankID")); err != nil {
			response.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /banks/{bankID}/questions
func CreateQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.QuestionInput
		if err := response.Decode(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		q, err := svc.CreateQuestion(r.Context(), principal(r), chi.URLParam(r, "bankID"), in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, q)
	}
}

// GET /banks/{bankID}/questions
func ListQuestionsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit := page(r)
		out, err := svc.ListQuestions(r.Context(), principal(r), chi.URLParam(r, "bankID"), skip, limit)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, out)
	}
}

func GetQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := svc.GetQuestion(r.Context(), principal(r), chi.URLParam(r, "questionID"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, q)
	}
}

func UpdateQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch quiz.QuestionPatch
		if err := response.Decode(r, &patch); err != nil {
			response.Error(w, err)
			return
		}
		q, err := svc.UpdateQuestion(r.Context(), principal(r), chi.URLParam(r, "questionID"), patch)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, q)
	}
}

func DeleteQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteQuestion(r.Context(), principal(r), chi.URLParam(r, "questionID")); err != nil {
			response.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

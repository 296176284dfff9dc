package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/aiquiz/internal/api/response"
	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/files"
)

// POST /files (multipart, field "file")
func UploadFileHandler(svc *files.Service, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		mr, err := r.MultipartReader()
		if err != nil {
			response.Error(w, apierr.Invalid("expected multipart/form-data: %v", err))
			return
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				response.Error(w, apierr.Invalid("missing file part"))
				return
			}
			if err != nil {
				response.Error(w, uploadErr(err))
				return
			}
			if part.FormName() != "file" {
				_ = part.Close()
				continue
			}
			ct := part.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			f, err := svc.Upload(r.Context(), principal(r), part.FileName(), ct, part)
			_ = part.Close()
			if err != nil {
				response.Error(w, uploadErr(err))
				return
			}
			response.JSON(w, http.StatusCreated, f)
			return
		}
	}
}

func uploadErr(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return apierr.New(http.StatusRequestEntityTooLarge, "too_large",
			fmt.Errorf("upload exceeds %d bytes", mbe.Limit))
	}
	return err
}

func ListFilesHandler(svc *files.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit := page(r)
		out, err := svc.List(r.Context(), principal(r), skip, limit)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, out)
	}
}

func GetFileHandler(svc *files.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := svc.Get(r.Context(), principal(r), chi.URLParam(r, "fileID"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, f)
	}
}

// GET /files/{fileID}/content
func DownloadFileHandler(svc *files.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, rc, err := svc.Open(r.Context(), principal(r), chi.URLParam(r, "fileID"))
		if err != nil {
			response.Error(w, err)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", f.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Filename}))
		if f.Size > 0 {
			w.Header().Set("Content-Length", fmt.Sprint(f.Size))
		}
		_, _ = io.Copy(w, rc)
	}
}

type renameReq struct {
	Filename string `json:"filename"`
}

func RenameFileHandler(svc *files.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renameReq
		if err := response.Decode(r, &req); err != nil {
			response.Error(w, err)
			return
		}
		f, err := svc.Rename(r.Context(), principal(r), chi.URLParam(r, "fileID"), req.Filename)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, f)
	}
}

func DeleteFileHandler(svc *files.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), principal(r), chi.URLParam(r, "fileID")); err != nil {
			response.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

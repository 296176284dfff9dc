package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/db"
	"github.com/mind-engage/aiquiz/internal/logger"
	"github.com/mind-engage/aiquiz/internal/rbac"
	"github.com/mind-engage/aiquiz/internal/storage"
)

type File struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"user_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	BlobKey     string    `json:"-"`
}

// Service keeps file metadata in SQL and bytes in a BlobStore.
type Service struct {
	db      *sql.DB
	blobs   storage.BlobStore
	checker *rbac.Checker
	log     *logger.Logger
	now     func() time.Time
}

func NewService(h *sql.DB, blobs storage.BlobStore, checker *rbac.Checker, log *logger.Logger) *Service {
	if checker == nil {
		checker = rbac.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{db: h, blobs: blobs, checker: checker, log: log.With("service", "FileService"), now: time.Now}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	if name == "" || name == "." || name == "/" {
		return "", apierr.Invalid("filename is required")
	}
	return name, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Upload stores r under "<owner>/<uuid><ext>" and records its metadata.
func (s *Service) Upload(ctx context.Context, p rbac.Principal, filename, contentType string, r io.Reader) (*File, error) {
	name, err := cleanName(filename)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	f := &File{
		ID:          id,
		OwnerID:     p.ID,
		Filename:    name,
		ContentType: contentType,
		CreatedAt:   s.now().UTC(),
		BlobKey:     p.ID + "/" + id + strings.ToLower(filepath.Ext(name)),
	}
	cr := &countingReader{r: r}
	if f.BlobKey, err = s.blobs.Put(ctx, f.BlobKey, cr, contentType); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	f.Size = cr.n

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO files (id,user_id,filename,blob_key,content_type,size,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		f.ID, f.OwnerID, f.Filename, f.BlobKey, f.ContentType, f.Size, f.CreatedAt.Unix())
	if err != nil {
		if derr := s.blobs.Delete(ctx, f.BlobKey); derr != nil {
			s.log.Warn("orphan blob left behind", "blob_key", f.BlobKey, "error", derr)
		}
		return nil, err
	}
	s.log.Info("file uploaded", "file_id", f.ID, "user_id", p.ID, "size", f.Size)
	return f, nil
}

const fileCols = `id,user_id,filename,blob_key,content_type,size,created_at`

func scanFile(sc interface{ Scan(...any) error }) (File, error) {
	var (
		f       File
		created int64
	)
	err := sc.Scan(&f.ID, &f.OwnerID, &f.Filename, &f.BlobKey, &f.ContentType, &f.Size, &created)
	f.CreatedAt = time.Unix(created, 0).UTC()
	return f, err
}

func (s *Service) Get(ctx context.Context, p rbac.Principal, id string) (*File, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx, `SELECT `+fileCols+` FROM files WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, apierr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.checker.Owns(p, f.OwnerID, rbac.PermFileAny); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Service) List(ctx context.Context, p rbac.Principal, skip, limit int) ([]File, error) {
	skip, limit = db.Page(skip, limit)
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileCols+` FROM files
		WHERE user_id=$1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, p.ID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Open returns the metadata and a reader over the bytes. The caller closes it.
func (s *Service) Open(ctx context.Context, p rbac.Principal, id string) (*File, io.ReadCloser, error) {
	f, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, f.BlobKey)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

func (s *Service) Rename(ctx context.Context, p rbac.Principal, id, filename string) (*File, error) {
	name, err := cleanName(filename)
	if err != nil {
		return nil, err
	}
	f, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE files SET filename=$2 WHERE id=$1`, id, name); err != nil {
		return nil, err
	}
	f.Filename = name
	return f, nil
}

// Delete drops the row first so a failed blob delete never leaves a dangling record.
func (s *Service) Delete(ctx context.Context, p rbac.Principal, id string) error {
	f, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, f.BlobKey); err != nil {
		s.log.Warn("blob delete failed", "blob_key", f.BlobKey, "error", err)
	}
	return nil
}

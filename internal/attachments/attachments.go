// Package attachments uploads photos, documents and supplier proposals to
// object storage and records them through the sync dispatcher.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/installations"
	"github.com/dmitrijs2005/instalatrack/internal/logging"
	"github.com/dmitrijs2005/instalatrack/internal/metrics"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/dmitrijs2005/instalatrack/internal/remote/storage"
	"github.com/dmitrijs2005/instalatrack/internal/syncer"
	"github.com/dmitrijs2005/instalatrack/internal/undo"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// Uploader stores one object.
type Uploader interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

type Options struct {
	FilesBucket   string
	BudgetsBucket string
	MaxAttempts   int
	BaseDelay     time.Duration
	Metrics       *metrics.Metrics
	Log           logging.Logger
	Now           func() time.Time
}

type Service struct {
	d     *syncer.Dispatcher
	items *installations.Service
	up    Uploader
	opts  Options
}

func NewService(d *syncer.Dispatcher, items *installations.Service, up Uploader, opts Options) *Service {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 100 * time.Millisecond
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{d: d, items: items, up: up, opts: opts}
}

type object struct {
	name string
	key  string
	data []byte
	mime string
}

// load reads path and derives its storage key under the project.
func (s *Service) load(projectID, path string) (*object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	return &object{
		name: name,
		key:  storage.ObjectKey(projectID, name, s.opts.Now()),
		data: data,
		mime: mimetype.Detect(data).String(),
	}, nil
}

// upload puts obj with exponential backoff. Only a cancelled context stops
// the retries early.
func (s *Service) upload(ctx context.Context, bucket string, obj *object) error {
	if s.up == nil {
		return fmt.Errorf("upload %s: object storage not configured", obj.name)
	}
	b := retry.WithMaxRetries(uint64(s.opts.MaxAttempts-1), retry.NewExponential(s.opts.BaseDelay))

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := s.up.Put(ctx, bucket, obj.key, obj.data, obj.mime)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		s.opts.Log.Warn(ctx, "upload failed", "bucket", bucket, "key", obj.key, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		s.opts.Metrics.RecordUpload(bucket, metrics.ResultFailed)
		return fmt.Errorf("upload %s: %w", obj.name, err)
	}
	s.opts.Metrics.RecordUpload(bucket, metrics.ResultSynced)
	return nil
}

// AttachFile uploads a project document and records it.
func (s *Service) AttachFile(ctx context.Context, projectID, path string, category models.FileCategory) (*models.File, undo.Func, error) {
	projectID = s.d.ResolveProjectID(projectID)
	if _, err := s.d.Store().Projects.Get(ctx, projectID); err != nil {
		return nil, nil, fmt.Errorf("project %s: %w", projectID, err)
	}
	return s.attach(ctx, projectID, "", path, category)
}

// AttachPhoto uploads a photo, records it and adds it to the installation.
func (s *Service) AttachPhoto(ctx context.Context, installationID, path string) (*models.File, undo.Func, error) {
	inst, err := s.items.Get(ctx, installationID)
	if err != nil {
		return nil, nil, err
	}
	f, removeFile, err := s.attach(ctx, inst.ProjectID, inst.ID, path, models.FilePhoto)
	if err != nil {
		return nil, nil, err
	}
	_, detach, err := s.items.AttachPhoto(ctx, inst.ID, f.Path)
	if err != nil {
		// The file record must not outlive a photo the installation never got.
		if rmErr := removeFile(ctx); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("remove file record %s: %w", f.ID, rmErr))
		}
		return nil, nil, err
	}
	return f, undo.Chain(removeFile, detach), nil
}

func (s *Service) attach(ctx context.Context, projectID, installationID, path string, category models.FileCategory) (*models.File, undo.Func, error) {
	obj, err := s.load(projectID, path)
	if err != nil {
		return nil, nil, err
	}
	f := &models.File{
		ID:             uuid.NewString(),
		ProjectID:      projectID,
		InstallationID: installationID,
		Name:           obj.name,
		Path:           obj.key,
		Size:           int64(len(obj.data)),
		MimeType:       obj.mime,
		Category:       category,
	}
	if err := models.Validate(f); err != nil {
		return nil, nil, err
	}
	if err := s.upload(ctx, s.opts.FilesBucket, obj); err != nil {
		return nil, nil, err
	}
	saved, err := s.d.SaveFile(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	id := saved.ID
	return saved, func(ctx context.Context) error { return s.d.RemoveFile(ctx, id) }, nil
}

// AttachBudget uploads the proposal document at path, when given, and
// records the budget.
func (s *Service) AttachBudget(ctx context.Context, b *models.Budget, path string) (*models.Budget, undo.Func, error) {
	b.ProjectID = s.d.ResolveProjectID(b.ProjectID)
	if _, err := s.d.Store().Projects.Get(ctx, b.ProjectID); err != nil {
		return nil, nil, fmt.Errorf("project %s: %w", b.ProjectID, err)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = models.BudgetPending
	}
	if err := models.Validate(b); err != nil {
		return nil, nil, err
	}

	if path != "" {
		obj, err := s.load(b.ProjectID, path)
		if err != nil {
			return nil, nil, err
		}
		if err := s.upload(ctx, s.opts.BudgetsBucket, obj); err != nil {
			return nil, nil, err
		}
		b.FilePath, b.FileName, b.FileSize = obj.key, obj.name, int64(len(obj.data))
	}

	saved, err := s.d.SaveBudget(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	id := saved.ID
	return saved, func(ctx context.Context) error { return s.d.RemoveBudget(ctx, id) }, nil
}

func (s *Service) ListFiles(ctx context.Context, projectID string) ([]*models.File, error) {
	return s.d.Store().Files.ListByProject(ctx, s.d.ResolveProjectID(projectID))
}

func (s *Service) ListBudgets(ctx context.Context, projectID string) ([]*models.Budget, error) {
	return s.d.Store().Budgets.ListByProject(ctx, s.d.ResolveProjectID(projectID))
}

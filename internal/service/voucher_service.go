package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"minimart/internal/logging"
	"minimart/internal/model"
	"minimart/internal/repository"

	"github.com/google/uuid"
)

// MaxFileSize caps uploaded proof files.
const MaxFileSize = 5 * 1024 * 1024 // 5MB

var allowedProofExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true}

// VoucherService runs voucher tasks and the review of residents' attempts.
type VoucherService interface {
	ListTasks(ctx context.Context, activeOnly bool) ([]model.VoucherTask, error)
	CreateTask(ctx context.Context, actor string, req model.CreateVoucherTaskRequest) (*model.VoucherTask, error)
	UpdateTask(ctx context.Context, actor string, id int64, req model.UpdateVoucherTaskRequest) (*model.VoucherTask, error)
	DeactivateTask(ctx context.Context, actor string, id int64) (*model.VoucherTask, error)

	SubmitAttempt(ctx context.Context, userEmail string, taskID int64, note string) (*model.TaskAttempt, error)
	ListMyAttempts(ctx context.Context, userEmail string) ([]model.TaskAttempt, error)
	ListAttempts(ctx context.Context, filters model.AttemptFilters) ([]model.TaskAttempt, error)
	UploadProof(ctx context.Context, attemptID int64, userEmail string, file *multipart.FileHeader) (*model.TaskAttempt, error)
	ProofFile(ctx context.Context, attemptID int64, userEmail, role string) (string, string, error) // returns path and filename
	ApproveAttempt(ctx context.Context, actor string, attemptID int64, note *string) (*model.TaskAttempt, error)
	RejectAttempt(ctx context.Context, actor string, attemptID int64, reason *string) (*model.TaskAttempt, error)
}

type voucherService struct {
	repo       repository.VoucherRepository
	audit      AuditRecorder
	uploadsDir string
	log        logging.Logger
}

// NewVoucherService creates a new VoucherService. Proof files are stored
// under uploadsDir.
func NewVoucherService(repo repository.VoucherRepository, audit AuditRecorder, uploadsDir string, log logging.Logger) VoucherService {
	return &voucherService{repo: repo, audit: audit, uploadsDir: uploadsDir, log: log.With("component", "vouchers")}
}

func (s *voucherService) ListTasks(ctx context.Context, activeOnly bool) ([]model.VoucherTask, error) {
	tasks, err := s.repo.ListTasks(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list voucher tasks: %w", err)
	}
	return tasks, nil
}

func (s *voucherService) CreateTask(ctx context.Context, actor string, req model.CreateVoucherTaskRequest) (*model.VoucherTask, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, newError(ErrInvalidInput, "task title is required")
	}
	if req.Points <= 0 {
		return nil, newError(ErrInvalidInput, "points must be positive")
	}

	t := &model.VoucherTask{Title: title, Description: req.Description, Points: req.Points, Active: true}
	if err := s.repo.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create voucher task: %w", err)
	}
	s.audit.Record(ctx, actor, model.ActionTaskCreated, model.EntityVoucherTask, strconv.FormatInt(t.ID, 10),
		map[string]any{"title": t.Title, "points": t.Points})
	return t, nil
}

func (s *voucherService) findTask(ctx context.Context, id int64) (*model.VoucherTask, error) {
	t, err := s.repo.FindTaskByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find voucher task: %w", err)
	}
	return t, nil
}

func (s *voucherService) UpdateTask(ctx context.Context, actor string, id int64, req model.UpdateVoucherTaskRequest) (*model.VoucherTask, error) {
	t, err := s.findTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, newError(ErrInvalidInput, "task title cannot be empty")
		}
		t.Title = title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Points != nil {
		if *req.Points <= 0 {
			return nil, newError(ErrInvalidInput, "points must be positive")
		}
		t.Points = *req.Points
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	if err := s.saveTask(ctx, t); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, model.ActionTaskUpdated, model.EntityVoucherTask, strconv.FormatInt(id, 10), req)
	return t, nil
}

// DeactivateTask hides a task from residents. Tasks are never hard-deleted
// because attempts reference them.
func (s *voucherService) DeactivateTask(ctx context.Context, actor string, id int64) (*model.VoucherTask, error) {
	t, err := s.findTask(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Active = false
	if err := s.saveTask(ctx, t); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, model.ActionTaskDeactivated, model.EntityVoucherTask, strconv.FormatInt(id, 10), nil)
	return t, nil
}

func (s *voucherService) saveTask(ctx context.Context, t *model.VoucherTask) error {
	if err := s.repo.UpdateTask(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to update voucher task: %w", err)
	}
	return nil
}

func (s *voucherService) SubmitAttempt(ctx context.Context, userEmail string, taskID int64, note string) (*model.TaskAttempt, error) {
	t, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, ErrTaskInactive
	}

	a := &model.TaskAttempt{
		TaskID:    t.ID,
		TaskTitle: t.Title,
		Points:    t.Points,
		UserEmail: NormalizeEmail(userEmail),
		Status:    model.AttemptPending,
		Note:      strings.TrimSpace(note),
	}
	if err := s.repo.CreateAttempt(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to create task attempt: %w", err)
	}
	s.log.Info(ctx, "task attempt submitted", "attempt_id", a.ID, "task_id", t.ID, "email", a.UserEmail)
	return a, nil
}

func (s *voucherService) ListMyAttempts(ctx context.Context, userEmail string) ([]model.TaskAttempt, error) {
	email := NormalizeEmail(userEmail)
	return s.ListAttempts(ctx, model.AttemptFilters{UserEmail: &email})
}

func (s *voucherService) ListAttempts(ctx context.Context, filters model.AttemptFilters) ([]model.TaskAttempt, error) {
	if filters.Status != nil && *filters.Status != "" {
		switch *filters.Status {
		case model.AttemptPending, model.AttemptApproved, model.AttemptRejected:
		default:
			return nil, newError(ErrInvalidInput, "status must be pending, approved or rejected")
		}
	}
	attempts, err := s.repo.ListAttempts(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list task attempts: %w", err)
	}
	return attempts, nil
}

func (s *voucherService) findAttempt(ctx context.Context, id int64) (*model.TaskAttempt, error) {
	a, err := s.repo.FindAttemptByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to find task attempt: %w", err)
	}
	return a, nil
}

// UploadProof stores a proof file for the owner's pending attempt under
// {uploadsDir}/attempts/{id}/.
func (s *voucherService) UploadProof(ctx context.Context, attemptID int64, userEmail string, fileHeader *multipart.FileHeader) (*model.TaskAttempt, error) {
	a, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.UserEmail != NormalizeEmail(userEmail) {
		return nil, ErrNotAttemptOwner
	}
	if a.Status != model.AttemptPending {
		return nil, ErrAttemptReviewed
	}

	// Validate file
	if fileHeader.Size > MaxFileSize {
		return nil, ErrFileSizeExceeded
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedProofExts[ext] {
		return nil, ErrInvalidFile
	}

	attemptDir := filepath.Join(s.uploadsDir, "attempts", strconv.FormatInt(attemptID, 10))
	if err := os.MkdirAll(attemptDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	filePath := filepath.Join(attemptDir, uuid.NewString()+ext)
	relativeFilePath := filepath.ToSlash(filePath)

	if err := saveUpload(fileHeader, filePath); err != nil {
		return nil, err
	}

	if err := s.repo.SetAttemptProof(ctx, attemptID, relativeFilePath); err != nil {
		os.Remove(filePath)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to update attempt with proof path: %w", err)
	}
	if a.ProofPath != nil && *a.ProofPath != relativeFilePath {
		if err := os.Remove(filepath.FromSlash(*a.ProofPath)); err != nil && !os.IsNotExist(err) {
			s.log.Warn(ctx, "failed to remove replaced proof", "attempt_id", attemptID, "error", err)
		}
	}

	a.ProofPath = &relativeFilePath
	return a, nil
}

// ProofFile locates an attempt's proof on disk. Admins may read any proof,
// residents only their own.
func (s *voucherService) ProofFile(ctx context.Context, attemptID int64, userEmail, role string) (string, string, error) {
	a, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return "", "", err
	}
	if role != model.RoleAdmin && a.UserEmail != NormalizeEmail(userEmail) {
		return "", "", ErrNotAttemptOwner
	}
	if a.ProofPath == nil || *a.ProofPath == "" {
		return "", "", ErrProofNotFound
	}

	fullPath := filepath.FromSlash(*a.ProofPath)
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			s.log.Warn(ctx, "proof file missing on disk", "attempt_id", attemptID, "path", fullPath)
			return "", "", ErrProofNotFound
		}
		return "", "", fmt.Errorf("failed to stat proof file: %w", err)
	}
	return fullPath, filepath.Base(fullPath), nil
}

func saveUpload(fileHeader *multipart.FileHeader, dstPath string) error {
	src, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create file on server: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// ApproveAttempt approves a pending attempt and credits its points.
func (s *voucherService) ApproveAttempt(ctx context.Context, actor string, attemptID int64, note *string) (*model.TaskAttempt, error) {
	return s.review(ctx, actor, attemptID, note, true)
}

// RejectAttempt rejects a pending attempt.
func (s *voucherService) RejectAttempt(ctx context.Context, actor string, attemptID int64, reason *string) (*model.TaskAttempt, error) {
	return s.review(ctx, actor, attemptID, reason, false)
}

func (s *voucherService) review(ctx context.Context, actor string, attemptID int64, note *string, approve bool) (*model.TaskAttempt, error) {
	existing, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if existing.Status != model.AttemptPending {
		return nil, ErrAttemptReviewed
	}
	if note != nil {
		trimmed := strings.TrimSpace(*note)
		note = &trimmed
		if trimmed == "" {
			note = nil
		}
	}

	action := model.ActionAttemptRejected
	var reviewed *model.TaskAttempt
	if approve {
		action = model.ActionAttemptApproved
		reviewed, err = s.repo.ApproveAttempt(ctx, attemptID, actor, note)
	} else {
		reviewed, err = s.repo.RejectAttempt(ctx, attemptID, actor, note)
	}
	if err != nil {
		// Another reviewer got there first.
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptReviewed
		}
		return nil, fmt.Errorf("failed to review task attempt: %w", err)
	}

	details := map[string]any{"userEmail": reviewed.UserEmail, "taskId": reviewed.TaskID}
	if approve {
		details["points"] = reviewed.Points
	}
	if note != nil {
		details["note"] = *note
	}
	s.audit.Record(ctx, actor, action, model.EntityTaskAttempt, strconv.FormatInt(attemptID, 10), details)
	return reviewed, nil
}

package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"minimart/internal/logging"
	"minimart/internal/model"
	"minimart/internal/repository"
)

// AuditRecorder records admin actions. Recording is best-effort: a failure
// is logged and never fails the caller.
type AuditRecorder interface {
	Record(ctx context.Context, actor, action, entityType, entityID string, details any)
}

// AuditService records and queries the admin audit trail.
type AuditService interface {
	AuditRecorder
	List(ctx context.Context, filters model.AuditFilters) ([]model.AuditLog, error)
	ExportCSV(ctx context.Context, filters model.AuditFilters) (*bytes.Buffer, error)
}

type auditService struct {
	repo repository.AuditRepository
	log  logging.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo repository.AuditRepository, log logging.Logger) AuditService {
	return &auditService{repo: repo, log: log.With("component", "audit")}
}

func (s *auditService) Record(ctx context.Context, actor, action, entityType, entityID string, details any) {
	entry := &model.AuditLog{
		ActorEmail: actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			s.log.Warn(ctx, "audit details not serializable", "action", action, "error", err)
		} else {
			entry.Details = raw
		}
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Error(ctx, "failed to record audit log", "actor", actor, "action", action, "entity_id", entityID, "error", err)
	}
}

func (s *auditService) List(ctx context.Context, filters model.AuditFilters) ([]model.AuditLog, error) {
	logs, err := s.repo.Find(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	return logs, nil
}

// ExportCSV writes every matching entry; the listing page cap does not apply.
func (s *auditService) ExportCSV(ctx context.Context, filters model.AuditFilters) (*bytes.Buffer, error) {
	filters.Unbounded = true
	logs, err := s.repo.Find(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audit logs for CSV export: %w", err)
	}

	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)

	header := []string{"ID", "Time", "Actor", "Action", "EntityType", "EntityID", "Details"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, l := range logs {
		row := []string{
			strconv.FormatInt(l.ID, 10),
			l.CreatedAt.In(model.DisplayZone).Format(time.RFC3339),
			l.ActorEmail,
			l.Action,
			l.EntityType,
			l.EntityID,
			string(l.Details),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("error flushing CSV writer: %w", err)
	}
	return buffer, nil
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/models"
)

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// recordAudit writes an audit entry and only logs failures; auditing never
// fails the request.
func recordAudit(ctx context.Context, recorder auditRecorder, logger *zap.Logger, entry *models.AuditLog) {
	if recorder == nil {
		return
	}
	if err := recorder.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func newAuditEntry(action, resource, resourceID, actorID string, meta models.RequestMeta, payload interface{}) *models.AuditLog {
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if payload != nil {
		entry.NewValues = auditPayload(payload)
	}
	return entry
}

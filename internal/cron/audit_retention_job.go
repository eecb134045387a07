package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/pkg/logger"
)

const defaultAuditRetentionWindow = 90 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRetentionRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteDLQBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type AuditRetentionJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	AuditRepo auditRetentionRepo
	DLQRepo   dlqRetentionRepo
	Window    time.Duration
}

func NewAuditRetentionJob(params AuditRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.AuditRepo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultAuditRetentionWindow
	}
	return &auditRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		auditRepo: params.AuditRepo,
		dlqRepo:   params.DLQRepo,
		window:    window,
		now:       time.Now,
	}, nil
}

type auditRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	auditRepo auditRetentionRepo
	dlqRepo   dlqRetentionRepo
	window    time.Duration
	now       func() time.Time
}

func (j *auditRetentionJob) Name() string { return "audit-retention" }

func (j *auditRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)

	var auditDeleted, dlqDeleted int64
	var errs []error

	if err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.auditRepo.DeleteOlderThan(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		auditDeleted = rows
		return nil
	}); err != nil {
		errs = append(errs, fmt.Errorf("audit retention: %w", err))
	}

	if j.dlqRepo != nil {
		if err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			rows, err := j.dlqRepo.DeleteDLQBefore(ctx, tx, cutoff)
			if err != nil {
				return err
			}
			dlqDeleted = rows
			return nil
		}); err != nil {
			errs = append(errs, fmt.Errorf("dlq retention: %w", err))
		}
	}

	if combined := multierr.Combine(errs...); combined != nil {
		return combined
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":             cutoff,
		"window":             j.window.String(),
		"audit_rows_deleted": auditDeleted,
		"dlq_rows_deleted":   dlqDeleted,
	})
	j.logg.Info(logCtx, "audit retention cleanup complete")
	return nil
}

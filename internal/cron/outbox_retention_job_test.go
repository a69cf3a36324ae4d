package cron

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/internal/testdb"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/outbox"
)

func TestOutboxRetentionJobPrunesDeliveredAndParkedRows(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	client, conn := testdb.Client(t)
	old := now.AddDate(0, 0, -45)
	recent := now.AddDate(0, 0, -2)

	deliveredOld := seedOutboxRow(t, conn, old, &old, 1)
	deliveredRecent := seedOutboxRow(t, conn, recent, &recent, 1)
	parkedOld := seedOutboxRow(t, conn, old, nil, 10)
	retryingOld := seedOutboxRow(t, conn, old, nil, 3)

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:          client,
		Repository:  outbox.NewRepository(conn),
		MaxAttempts: 10,
		Now:         func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for id, wantKept := range map[uuid.UUID]bool{
		deliveredOld:    false,
		deliveredRecent: true,
		parkedOld:       false,
		retryingOld:     true,
	} {
		var count int64
		if err := conn.Model(&models.OutboxEvent{}).Where("id = ?", id).Count(&count).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if kept := count == 1; kept != wantKept {
			t.Fatalf("row %s kept=%v, want %v", id, kept, wantKept)
		}
	}
}

func TestOutboxRetentionJobDefaults(t *testing.T) {
	client, conn := testdb.Client(t)
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         client,
		Repository: outbox.NewRepository(conn),
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job := jobIface.(*outboxRetentionJob)
	if job.retention != defaultOutboxRetentionDays || job.maxAttempts != defaultOutboxMaxAttempts {
		t.Fatalf("unexpected defaults: retention=%d attempts=%d", job.retention, job.maxAttempts)
	}
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}

func seedOutboxRow(t *testing.T, conn *gorm.DB, createdAt time.Time, publishedAt *time.Time, attempts int) uuid.UUID {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		CreatedAt:     createdAt.UTC(),
		AttemptCount:  attempts,
	}
	if publishedAt != nil {
		at := publishedAt.UTC()
		row.PublishedAt = &at
	}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("seed outbox row: %v", err)
	}
	return row.ID
}

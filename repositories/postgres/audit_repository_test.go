package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
)

func TestAuditRepositoryInsert(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	entry := models.NewAuditEntry(uuid.New(), models.AuditActionAdminPageAccess, "system").
		WithDetails(map[string]string{"path": "/admin/review"}).
		WithClient("203.0.113.7", "Mozilla/5.0")

	mock.ExpectExec("INSERT INTO audit_entries").
		WithArgs(entry.ID, entry.ActorID, entry.Action, entry.TargetType, nil,
			[]byte(entry.Details), entry.IPAddress, entry.UserAgent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), entry)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryGetByAction(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "actor_id", "action", "target_type", "target_id",
		"details", "ip_address", "user_agent", "timestamp",
	}).
		AddRow(uuid.NewString(), uuid.NewString(), "admin_page_access", "system", nil,
			[]byte(`{"path":"/admin"}`), "203.0.113.7", "curl/8.0", now)

	mock.ExpectQuery("SELECT id, actor_id, action").
		WithArgs(models.AuditActionAdminPageAccess, 10, 0).
		WillReturnRows(rows)

	entries, err := repo.GetByAction(context.Background(), models.AuditActionAdminPageAccess, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, models.AuditActionAdminPageAccess, entries[0].Action)
	assert.JSONEq(t, `{"path":"/admin"}`, string(entries[0].Details))
}

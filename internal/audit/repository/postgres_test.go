package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"poolfi/backend/internal/audit/domain"
)

func TestPostgresRepository_CreateAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(insertAuditLogSQL)).
		WithArgs("a1", "p1", "u1", "join", "pool", "10.0.0.1", nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err = repo.Create(context.Background(), &domain.AuditLog{
		ID: "a1", PoolID: "p1", UserID: "u1", Action: "join", Resource: "pool", IP: "10.0.0.1", CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "pool_id", "user_id", "action", "resource", "ip", "metadata", "created_at"}).
		AddRow("a1", "p1", "u1", "join", "pool", "10.0.0.1", nil, now)
	mock.ExpectQuery(regexp.QuoteMeta(listAuditLogsByPoolSQL)).WithArgs("p1", int32(50), int32(0)).WillReturnRows(rows)
	list, err := repo.ListByPool(context.Background(), "p1", 50, 0)
	if err != nil {
		t.Fatalf("ListByPool: %v", err)
	}
	if len(list) != 1 || list[0].UserID != "u1" || list[0].Metadata != "" {
		t.Errorf("list = %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"poolfi/backend/internal/identity/domain"
)

func newUser(id, email string) *domain.User {
	return &domain.User{
		ID:           id,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Pseudonym:    "ada",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFileRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewFileRepository(filepath.Join(t.TempDir(), DocumentName), nil, nil)

	if err := r.Create(ctx, newUser("u1", "ada@example.com")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	byEmail, err := r.GetByEmail(ctx, "  ADA@example.com ")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail == nil || byEmail.ID != "u1" {
		t.Fatalf("GetByEmail = %+v, want u1", byEmail)
	}
	byID, err := r.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID == nil || byID.Email != "ada@example.com" {
		t.Fatalf("GetByID = %+v", byID)
	}
	byID.Pseudonym = "changed"
	again, _ := r.GetByID(ctx, "u1")
	if again.Pseudonym != "ada" {
		t.Error("GetByID should return a copy")
	}
}

func TestFileRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	r := NewFileRepository(filepath.Join(t.TempDir(), DocumentName), nil, nil)
	u, err := r.GetByEmail(ctx, "nobody@example.com")
	if err != nil || u != nil {
		t.Fatalf("GetByEmail = %+v, %v; want nil, nil", u, err)
	}
	u, err = r.GetByID(ctx, "missing")
	if err != nil || u != nil {
		t.Fatalf("GetByID = %+v, %v; want nil, nil", u, err)
	}
}

func TestFileRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	r := NewFileRepository(filepath.Join(t.TempDir(), DocumentName), nil, nil)
	if err := r.Create(ctx, newUser("u1", "ada@example.com")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(ctx, newUser("u2", "ada@example.com")); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("Create duplicate = %v, want ErrDuplicateEmail", err)
	}
}

func TestFileRepository_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), DocumentName)
	if err := NewFileRepository(path, nil, nil).Create(ctx, newUser("u1", "ada@example.com")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	u, err := NewFileRepository(path, nil, nil).GetByID(ctx, "u1")
	if err != nil || u == nil {
		t.Fatalf("GetByID after reopen = %+v, %v", u, err)
	}
}

package repository

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"poolfi/backend/internal/identity/domain"
	"poolfi/backend/internal/platform/docstore"
)

// DocumentName is the file name of the user document inside the data directory.
const DocumentName = "auth-db.json"

// AuthDocument is the persisted shape of the file-backed user store.
type AuthDocument struct {
	Users     []*domain.User `json:"users"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func emptyDocument() AuthDocument {
	return AuthDocument{Users: []*domain.User{}, UpdatedAt: time.Now().UTC()}
}

// FileRepository stores every user in one JSON document.
type FileRepository struct {
	store *docstore.Store[AuthDocument]
}

// NewFileRepository returns a FileRepository persisting to path. backup may be nil.
func NewFileRepository(path string, backup docstore.Backup, log logrus.FieldLogger) *FileRepository {
	return &FileRepository{
		store: docstore.New(path, emptyDocument, docstore.Options{Backup: backup, Logger: log}),
	}
}

// GetByID returns the user with id, or nil if not found.
func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range doc.Users {
		if u != nil && u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// GetByEmail returns the user with the normalized email, or nil if not found.
func (r *FileRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexByEmail(doc.Users, domain.NormalizeEmail(email)); i >= 0 {
		c := *doc.Users[i]
		return &c, nil
	}
	return nil, nil
}

// Create appends u. Returns ErrDuplicateEmail when the email is taken.
func (r *FileRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.store.Update(ctx, func(doc *AuthDocument) error {
		if indexByEmail(doc.Users, domain.NormalizeEmail(u.Email)) >= 0 {
			return ErrDuplicateEmail
		}
		c := *u
		doc.Users = append(doc.Users, &c)
		doc.UpdatedAt = time.Now().UTC()
		return nil
	})
	return err
}

func indexByEmail(users []*domain.User, email string) int {
	for i, u := range users {
		if u != nil && u.Email == email {
			return i
		}
	}
	return -1
}

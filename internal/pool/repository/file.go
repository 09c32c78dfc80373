package repository

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"poolfi/backend/internal/platform/docstore"
	"poolfi/backend/internal/pool/domain"
)

// DocumentName is the file name of the access document inside the data directory.
const DocumentName = "pool-access-db.json"

// AccessDocument is the persisted shape of the file-backed store.
type AccessDocument struct {
	Pools     []*domain.AccessPool `json:"pools"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

func seedDocument() AccessDocument {
	return AccessDocument{Pools: SeedImpactPools(), UpdatedAt: time.Now().UTC()}
}

// FileRepository stores every pool in one JSON document. Writes are serialized by the document store
// and checked against each pool's version.
type FileRepository struct {
	store *docstore.Store[AccessDocument]
	nowF  func() time.Time
}

// NewFileRepository returns a FileRepository persisting to path. backup may be nil.
func NewFileRepository(path string, backup docstore.Backup, log logrus.FieldLogger) *FileRepository {
	return &FileRepository{
		store: docstore.New(path, seedDocument, docstore.Options{Backup: backup, Logger: log}),
		nowF:  time.Now,
	}
}

// ListPools returns copies of every pool in document order.
func (r *FileRepository) ListPools(ctx context.Context) ([]*domain.AccessPool, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.AccessPool, 0, len(doc.Pools))
	for _, p := range doc.Pools {
		if p != nil {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// GetPool returns a copy of the pool with id, or nil if not found.
func (r *FileRepository) GetPool(ctx context.Context, id string) (*domain.AccessPool, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(doc.Pools, id); i >= 0 {
		return doc.Pools[i].Clone(), nil
	}
	return nil, nil
}

// CreatePool inserts p at the head or tail of the document.
func (r *FileRepository) CreatePool(ctx context.Context, p *domain.AccessPool, placement Placement) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.store.Update(ctx, func(doc *AccessDocument) error {
		if indexOf(doc.Pools, p.ID) >= 0 {
			return domain.ErrAlreadyExists
		}
		stored := p.Clone()
		stored.Version = 0
		if placement == PlaceFirst {
			doc.Pools = append([]*domain.AccessPool{stored}, doc.Pools...)
		} else {
			doc.Pools = append(doc.Pools, stored)
		}
		doc.UpdatedAt = r.nowF().UTC()
		return nil
	})
	if err != nil {
		return err
	}
	p.Version = 0
	return nil
}

// UpdatePool replaces the stored pool if nobody else has written it since p was read.
func (r *FileRepository) UpdatePool(ctx context.Context, p *domain.AccessPool) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.store.Update(ctx, func(doc *AccessDocument) error {
		i := indexOf(doc.Pools, p.ID)
		if i < 0 {
			return domain.ErrPoolNotFound
		}
		if doc.Pools[i].Version != p.Version {
			return domain.ErrVersionConflict
		}
		stored := p.Clone()
		stored.Version = p.Version + 1
		doc.Pools[i] = stored
		doc.UpdatedAt = r.nowF().UTC()
		return nil
	})
	if err != nil {
		return err
	}
	p.Version++
	return nil
}

func indexOf(pools []*domain.AccessPool, id string) int {
	id = domain.NormalizeIdentifier(id)
	for i, p := range pools {
		if p != nil && domain.NormalizeIdentifier(p.ID) == id {
			return i
		}
	}
	return -1
}

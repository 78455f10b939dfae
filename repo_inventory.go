package motors

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Classifications interface {
	repository.Repository[*Classification]

	ListOrdered(ctx context.Context) ([]*Classification, error)
}

// Vehicles lists the repository.Repository[*Vehicle] methods explicitly
// because its Delete takes an id, which Go's embedding rules would reject
// as a duplicate of the repository's Delete(ctx, record).
type Vehicles interface {
	Raw(ctx context.Context, sql string, args ...any) ([]*Vehicle, error)
	RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]*Vehicle, error)
	Get(ctx context.Context, criteria ...repository.SelectCriteria) (*Vehicle, error)
	GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (*Vehicle, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*Vehicle, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (*Vehicle, error)
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Vehicle, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Vehicle, error)
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*Vehicle, int, error)
	ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]*Vehicle, int, error)
	Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error)
	CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error)
	Create(ctx context.Context, record *Vehicle, criteria ...repository.InsertCriteria) (*Vehicle, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Vehicle, criteria ...repository.InsertCriteria) (*Vehicle, error)
	CreateMany(ctx context.Context, records []*Vehicle, criteria ...repository.InsertCriteria) ([]*Vehicle, error)
	CreateManyTx(ctx context.Context, tx bun.IDB, records []*Vehicle, criteria ...repository.InsertCriteria) ([]*Vehicle, error)
	GetOrCreate(ctx context.Context, record *Vehicle) (*Vehicle, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *Vehicle) (*Vehicle, error)
	Update(ctx context.Context, record *Vehicle, criteria ...repository.UpdateCriteria) (*Vehicle, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Vehicle, criteria ...repository.UpdateCriteria) (*Vehicle, error)
	UpdateMany(ctx context.Context, records []*Vehicle, criteria ...repository.UpdateCriteria) ([]*Vehicle, error)
	UpdateManyTx(ctx context.Context, tx bun.IDB, records []*Vehicle, criteria ...repository.UpdateCriteria) ([]*Vehicle, error)
	Upsert(ctx context.Context, record *Vehicle, criteria ...repository.UpdateCriteria) (*Vehicle, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *Vehicle, criteria ...repository.UpdateCriteria) (*Vehicle, error)
	UpsertMany(ctx context.Context, records []*Vehicle, criteria ...repository.UpdateCriteria) ([]*Vehicle, error)
	UpsertManyTx(ctx context.Context, tx bun.IDB, records []*Vehicle, criteria ...repository.UpdateCriteria) ([]*Vehicle, error)
	DeleteTx(ctx context.Context, tx bun.IDB, record *Vehicle) error
	DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error
	DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error
	DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error
	DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error
	ForceDelete(ctx context.Context, record *Vehicle) error
	ForceDeleteTx(ctx context.Context, tx bun.IDB, record *Vehicle) error
	Handlers() repository.ModelHandlers[*Vehicle]

	ListByClassification(ctx context.Context, classificationID uuid.UUID) ([]*Vehicle, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type classifications struct {
	repository.Repository[*Classification]
	db *bun.DB
}

var _ Classifications = (*classifications)(nil)

func NewClassificationsRepository(db *bun.DB) Classifications {
	repo := repository.NewRepository[*Classification](db, repository.ModelHandlers[*Classification]{
		NewRecord: func() *Classification { return &Classification{} },
		GetID: func(c *Classification) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Classification, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &classifications{
		Repository: repo,
		db:         db,
	}
}

// ListOrdered returns every classification in display order for the nav bar
func (c *classifications) ListOrdered(ctx context.Context) ([]*Classification, error) {
	records := []*Classification{}
	err := c.db.NewSelect().
		Model(&records).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

type vehicles struct {
	repository.Repository[*Vehicle]
	db *bun.DB
}

var _ Vehicles = (*vehicles)(nil)

func NewVehiclesRepository(db *bun.DB) Vehicles {
	repo := repository.NewRepository[*Vehicle](db, repository.ModelHandlers[*Vehicle]{
		NewRecord: func() *Vehicle { return &Vehicle{} },
		GetID: func(v *Vehicle) uuid.UUID {
			if v == nil {
				return uuid.Nil
			}
			return v.ID
		},
		SetID: func(v *Vehicle, id uuid.UUID) {
			if v != nil {
				v.ID = id
			}
		},
	})

	return &vehicles{
		Repository: repo,
		db:         db,
	}
}

// ListByClassification returns the inventory grid for a classification page
func (v *vehicles) ListByClassification(ctx context.Context, classificationID uuid.UUID) ([]*Vehicle, error) {
	records := []*Vehicle{}
	err := v.db.NewSelect().
		Model(&records).
		Relation("Classification").
		Where("?TableAlias.classification_id = ?", classificationID).
		Order("make ASC", "model ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Delete soft-deletes a vehicle; the row keeps history but leaves listings
func (v *vehicles) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := v.db.NewDelete().
		Model((*Vehicle)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

// GetDetail loads a single vehicle with its classification for detail pages
func (v *vehicles) GetDetail(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	record := &Vehicle{}
	err := v.db.NewSelect().
		Model(record).
		Relation("Classification").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

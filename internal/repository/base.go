package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"mailmaster/internal/events"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Scope narrows a query, usually to rows owned by a user.
type Scope = func(*gorm.DB) *gorm.DB

const (
	DefaultPageSize = 15
	MaxPageSize     = 100
)

// ListQuery carries pagination and equality filters. Filter keys are column
// names and must be whitelisted by the caller.
type ListQuery struct {
	Page    int
	Limit   int
	Filters map[string]interface{}
}

// Normalize clamps page and limit into their allowed ranges.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	return q
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// BaseRepository implements the CRUD operations shared by every model.
type BaseRepository[T any] struct {
	db    *gorm.DB
	bus   *events.Bus
	table string
}

func GormTableName(db *gorm.DB, v any) string {
	return db.NamingStrategy.TableName(reflect.TypeOf(v).Name())
}

// NewBaseRepository creates a repository for T. bus may be nil.
func NewBaseRepository[T any](db *gorm.DB, bus *events.Bus) *BaseRepository[T] {
	var model T
	return &BaseRepository[T]{
		db:    db,
		bus:   bus,
		table: GormTableName(db, model),
	}
}

func (r *BaseRepository[T]) Table() string {
	return r.table
}

// DB returns a session bound to ctx for queries the base does not cover.
func (r *BaseRepository[T]) DB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *BaseRepository[T]) Create(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return translate(err)
	}

	r.emit(ctx, "created", entity)
	return nil
}

func (r *BaseRepository[T]) First(ctx context.Context, scopes ...Scope) (*T, error) {
	var entity T
	if err := r.db.WithContext(ctx).Scopes(scopes...).First(&entity).Error; err != nil {
		return nil, translate(err)
	}
	return &entity, nil
}

func (r *BaseRepository[T]) FindByID(ctx context.Context, id string, scopes ...Scope) (*T, error) {
	return r.First(ctx, append(scopes, r.WhereID(id))...)
}

func (r *BaseRepository[T]) List(ctx context.Context, q ListQuery, scopes ...Scope) ([]T, int64, error) {
	q = q.Normalize()

	var (
		model    T
		entities []T
		total    int64
	)

	query := r.db.WithContext(ctx).Model(&model).Scopes(scopes...)

	keys := make([]string, 0, len(q.Filters))
	for key := range q.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		query = query.Where(clause.Eq{
			Column: clause.Column{Table: r.table, Name: key},
			Value:  q.Filters[key],
		})
	}

	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Session(&gorm.Session{}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: r.table, Name: "created_at"}, Desc: true}).
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}

// Save writes every column of entity. Associations are left alone.
func (r *BaseRepository[T]) Save(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(entity).Error; err != nil {
		return translate(err)
	}

	r.emit(ctx, "updated", entity)
	return nil
}

// Delete removes the row with id, returning ErrNotFound when no row matched
// the id and scopes.
func (r *BaseRepository[T]) Delete(ctx context.Context, id string, scopes ...Scope) error {
	var model T
	res := r.db.WithContext(ctx).Scopes(append(scopes, r.WhereID(id))...).Delete(&model)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.emit(ctx, "deleted", id)
	return nil
}

func (r *BaseRepository[T]) WhereID(id string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("%s.id = ?", r.table), id)
	}
}

func (r *BaseRepository[T]) emit(ctx context.Context, action string, payload interface{}) {
	if r.bus == nil {
		return
	}
	r.bus.Emit(ctx, fmt.Sprintf("%s.%s", r.table, action), payload)
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

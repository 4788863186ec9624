// Package catalog is the narrow row-store client used by the blog and gallery flows.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/yardline/internal/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Query filters a Select. Where holds column equality conditions.
type Query struct {
	Where map[string]any
	Order []string
	Limit int
}

// Table is the capability set every flow needs from a catalog table.
type Table[T any] interface {
	Select(ctx context.Context, query Query) ([]T, error)
	Insert(ctx context.Context, rows ...*T) ([]*T, error)
	Update(ctx context.Context, id uint, fields map[string]any) (*T, error)
	Upsert(ctx context.Context, rows []*T, conflictKey string) ([]*T, error)
	InsertMissing(ctx context.Context, rows []*T, conflictKey string) (int64, error)
	Delete(ctx context.Context, id uint) error
}

// GormTable implements Table over gorm with an explicit table name.
type GormTable[T any] struct {
	db   *gorm.DB
	name string
}

// NewGormTable binds model T to the named table.
func NewGormTable[T any](gdb *gorm.DB, name string) *GormTable[T] {
	return &GormTable[T]{db: gdb, name: name}
}

// Name returns the table name.
func (t *GormTable[T]) Name() string {
	return t.name
}

func (t *GormTable[T]) scoped(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx).Table(t.name)
}

func (t *GormTable[T]) Select(ctx context.Context, query Query) ([]T, error) {
	tx := t.scoped(ctx)
	if len(query.Where) > 0 {
		columns := make([]string, 0, len(query.Where))
		for column := range query.Where {
			columns = append(columns, column)
		}
		sort.Strings(columns)
		for _, column := range columns {
			tx = tx.Where(clause.Eq{Column: clause.Column{Name: column}, Value: query.Where[column]})
		}
	}
	for _, order := range query.Order {
		tx = tx.Order(order)
	}
	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}

	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, apperr.Store(fmt.Sprintf("select from %s failed", t.name), err)
	}
	return rows, nil
}

func (t *GormTable[T]) Insert(ctx context.Context, rows ...*T) ([]*T, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	if err := t.scoped(ctx).Create(&rows).Error; err != nil {
		return nil, apperr.Store(fmt.Sprintf("insert into %s failed", t.name), err)
	}
	return rows, nil
}

func (t *GormTable[T]) Update(ctx context.Context, id uint, fields map[string]any) (*T, error) {
	if len(fields) > 0 {
		result := t.scoped(ctx).Model(new(T)).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return nil, apperr.Store(fmt.Sprintf("update %s failed", t.name), result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, apperr.NotFound(fmt.Sprintf("row %d not found in %s", id, t.name))
		}
	}

	var row T
	if err := t.scoped(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("row %d not found in %s", id, t.name))
		}
		return nil, apperr.Store(fmt.Sprintf("reload %s failed", t.name), err)
	}
	return &row, nil
}

func (t *GormTable[T]) Upsert(ctx context.Context, rows []*T, conflictKey string) ([]*T, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	err := t.scoped(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: conflictKey}}, UpdateAll: true}).
		Create(&rows).Error
	if err != nil {
		return nil, apperr.Store(fmt.Sprintf("upsert into %s failed", t.name), err)
	}
	return rows, nil
}

// InsertMissing inserts only the rows whose conflictKey is not present yet and
// reports how many were written. Existing rows are left untouched.
func (t *GormTable[T]) InsertMissing(ctx context.Context, rows []*T, conflictKey string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	result := t.scoped(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: conflictKey}}, DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return 0, apperr.Store(fmt.Sprintf("insert into %s failed", t.name), result.Error)
	}
	return result.RowsAffected, nil
}

func (t *GormTable[T]) Delete(ctx context.Context, id uint) error {
	result := t.scoped(ctx).Where("id = ?", id).Delete(new(T))
	if result.Error != nil {
		return apperr.Store(fmt.Sprintf("delete from %s failed", t.name), result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(fmt.Sprintf("row %d not found in %s", id, t.name))
	}
	return nil
}

// Package store reads and writes catalog positions directly in Postgres, for
// deployments where the console shares the catalog database.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cateradmin/api/internal/config"
	"github.com/cateradmin/api/internal/gateway"
	"github.com/cateradmin/api/internal/rank"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Errors returned by the position store.
var (
	ErrNoTable    = errors.New("scheme has no table")
	ErrRowMissing = errors.New("row not found")
)

// PersistError wraps a failed transactional persist. Nothing was written.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string { return "persist positions: " + e.Err.Error() }

func (e *PersistError) Unwrap() error { return e.Err }

// Is makes a database failure match the gateway's persist error, so callers
// treat both backends alike.
func (e *PersistError) Is(target error) bool { return target == gateway.ErrPersist }

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Querier runs read queries. Satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DB is the pool surface the store needs.
type DB interface {
	TxBeginner
	Querier
}

// PositionStore lists and persists positions for any configured scheme.
type PositionStore struct {
	db DB
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(db DB) *PositionStore {
	return &PositionStore{db: db}
}

// List returns every row of the scheme's table as rank items, ordered the
// way the catalog shows them.
func (s *PositionStore) List(ctx context.Context, scheme config.Scheme) ([]rank.Item, error) {
	if scheme.Table == "" {
		return nil, fmt.Errorf("list %s: %w", scheme.Name, ErrNoTable)
	}

	sql := fmt.Sprintf("SELECT * FROM %s ORDER BY %s, %s",
		pgx.Identifier{scheme.Table}.Sanitize(),
		pgx.Identifier{scheme.PositionField}.Sanitize(),
		pgx.Identifier{scheme.IDField}.Sanitize(),
	)
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", scheme.Name, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("list %s: table %q does not exist: %w", scheme.Name, scheme.Table, err)
		}
		return nil, fmt.Errorf("list %s: %w", scheme.Name, err)
	}

	items := make([]rank.Item, 0, len(maps))
	for i, row := range maps {
		it, err := itemFromRow(scheme, row)
		if err != nil {
			return nil, fmt.Errorf("list %s: row %d: %w", scheme.Name, i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// Persist writes every item's rank into the position column inside one
// transaction. A missing row rolls the whole write back.
func (s *PositionStore) Persist(ctx context.Context, scheme config.Scheme, items []rank.Item) error {
	if scheme.Table == "" {
		return &PersistError{Err: fmt.Errorf("%s: %w", scheme.Name, ErrNoTable)}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return &PersistError{Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	sql := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE %s::text = $2",
		pgx.Identifier{scheme.Table}.Sanitize(),
		pgx.Identifier{scheme.PositionField}.Sanitize(),
		pgx.Identifier{scheme.IDField}.Sanitize(),
	)
	for _, it := range items {
		tag, err := tx.Exec(ctx, sql, it.Rank, it.ID)
		if err != nil {
			return &PersistError{Err: fmt.Errorf("update %s: %w", it.ID, err)}
		}
		if tag.RowsAffected() == 0 {
			return &PersistError{Err: fmt.Errorf("update %s: %w", it.ID, ErrRowMissing)}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &PersistError{Err: fmt.Errorf("commit tx: %w", err)}
	}
	return nil
}

// isUndefinedTable reports whether err is Postgres' "relation does not exist".
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return false
}

// --- Helpers ---

func itemFromRow(scheme config.Scheme, row map[string]any) (rank.Item, error) {
	id := columnString(row[scheme.IDField])
	if id == "" {
		return rank.Item{}, fmt.Errorf("missing %q", scheme.IDField)
	}

	position := 0
	if p := columnString(row[scheme.PositionField]); p != "" {
		n, err := gateway.ParsePosition(p)
		if err != nil {
			return rank.Item{}, fmt.Errorf("item %s: invalid %q: %w", id, scheme.PositionField, err)
		}
		position = n
	}

	attrs := make(rank.Attributes, len(scheme.Fields))
	for _, f := range scheme.Fields {
		attrs[f] = columnString(row[f])
	}

	display := gateway.Display{
		Name:  columnString(row["name"]),
		Price: gateway.ParsePrice(id, columnString(row["price"])),
	}

	return rank.Item{ID: id, Attributes: attrs, Rank: position, Payload: display}, nil
}

// columnString renders a scanned column value the way the catalog API
// would: booleans as "1"/"0", NULL as "".
func columnString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.Numeric:
		if !x.Valid {
			return ""
		}
		val, err := x.Value()
		if err != nil || val == nil {
			return ""
		}
		return val.(string)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

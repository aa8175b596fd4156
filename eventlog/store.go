package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cafichain/core"
	"cafichain/core/types"
)

// ErrNotFound is returned when a receipt is not in the journal.
var ErrNotFound = errors.New("eventlog: receipt not found")

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Store persists receipts and their events through gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn. Postgres URLs and key/value DSNs select the postgres
// driver; anything else is handed to sqlite. An empty dsn opens a private
// in-memory database.
func Open(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	var dialector gorm.Dialector
	switch {
	case dsn == "":
		dialector = sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	case isPostgresDSN(dsn):
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("eventlog: open: %w", err)
	}
	return NewStore(db)
}

func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=")
}

// NewStore wraps an existing connection and migrates the schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("eventlog: nil database")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("eventlog: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Publish implements core.Sink.
func (s *Store) Publish(ctx context.Context, receipt *core.Receipt) error {
	return s.Append(ctx, receipt)
}

// Append stores receipt and its events in one transaction.
func (s *Store) Append(ctx context.Context, receipt *core.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("eventlog: nil receipt")
	}
	row := ReceiptRecord{
		ID:        uuid.New(),
		ReceiptID: receipt.ID,
		Sequence:  receipt.Sequence,
		Operation: receipt.Operation,
		Caller:    receipt.Caller,
		Timestamp: receipt.Timestamp,
	}
	for i, evt := range receipt.Events {
		if evt == nil {
			continue
		}
		attrs, err := json.Marshal(evt.Attributes)
		if err != nil {
			return fmt.Errorf("eventlog: encode %s: %w", evt.Type, err)
		}
		row.Events = append(row.Events, EventRecord{
			ID:         uuid.New(),
			Sequence:   receipt.Sequence,
			Position:   i,
			Type:       evt.Type,
			Attributes: string(attrs),
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Caller        string
	Operation     string
	EventType     string
	AfterSequence uint64
	Limit         int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

// List returns receipts in sequence order. When EventType is set only
// receipts containing such an event are returned, with all their events.
func (s *Store) List(ctx context.Context, filter Filter) ([]*core.Receipt, error) {
	query := s.db.WithContext(ctx).Model(&ReceiptRecord{}).
		Where("sequence > ?", filter.AfterSequence)
	if caller := strings.TrimSpace(filter.Caller); caller != "" {
		query = query.Where("caller = ?", caller)
	}
	if op := strings.TrimSpace(filter.Operation); op != "" {
		query = query.Where("operation = ?", op)
	}
	if typ := strings.TrimSpace(filter.EventType); typ != "" {
		sub := s.db.Model(&EventRecord{}).Select("receipt_row_id").Where("type = ?", typ)
		query = query.Where("id IN (?)", sub)
	}
	var rows []ReceiptRecord
	err := query.Order("sequence ASC").Limit(filter.limit()).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("eventlog: list: %w", err)
	}
	out := make([]*core.Receipt, 0, len(rows))
	for i := range rows {
		receipt, err := rows[i].receipt()
		if err != nil {
			return nil, err
		}
		out = append(out, receipt)
	}
	return out, nil
}

// Receipt loads a single receipt by its content id.
func (s *Store) Receipt(ctx context.Context, id string) (*core.Receipt, error) {
	var row ReceiptRecord
	err := s.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("receipt_id = ?", strings.ToLower(strings.TrimSpace(id))).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("eventlog: receipt: %w", err)
	}
	return row.receipt()
}

// LastSequence returns the highest stored receipt sequence, or zero.
func (s *Store) LastSequence(ctx context.Context) (uint64, error) {
	var seq sql.NullInt64
	row := s.db.WithContext(ctx).Model(&ReceiptRecord{}).Select("MAX(sequence)").Row()
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("eventlog: last sequence: %w", err)
	}
	if !seq.Valid || seq.Int64 < 0 {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

func (r *ReceiptRecord) receipt() (*core.Receipt, error) {
	evts := make([]*types.Event, 0, len(r.Events))
	for _, row := range r.Events {
		attrs := map[string]string{}
		if row.Attributes != "" {
			if err := json.Unmarshal([]byte(row.Attributes), &attrs); err != nil {
				return nil, fmt.Errorf("eventlog: decode %s: %w", row.Type, err)
			}
		}
		evts = append(evts, &types.Event{Type: row.Type, Attributes: attrs})
	}
	return &core.Receipt{
		ID:        r.ReceiptID,
		Sequence:  r.Sequence,
		Operation: r.Operation,
		Caller:    r.Caller,
		Timestamp: r.Timestamp,
		Events:    evts,
	}, nil
}

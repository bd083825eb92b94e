package postgres

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// bulkExecer abstracts over *pgxpool.Pool and pgx.Tx so the bulk helpers
// below can run inside a caller-owned transaction (the common case — every
// transformer in internal/transform opens one write transaction, applies
// its bulk operations, then commits, per spec.md §4.9 and §9's
// session/transaction-scoping guidance) or directly against the pool.
type bulkExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const defaultBatchSize = 100

// bulkInsert performs a parameterized multi-row INSERT, auto-chunked into
// batches of batchSize (default 100 when batchSize <= 0). rows are
// pre-projected into column order; columns gives the target column names.
// It implements C3's bulk_insert primitive (spec.md §4.3).
func bulkInsert(ctx context.Context, db bulkExecer, table string, columns []string, rows [][]any, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if err := execInsertBatch(ctx, db, table, columns, rows[start:end], ""); err != nil {
			return fmt.Errorf("bulk insert into %s (rows %d-%d): %w", table, start, end, err)
		}
	}
	return nil
}

// bulkInsertOnConflictDoNothing implements C3's bulk_insert_relationships
// primitive: many-row INSERT ... ON CONFLICT (cols) DO NOTHING, used for
// edge tables (projects_wits, projects_statuses) and insert-with-on-conflict
// entities (WorkItemPrLink) per spec.md §3's lifecycle summary.
func bulkInsertOnConflictDoNothing(ctx context.Context, db bulkExecer, table string, columns []string, rows [][]any, conflictCols []string, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	suffix := fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(conflictCols, ", "))
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if err := execInsertBatch(ctx, db, table, columns, rows[start:end], suffix); err != nil {
			return fmt.Errorf("bulk insert (on conflict do nothing) into %s (rows %d-%d): %w", table, start, end, err)
		}
	}
	return nil
}

// bulkUpsert implements upsert-on-conflict entities (Sprint, Project,
// WorkItemType, Status): INSERT ... ON CONFLICT (conflictCols) DO UPDATE
// SET col = EXCLUDED.col for every column not in conflictCols. Required for
// the concurrency guarantee in spec.md §5 ("sprints and work_item_sprints
// tables specifically require ON CONFLICT semantics because multiple
// issue-transform workers may see the same sprint simultaneously").
func bulkUpsert(ctx context.Context, db bulkExecer, table string, columns []string, rows [][]any, conflictCols []string, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	// Never rewrite the surrogate id of an existing row: the incoming rows
	// carry freshly generated ids, and the whole point of the upsert is
	// that the existing row (and everything referencing it) survives.
	updateCols := make([]string, 0, len(columns))
	conflictSet := map[string]bool{"id": true}
	for _, c := range conflictCols {
		conflictSet[c] = true
	}
	for _, c := range columns {
		if !conflictSet[c] {
			updateCols = append(updateCols, c)
		}
	}
	var suffix string
	if len(updateCols) == 0 {
		suffix = fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(conflictCols, ", "))
	} else {
		sets := make([]string, len(updateCols), len(updateCols)+1)
		for i, c := range updateCols {
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
		}
		sets = append(sets, "updated_at = now()")
		suffix = fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflictCols, ", "), strings.Join(sets, ", "))
	}
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if err := execInsertBatch(ctx, db, table, columns, rows[start:end], suffix); err != nil {
			return fmt.Errorf("bulk upsert into %s (rows %d-%d): %w", table, start, end, err)
		}
	}
	return nil
}

// bulkUpdate performs a parameterized per-row UPDATE by primary key,
// chunked via a pgx batch so the round trips are pipelined rather than
// sequential. rows map a primary-key value to its ordered column values.
// It implements C3's bulk_update primitive (spec.md §4.3).
func bulkUpdate(ctx context.Context, db interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}, table, pkColumn string, columns []string, rows []updateRow, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s, updated_at = now() WHERE %s = $%d",
		table, strings.Join(sets, ", "), pkColumn, len(columns)+1)

	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		batch := &pgx.Batch{}
		for _, row := range rows[start:end] {
			args := append(append([]any{}, row.Values...), row.PK)
			batch.Queue(stmt, args...)
		}
		results := db.SendBatch(ctx, batch)
		for range rows[start:end] {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("bulk update %s (rows %d-%d): %w", table, start, end, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("bulk update %s close batch: %w", table, err)
		}
	}
	return nil
}

// updateRow is one row of a bulkUpdate call: PK identifies the row,
// Values are the ordered column values matching bulkUpdate's columns arg.
type updateRow struct {
	PK     any
	Values []any
}

// execInsertBatch builds and runs a single multi-row INSERT statement for
// up to len(rows) rows, appending suffix (an ON CONFLICT clause, or empty)
// after the VALUES list.
func execInsertBatch(ctx context.Context, db bulkExecer, table string, columns []string, rows [][]any, suffix string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	args := make([]any, 0, len(rows)*len(columns))
	argN := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", argN)
			argN++
			args = append(args, sanitizeValue(v))
		}
		sb.WriteByte(')')
	}
	sb.WriteString(suffix)

	_, err := db.Exec(ctx, sb.String(), args...)
	return err
}

// sanitizeValue re-encodes string values to valid UTF-8 with replacement,
// so provider payloads containing invalid surrogates (a recurring issue
// with some issue trackers' emoji/astral-plane handling) never fail the
// bind. Non-string values pass through unchanged.
func sanitizeValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return sanitizeUTF8(s)
}

// sanitizeUTF8 returns s unchanged if it is already valid UTF-8, otherwise
// rebuilds it rune-by-rune substituting the replacement character for any
// invalid byte sequence.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				sb.WriteRune(utf8.RuneError)
				continue
			}
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

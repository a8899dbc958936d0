package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// querier is the read surface shared by the store and its transactions.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Get looks a document up by id within its table. A missing document
// resolves to wire.Null, not an error.
func (s *Store) Get(ctx context.Context, table string, id schema.DocID) (wire.Value, error) {
	return getDocument(ctx, s.db, s.tables, table, id)
}

// Scan reads one page of a table in seq order, optionally filtered
// through a declared index.
func (s *Store) Scan(ctx context.Context, table string, req platform.ScanRequest) (platform.ScanResult, error) {
	return scanDocuments(ctx, s.db, s.tables, table, req)
}

func getDocument(ctx context.Context, q querier, tables *schema.Tables, table string, id schema.DocID) (wire.Value, error) {
	if _, ok := tables.Lookup(table); !ok {
		return nil, fmt.Errorf("undeclared table %q", table)
	}

	var (
		creationTime int64
		fieldsJSON   string
	)
	err := q.QueryRowContext(ctx, `
		SELECT creation_time, fields
		FROM documents
		WHERE id = ? AND table_name = ?
	`, string(id), table).Scan(&creationTime, &fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return wire.Null{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
	}

	return documentObject(string(id), creationTime, fieldsJSON)
}

func scanDocuments(ctx context.Context, q querier, tables *schema.Tables, table string, req platform.ScanRequest) (platform.ScanResult, error) {
	tbl, ok := tables.Lookup(table)
	if !ok {
		return platform.ScanResult{}, fmt.Errorf("undeclared table %q", table)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultScanLimit
	}

	afterSeq, err := parseCursor(req.Cursor)
	if err != nil {
		return platform.ScanResult{}, err
	}

	query := `
		SELECT d.seq, d.id, d.creation_time, d.fields
		FROM documents d
	`
	args := []any{}

	if req.Index != "" {
		if !hasIndex(tbl, req.Index) {
			return platform.ScanResult{}, fmt.Errorf("table %q: undeclared index %q", table, req.Index)
		}
		key, err := indexValue(req.Equals)
		if err != nil {
			return platform.ScanResult{}, err
		}
		query += `
		JOIN index_entries e
		  ON e.doc_id = d.id AND e.table_name = ? AND e.index_name = ? AND e.value = ?
		`
		args = append(args, table, req.Index, key)
	}

	// seq ASC keeps pages deterministic across identical stores.
	query += `
		WHERE d.table_name = ? AND d.seq > ?
		ORDER BY d.seq ASC
		LIMIT ?
	`
	args = append(args, table, afterSeq, limit+1)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return platform.ScanResult{}, fmt.Errorf("scan %s: %w", table, err)
	}
	defer rows.Close()

	var (
		docs []wire.Object
		seqs []int64
	)
	for rows.Next() {
		var (
			seq          int64
			id           string
			creationTime int64
			fieldsJSON   string
		)
		if err := rows.Scan(&seq, &id, &creationTime, &fieldsJSON); err != nil {
			return platform.ScanResult{}, fmt.Errorf("scan %s: %w", table, err)
		}
		doc, err := documentObject(id, creationTime, fieldsJSON)
		if err != nil {
			return platform.ScanResult{}, fmt.Errorf("scan %s: %w", table, err)
		}
		docs = append(docs, doc)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return platform.ScanResult{}, fmt.Errorf("scan %s: %w", table, err)
	}

	// One row past the limit means another page exists; the cursor
	// points at the last returned row, not the probe row.
	res := platform.ScanResult{Done: true}
	if len(docs) > limit {
		docs = docs[:limit]
		seqs = seqs[:limit]
		res.Done = false
		res.Cursor = formatCursor(seqs[len(seqs)-1])
	}
	res.Documents = docs
	return res, nil
}

func parseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	seq, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("malformed scan cursor %q", cursor)
	}
	return seq, nil
}

func formatCursor(seq int64) string {
	return strconv.FormatInt(seq, 10)
}

func hasIndex(tbl schema.Table, name string) bool {
	for _, idx := range tbl.Indexes {
		if idx.Name == name {
			return true
		}
	}
	return false
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// Txn is one write transaction. All of a mutation's reads and writes go
// through a single Txn, so its effects commit atomically or not at all.
type Txn struct {
	tx *sql.Tx
	s  *Store
}

// Get reads a document inside the transaction, seeing its own writes.
func (t *Txn) Get(ctx context.Context, table string, id schema.DocID) (wire.Value, error) {
	return getDocument(ctx, t.tx, t.s.tables, table, id)
}

// Scan reads a page inside the transaction, seeing its own writes.
func (t *Txn) Scan(ctx context.Context, table string, req platform.ScanRequest) (platform.ScanResult, error) {
	return scanDocuments(ctx, t.tx, t.s.tables, table, req)
}

// Insert stores a new document and materializes its index rows. A
// unique-index conflict resolves to the typed NOT_UNIQUE failure.
func (t *Txn) Insert(ctx context.Context, table string, fields wire.Object) (schema.DocID, error) {
	tbl, ok := t.s.tables.Lookup(table)
	if !ok {
		return "", fmt.Errorf("undeclared table %q", table)
	}

	id, err := t.s.ids.NewID()
	if err != nil {
		return "", err
	}

	fieldsJSON, err := marshalFields(fields)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", table, err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO documents (id, table_name, creation_time, fields)
		VALUES (?, ?, ?, ?)
	`, string(id), table, t.s.now().UnixMilli(), fieldsJSON)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", table, err)
	}

	if err := t.writeIndexRows(ctx, tbl, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Patch merges new field values into an existing document and rebuilds
// its index rows. A missing document resolves to the typed NOT_FOUND
// failure; a unique-index conflict to NOT_UNIQUE.
func (t *Txn) Patch(ctx context.Context, id schema.DocID, patch wire.Object) error {
	table, fields, err := t.loadForWrite(ctx, id)
	if err != nil {
		return err
	}
	tbl, _ := t.s.tables.Lookup(table)

	merged := fields.Clone()
	for k, v := range patch {
		merged[k] = v
	}

	fieldsJSON, err := marshalFields(merged)
	if err != nil {
		return fmt.Errorf("patch %s: %w", id, err)
	}
	if _, err := t.tx.ExecContext(ctx, `
		UPDATE documents SET fields = ? WHERE id = ?
	`, fieldsJSON, string(id)); err != nil {
		return fmt.Errorf("patch %s: %w", id, err)
	}

	if err := t.clearIndexRows(ctx, id); err != nil {
		return err
	}
	return t.writeIndexRows(ctx, tbl, id, merged)
}

// Delete removes a document; its index rows cascade. A missing document
// resolves to the typed NOT_FOUND failure.
func (t *Txn) Delete(ctx context.Context, id schema.DocID) error {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM documents WHERE id = ?
	`, string(id))
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		return effect.Failf(effect.CodeNotFound, "no document %s", id)
	}
	return nil
}

// Commit makes the transaction's writes durable.
func (t *Txn) Commit() error {
	return t.tx.Commit()
}

// Rollback discards the transaction's writes. Safe to call after Commit.
func (t *Txn) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// loadForWrite fetches a document's owning table and current fields.
func (t *Txn) loadForWrite(ctx context.Context, id schema.DocID) (string, wire.Object, error) {
	var (
		table      string
		fieldsJSON string
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT table_name, fields FROM documents WHERE id = ?
	`, string(id)).Scan(&table, &fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, effect.Failf(effect.CodeNotFound, "no document %s", id)
	}
	if err != nil {
		return "", nil, fmt.Errorf("load %s: %w", id, err)
	}
	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return "", nil, fmt.Errorf("load %s: %w", id, err)
	}
	return table, fields, nil
}

// writeIndexRows materializes every declared index row for a document.
// A document without the indexed field simply has no row in that index.
func (t *Txn) writeIndexRows(ctx context.Context, tbl schema.Table, id schema.DocID, fields wire.Object) error {
	for _, idx := range tbl.Indexes {
		v, present := fields[idx.Field]
		if !present {
			continue
		}
		key, err := indexValue(v)
		if err != nil {
			return fmt.Errorf("index %s.%s: %w", tbl.Name, idx.Name, err)
		}

		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO index_entries (table_name, index_name, value, doc_id)
			VALUES (?, ?, ?, ?)
		`, tbl.Name, idx.Name, key, string(id)); err != nil {
			return fmt.Errorf("index %s.%s: %w", tbl.Name, idx.Name, err)
		}

		if !idx.Unique {
			continue
		}
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO unique_entries (table_name, index_name, value, doc_id)
			VALUES (?, ?, ?, ?)
		`, tbl.Name, idx.Name, key, string(id)); err != nil {
			if isUniqueViolation(err) {
				return effect.Failf(effect.CodeNotUnique,
					"%s.%s: a document with this value already exists", tbl.Name, idx.Name)
			}
			return fmt.Errorf("index %s.%s: %w", tbl.Name, idx.Name, err)
		}
	}
	return nil
}

// clearIndexRows drops a document's materialized index rows before a
// rebuild.
func (t *Txn) clearIndexRows(ctx context.Context, id schema.DocID) error {
	for _, table := range []string{"index_entries", "unique_entries"} {
		if _, err := t.tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE doc_id = ?", table), string(id)); err != nil {
			return fmt.Errorf("clear index rows for %s: %w", id, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite uniqueness conflict,
// from either a UNIQUE constraint or a WITHOUT ROWID primary key.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

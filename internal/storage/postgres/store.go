package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mhmtalitas/parkmeter/internal/storage"
)

// LedgerStore implements storage.Runner on PostgreSQL. State lives in
// two tables mirroring the key namespaces: instance_state keyed by kind,
// persistent_state keyed by (kind, ref). Values are JSONB records.
type LedgerStore struct{ db *DB }

// NewLedgerStore constructs the Postgres-backed ledger store.
func NewLedgerStore(db *DB) *LedgerStore { return &LedgerStore{db: db} }

// InTx runs fn in one serializable transaction. The ledger's
// read-modify-write operations rely on this isolation level; anything
// weaker would need per-record versioning.
func (l *LedgerStore) InTx(ctx context.Context, fn func(storage.Store) error) (err error) {
	tx, err := l.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()
	return fn(&txStore{tx: tx})
}

type txStore struct{ tx pgx.Tx }

const (
	selInstance = `SELECT value FROM instance_state WHERE kind=$1`
	setInstance = `
INSERT INTO instance_state (kind, value, updated_at) VALUES ($1,$2,now())
ON CONFLICT (kind) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`
	hasInstance = `SELECT EXISTS(SELECT 1 FROM instance_state WHERE kind=$1)`

	selPersistent = `SELECT value FROM persistent_state WHERE kind=$1 AND ref=$2`
	setPersistent = `
INSERT INTO persistent_state (kind, ref, value, updated_at) VALUES ($1,$2,$3,now())
ON CONFLICT (kind, ref) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`
	hasPersistent = `SELECT EXISTS(SELECT 1 FROM persistent_state WHERE kind=$1 AND ref=$2)`
)

func (s *txStore) Get(ctx context.Context, key storage.Key, out any) (bool, error) {
	var raw []byte
	var err error
	if key.Namespace() == storage.NamespaceInstance {
		err = s.tx.QueryRow(ctx, selInstance, string(key.Kind())).Scan(&raw)
	} else {
		err = s.tx.QueryRow(ctx, selPersistent, string(key.Kind()), key.Ref()).Scan(&raw)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", key.Kind(), key.Ref(), err)
	}
	return true, nil
}

func (s *txStore) Set(ctx context.Context, key storage.Key, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", key.Kind(), key.Ref(), err)
	}
	if key.Namespace() == storage.NamespaceInstance {
		_, err = s.tx.Exec(ctx, setInstance, string(key.Kind()), raw)
	} else {
		_, err = s.tx.Exec(ctx, setPersistent, string(key.Kind()), key.Ref(), raw)
	}
	return err
}

func (s *txStore) Has(ctx context.Context, key storage.Key) (bool, error) {
	var exists bool
	var err error
	if key.Namespace() == storage.NamespaceInstance {
		err = s.tx.QueryRow(ctx, hasInstance, string(key.Kind())).Scan(&exists)
	} else {
		err = s.tx.QueryRow(ctx, hasPersistent, string(key.Kind()), key.Ref()).Scan(&exists)
	}
	return exists, err
}

package storage

import (
	"context"
	"encoding/json"
	"sync"
)

type memCell struct {
	ns   Namespace
	kind Kind
	ref  string
}

// Memory is an in-process Store with snapshot transactions. Invocations
// are serialized by a mutex, matching the single-invocation execution
// model the ledger assumes. Intended for tests and single-process use.
type Memory struct {
	mu   sync.Mutex
	data map[memCell][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[memCell][]byte)}
}

// InTx runs fn against a copy of the state and swaps it in only if fn
// succeeds, so a failed invocation leaves no partial writes.
func (m *Memory) InTx(_ context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := make(map[memCell][]byte, len(m.data))
	for k, v := range m.data {
		snap[k] = v
	}
	if err := fn(&memTx{data: snap}); err != nil {
		return err
	}
	m.data = snap
	return nil
}

type memTx struct {
	data map[memCell][]byte
}

func cellOf(key Key) memCell {
	return memCell{ns: key.Namespace(), kind: key.Kind(), ref: key.Ref()}
}

func (t *memTx) Get(_ context.Context, key Key, out any) (bool, error) {
	raw, ok := t.data[cellOf(key)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (t *memTx) Set(_ context.Context, key Key, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	t.data[cellOf(key)] = raw
	return nil
}

func (t *memTx) Has(_ context.Context, key Key) (bool, error) {
	_, ok := t.data[cellOf(key)]
	return ok, nil
}

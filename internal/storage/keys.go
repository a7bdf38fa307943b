// Package storage defines the ledger's typed key/value store: four key
// variants across two namespaces, with per-invocation transactions.
package storage

import "github.com/mhmtalitas/parkmeter/internal/model"

// Namespace selects which state table a key lives in.
type Namespace int

const (
	// NamespaceInstance holds the small, hot singletons (admin, entry count).
	NamespaceInstance Namespace = iota
	// NamespacePersistent holds the unbounded per-operator and per-plate records.
	NamespacePersistent
)

// Kind discriminates the key variants.
type Kind string

const (
	KindAdmin      Kind = "admin"
	KindEntryCount Kind = "entry_count"
	KindOperator   Kind = "operator"
	KindEntry      Kind = "entry"
)

// Key is a tagged storage key. Construct it with one of the variant
// constructors; routing dispatches on the variant, never on string
// prefixes.
type Key struct {
	kind Kind
	ref  string
}

// AdminKey addresses the admin principal singleton.
func AdminKey() Key { return Key{kind: KindAdmin} }

// EntryCountKey addresses the lifetime entry counter.
func EntryCountKey() Key { return Key{kind: KindEntryCount} }

// OperatorKey addresses the operator record for addr.
func OperatorKey(addr model.Principal) Key {
	return Key{kind: KindOperator, ref: string(addr)}
}

// EntryKey addresses the parking entry for a license plate. The plate
// string is used verbatim; normalization is the caller's concern.
func EntryKey(plate string) Key { return Key{kind: KindEntry, ref: plate} }

// Kind returns the key's variant tag.
func (k Key) Kind() Kind { return k.kind }

// Ref returns the variant argument (operator address or plate); empty
// for the instance singletons.
func (k Key) Ref() string { return k.ref }

// Namespace returns which namespace the variant is stored in.
func (k Key) Namespace() Namespace {
	switch k.kind {
	case KindAdmin, KindEntryCount:
		return NamespaceInstance
	default:
		return NamespacePersistent
	}
}

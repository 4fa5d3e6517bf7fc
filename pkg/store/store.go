package store

import (
	"bytes"
	"fmt"

	"github.com/sjhuskey/copticqa/pkg/rdf"
)

// TripleStore manages the triple indexes and the term dictionary on top
// of a key-value Storage.
type TripleStore struct {
	storage Storage
	encoder *TermEncoder
}

// NewTripleStore creates a new triple store.
func NewTripleStore(storage Storage) *TripleStore {
	return &TripleStore{
		storage: storage,
		encoder: NewTermEncoder(),
	}
}

// Close closes the underlying storage.
func (s *TripleStore) Close() error {
	return s.storage.Close()
}

// Insert inserts a single triple.
func (s *TripleStore) Insert(triple *rdf.Triple) error {
	return s.InsertAll([]*rdf.Triple{triple})
}

// InsertAll inserts triples in a single transaction.
func (s *TripleStore) InsertAll(triples []*rdf.Triple) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback() //nolint:errcheck

	for _, triple := range triples {
		if err := s.insertInTxn(txn, triple); err != nil {
			return err
		}
	}

	return txn.Commit()
}

func (s *TripleStore) insertInTxn(txn Transaction, triple *rdf.Triple) error {
	subjEnc, subjStr, err := s.encoder.EncodeTerm(triple.Subject)
	if err != nil {
		return fmt.Errorf("failed to encode subject: %w", err)
	}
	predEnc, predStr, err := s.encoder.EncodeTerm(triple.Predicate)
	if err != nil {
		return fmt.Errorf("failed to encode predicate: %w", err)
	}
	objEnc, objStr, err := s.encoder.EncodeTerm(triple.Object)
	if err != nil {
		return fmt.Errorf("failed to encode object: %w", err)
	}

	if err := s.storeString(txn, subjEnc, subjStr); err != nil {
		return err
	}
	if err := s.storeString(txn, predEnc, predStr); err != nil {
		return err
	}
	if err := s.storeString(txn, objEnc, objStr); err != nil {
		return err
	}

	emptyValue := []byte{}
	if err := txn.Set(TableSPO, s.encoder.EncodeTripleKey(subjEnc, predEnc, objEnc), emptyValue); err != nil {
		return err
	}
	if err := txn.Set(TablePOS, s.encoder.EncodeTripleKey(predEnc, objEnc, subjEnc), emptyValue); err != nil {
		return err
	}
	return txn.Set(TableOSP, s.encoder.EncodeTripleKey(objEnc, subjEnc, predEnc), emptyValue)
}

// storeString records a hashed term's string form in the id2str table.
func (s *TripleStore) storeString(txn Transaction, encoded EncodedTerm, str *string) error {
	if str == nil {
		return nil
	}

	key := encoded[1:] // hash portion
	value := []byte(*str)

	existing, err := txn.Get(TableID2Str, key)
	if err == nil && bytes.Equal(existing, value) {
		return nil
	}
	if err != nil && err != ErrNotFound {
		return err
	}

	return txn.Set(TableID2Str, key, value)
}

// Count returns the number of stored triples.
func (s *TripleStore) Count() (int, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback() //nolint:errcheck

	it, err := txn.Scan(TableSPO, nil)
	if err != nil {
		return 0, err
	}
	defer it.Close() //nolint:errcheck

	count := 0
	for it.Next() {
		count++
	}
	return count, nil
}

// Pattern is a triple pattern. Each position holds an rdf.Term or a
// *Variable.
type Pattern struct {
	Subject   any
	Predicate any
	Object    any
}

// Variable represents a query variable.
type Variable struct {
	Name string
}

func NewVariable(name string) *Variable {
	return &Variable{Name: name}
}

func (v *Variable) String() string {
	return "?" + v.Name
}

// Binding maps variable names to the terms they are bound to in one
// solution row.
type Binding struct {
	Vars map[string]rdf.Term
}

// NewBinding creates a new empty binding.
func NewBinding() *Binding {
	return &Binding{Vars: make(map[string]rdf.Term)}
}

// Clone creates a copy of the binding.
func (b *Binding) Clone() *Binding {
	nb := NewBinding()
	for k, v := range b.Vars {
		nb.Vars[k] = v
	}
	return nb
}

// TripleIterator iterates over triples matching a pattern.
type TripleIterator interface {
	Next() bool
	Triple() (*rdf.Triple, error)
	Close() error
}

// Query matches a pattern against the store and returns an iterator over
// the matching triples. The caller must Close the iterator.
func (s *TripleStore) Query(pattern *Pattern) (TripleIterator, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}

	table, keyPattern := selectIndex(pattern)

	prefix, err := s.buildScanPrefix(pattern, keyPattern)
	if err != nil {
		_ = txn.Rollback()
		return nil, err
	}

	it, err := txn.Scan(table, prefix)
	if err != nil {
		_ = txn.Rollback()
		return nil, err
	}

	return &tripleIterator{
		store:      s,
		txn:        txn,
		it:         it,
		keyPattern: keyPattern,
	}, nil
}

// selectIndex chooses the index whose key order puts the bound positions
// first. KeyPattern maps key position -> SPO position (S=0, P=1, O=2).
func selectIndex(pattern *Pattern) (Table, []int) {
	sBound := !isVariable(pattern.Subject)
	pBound := !isVariable(pattern.Predicate)
	oBound := !isVariable(pattern.Object)

	switch {
	case sBound && pBound:
		return TableSPO, []int{0, 1, 2}
	case pBound && oBound:
		return TablePOS, []int{1, 2, 0}
	case oBound && sBound:
		return TableOSP, []int{2, 0, 1}
	case sBound:
		return TableSPO, []int{0, 1, 2}
	case pBound:
		return TablePOS, []int{1, 2, 0}
	case oBound:
		return TableOSP, []int{2, 0, 1}
	default:
		return TableSPO, []int{0, 1, 2}
	}
}

// buildScanPrefix encodes the leading bound terms in key order.
func (s *TripleStore) buildScanPrefix(pattern *Pattern, keyPattern []int) ([]byte, error) {
	positions := [3]any{pattern.Subject, pattern.Predicate, pattern.Object}

	var prefix []byte
	for _, idx := range keyPattern {
		term := positions[idx]
		if isVariable(term) {
			break
		}
		encoded, _, err := s.encoder.EncodeTerm(term.(rdf.Term))
		if err != nil {
			return nil, err
		}
		prefix = append(prefix, encoded[:]...)
	}
	return prefix, nil
}

func isVariable(v any) bool {
	_, ok := v.(*Variable)
	return ok
}

type tripleIterator struct {
	store      *TripleStore
	txn        Transaction
	it         Iterator
	keyPattern []int
	closed     bool
}

func (ti *tripleIterator) Next() bool {
	if ti.closed {
		return false
	}
	return ti.it.Next()
}

func (ti *tripleIterator) Triple() (*rdf.Triple, error) {
	if ti.closed {
		return nil, fmt.Errorf("iterator closed")
	}

	key := ti.it.Key()
	if len(key) < 3*EncodedTermSize {
		return nil, fmt.Errorf("invalid key length: %d", len(key))
	}

	// Map key components back to S, P, O positions
	var positions [3]EncodedTerm
	for i, idx := range ti.keyPattern {
		copy(positions[idx][:], key[i*EncodedTermSize:(i+1)*EncodedTermSize])
	}

	subject, err := ti.store.decodeTerm(ti.txn, positions[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode subject: %w", err)
	}
	predicate, err := ti.store.decodeTerm(ti.txn, positions[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode predicate: %w", err)
	}
	object, err := ti.store.decodeTerm(ti.txn, positions[2])
	if err != nil {
		return nil, fmt.Errorf("failed to decode object: %w", err)
	}

	return rdf.NewTriple(subject, predicate, object), nil
}

func (ti *tripleIterator) Close() error {
	if ti.closed {
		return nil
	}
	ti.closed = true
	_ = ti.it.Close()
	return ti.txn.Rollback()
}

// decodeTerm resolves hashed terms through the id2str table.
func (s *TripleStore) decodeTerm(txn Transaction, encoded EncodedTerm) (rdf.Term, error) {
	var stringValue *string

	switch GetTermType(encoded) {
	case rdf.TermTypeNamedNode, rdf.TermTypeBlankNode,
		rdf.TermTypeStringLiteral, rdf.TermTypeLangStringLiteral,
		rdf.TermTypeTypedLiteral:
		str, err := txn.Get(TableID2Str, encoded[1:])
		if err == nil {
			strVal := string(str)
			stringValue = &strVal
		}
	}

	return s.encoder.DecodeTerm(encoded, stringValue)
}

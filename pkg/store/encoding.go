package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/zeebo/xxh3"
)

const (
	// Maximum size for inline strings (16 bytes of UTF-8)
	MaxInlineStringSize = 16

	// Encoded term size (type byte + 16 bytes for 128-bit hash or inline data)
	EncodedTermSize = 17
)

// EncodedTerm is a term encoded as a type byte followed by up to 16 bytes
// of data: either a 128-bit hash, an inline value, or a fixed-width number.
type EncodedTerm [EncodedTermSize]byte

// TermEncoder encodes RDF terms into the fixed-size binary form used as
// index key components, and decodes them back.
type TermEncoder struct{}

func NewTermEncoder() *TermEncoder {
	return &TermEncoder{}
}

// Hash128 computes a 128-bit xxhash3 hash of the input string.
func (e *TermEncoder) Hash128(s string) [16]byte {
	hash := xxh3.Hash128([]byte(s))
	var result [16]byte
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// EncodeTerm encodes an RDF term into a fixed-size byte array.
// The second return value, when non-nil, is a string that must be stored
// in the id2str table under the encoded term's hash.
func (e *TermEncoder) EncodeTerm(term rdf.Term) (EncodedTerm, *string, error) {
	var encoded EncodedTerm

	switch t := term.(type) {
	case *rdf.NamedNode:
		encoded[0] = byte(rdf.TermTypeNamedNode)
		hash := e.Hash128(t.IRI)
		copy(encoded[1:], hash[:])
		return encoded, &t.IRI, nil
	case *rdf.BlankNode:
		return e.encodeBlankNode(t)
	case *rdf.Literal:
		return e.encodeLiteral(t)
	default:
		return encoded, nil, fmt.Errorf("unknown term type: %T", term)
	}
}

func (e *TermEncoder) encodeBlankNode(node *rdf.BlankNode) (EncodedTerm, *string, error) {
	var encoded EncodedTerm
	encoded[0] = byte(rdf.TermTypeBlankNode)

	// Numeric labels are stored inline
	if num, err := strconv.ParseUint(node.ID, 10, 64); err == nil {
		binary.BigEndian.PutUint64(encoded[1:9], num)
		return encoded, nil, nil
	}

	hash := e.Hash128(node.ID)
	copy(encoded[1:], hash[:])
	return encoded, &node.ID, nil
}

func (e *TermEncoder) encodeLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	if lit.Datatype != nil {
		switch lit.Datatype.IRI {
		case rdf.XSDInteger.IRI:
			return e.encodeIntegerLiteral(lit)
		case rdf.XSDDecimal.IRI:
			return e.encodeFloatLiteral(lit, rdf.TermTypeDecimalLiteral)
		case rdf.XSDDouble.IRI:
			return e.encodeFloatLiteral(lit, rdf.TermTypeDoubleLiteral)
		case rdf.XSDBoolean.IRI:
			return e.encodeBooleanLiteral(lit)
		case rdf.XSDDateTime.IRI:
			return e.encodeDateTimeLiteral(lit)
		case rdf.XSDString.IRI:
			return e.encodeStringLiteral(lit)
		default:
			return e.encodeTypedLiteral(lit)
		}
	}

	if lit.Language != "" {
		return e.encodeLangStringLiteral(lit)
	}

	return e.encodeStringLiteral(lit)
}

func (e *TermEncoder) encodeStringLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var encoded EncodedTerm
	encoded[0] = byte(rdf.TermTypeStringLiteral)

	if len(lit.Value) <= MaxInlineStringSize && !strings.ContainsRune(lit.Value, 0) {
		copy(encoded[1:], lit.Value)
		return encoded, nil, nil
	}

	hash := e.Hash128(lit.Value)
	copy(encoded[1:], hash[:])
	return encoded, &lit.Value, nil
}

func (e *TermEncoder) encodeLangStringLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var encoded EncodedTerm
	encoded[0] = byte(rdf.TermTypeLangStringLiteral)

	combined := lit.Value + "@" + lit.Language
	hash := e.Hash128(combined)
	copy(encoded[1:], hash[:])
	return encoded, &combined, nil
}

// encodeTypedLiteral covers datatypes without a dedicated fixed-width
// encoding. Value and datatype IRI are hashed together.
func (e *TermEncoder) encodeTypedLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var encoded EncodedTerm
	encoded[0] = byte(rdf.TermTypeTypedLiteral)

	combined := lit.Value + "^^" + lit.Datatype.IRI
	hash := e.Hash128(combined)
	copy(encoded[1:], hash[:])
	return encoded, &combined, nil
}

func (e *TermEncoder) encodeIntegerLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var encoded EncodedTerm
	encoded[0] = byte(rdf.TermTypeIntegerLiteral)

	value, err := strconv.ParseInt(lit.Value, 10, 64)
	if err != nil {
		return encoded, nil, fmt.Errorf("invalid integer literal: %w", err)
	}

	binary.BigEndian.PutUint64(encoded[1:9], uint64(value)) // #nosec G115 - intentional bit-pattern conversion
	return encoded, nil, nil
}

func (e *TermEncoder) encodeFloatLiteral(lit *rdf.Literal, tt rdf.TermType) (EncodedTerm, *string, error) {
	var encoded EncodedTerm
	encoded[0] = byte(tt)

	value, err := strconv.ParseFloat(lit.Value, 64)
	if err != nil {
		return encoded, nil, fmt.Errorf("invalid numeric literal: %w", err)
	}

	binary.BigEndian.PutUint64(encoded[1:9], math.Float64bits(value))
	return encoded, nil, nil
}

func (e *TermEncoder) encodeBooleanLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var encoded EncodedTerm
	encoded[0] = byte(rdf.TermTypeBooleanLiteral)

	value, err := strconv.ParseBool(lit.Value)
	if err != nil {
		return encoded, nil, fmt.Errorf("invalid boolean literal: %w", err)
	}

	if value {
		encoded[1] = 1
	}
	return encoded, nil, nil
}

func (e *TermEncoder) encodeDateTimeLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var encoded EncodedTerm
	encoded[0] = byte(rdf.TermTypeDateTimeLiteral)

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(lit.Value))
	if err != nil {
		return encoded, nil, fmt.Errorf("invalid dateTime literal: %w", err)
	}

	binary.BigEndian.PutUint64(encoded[1:9], uint64(t.UnixNano())) // #nosec G115 - intentional bit-pattern conversion
	return encoded, nil, nil
}

// EncodeTripleKey concatenates encoded terms into a big-endian index key
// that sorts lexicographically.
func (e *TermEncoder) EncodeTripleKey(terms ...EncodedTerm) []byte {
	result := make([]byte, 0, len(terms)*EncodedTermSize)
	for _, term := range terms {
		result = append(result, term[:]...)
	}
	return result
}

// GetTermType extracts the type from an encoded term.
func GetTermType(encoded EncodedTerm) rdf.TermType {
	return rdf.TermType(encoded[0])
}

// DecodeTerm decodes an encoded term back to an rdf.Term. For hashed
// terms the string from the id2str table must be provided.
func (e *TermEncoder) DecodeTerm(encoded EncodedTerm, stringValue *string) (rdf.Term, error) {
	switch GetTermType(encoded) {
	case rdf.TermTypeNamedNode:
		if stringValue == nil {
			return nil, fmt.Errorf("string value required for named node")
		}
		return rdf.NewNamedNode(*stringValue), nil

	case rdf.TermTypeBlankNode:
		if stringValue != nil {
			return rdf.NewBlankNode(*stringValue), nil
		}
		numericID := binary.BigEndian.Uint64(encoded[1:9])
		return rdf.NewBlankNode(strconv.FormatUint(numericID, 10)), nil

	case rdf.TermTypeStringLiteral:
		if stringValue != nil {
			return rdf.NewLiteral(*stringValue), nil
		}
		endIdx := 1
		for endIdx < EncodedTermSize && encoded[endIdx] != 0 {
			endIdx++
		}
		return rdf.NewLiteral(string(encoded[1:endIdx])), nil

	case rdf.TermTypeLangStringLiteral:
		if stringValue == nil {
			return nil, fmt.Errorf("string value required for language-tagged literal")
		}
		if i := strings.LastIndexByte(*stringValue, '@'); i >= 0 {
			return rdf.NewLiteralWithLanguage((*stringValue)[:i], (*stringValue)[i+1:]), nil
		}
		return rdf.NewLiteral(*stringValue), nil

	case rdf.TermTypeTypedLiteral:
		if stringValue == nil {
			return nil, fmt.Errorf("string value required for typed literal")
		}
		if i := strings.LastIndex(*stringValue, "^^"); i >= 0 {
			value := (*stringValue)[:i]
			datatype := (*stringValue)[i+2:]
			return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(datatype)), nil
		}
		return rdf.NewLiteral(*stringValue), nil

	case rdf.TermTypeIntegerLiteral:
		value := int64(binary.BigEndian.Uint64(encoded[1:9])) // #nosec G115 - intentional bit-pattern conversion
		return rdf.NewIntegerLiteral(value), nil

	case rdf.TermTypeDecimalLiteral:
		value := math.Float64frombits(binary.BigEndian.Uint64(encoded[1:9]))
		return rdf.NewLiteralWithDatatype(strconv.FormatFloat(value, 'g', -1, 64), rdf.XSDDecimal), nil

	case rdf.TermTypeDoubleLiteral:
		value := math.Float64frombits(binary.BigEndian.Uint64(encoded[1:9]))
		return rdf.NewDoubleLiteral(value), nil

	case rdf.TermTypeBooleanLiteral:
		return rdf.NewBooleanLiteral(encoded[1] != 0), nil

	case rdf.TermTypeDateTimeLiteral:
		nanos := int64(binary.BigEndian.Uint64(encoded[1:9])) // #nosec G115 - intentional bit-pattern conversion
		t := time.Unix(0, nanos).UTC()
		return rdf.NewLiteralWithDatatype(t.Format(time.RFC3339), rdf.XSDDateTime), nil

	default:
		return nil, fmt.Errorf("unknown term type: %d", encoded[0])
	}
}

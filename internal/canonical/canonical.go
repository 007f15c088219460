// Package canonical turns certificate records into a stable byte form and a
// fixed-length digest.
//
// Ingestion and verification both go through Canonicalize and Sum; there is
// exactly one serialization routine, so a record hashed at issue time and the
// same record hashed at verification time always produce the same Hash.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Record holds the six attributes of one academic certificate. Values are
// hashed exactly as stored: no casing or type coercion is ever applied. Input
// boundaries call Trimmed before a Record reaches the hasher, so both
// ingestion and verification see the same normalized form.
type Record struct {
	RollNo string `json:"roll_no" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Course string `json:"course" binding:"required"`
	Branch string `json:"branch" binding:"required"`
	Grade  string `json:"grade" binding:"required"`
	Year   string `json:"year" binding:"required"`
}

// FieldNames is the fixed field set of a Record, in display order. CSV input
// headers must carry exactly these names.
var FieldNames = []string{"RollNo", "Name", "Course", "Branch", "Grade", "Year"}

// Fields returns the record as a field-name → value mapping.
func (r Record) Fields() map[string]string {
	return map[string]string{
		"RollNo": r.RollNo,
		"Name":   r.Name,
		"Course": r.Course,
		"Branch": r.Branch,
		"Grade":  r.Grade,
		"Year":   r.Year,
	}
}

// FromFields builds a Record from a field-name → value mapping. It returns an
// error if the mapping does not carry exactly the fixed field set.
func FromFields(fields map[string]string) (Record, error) {
	if len(fields) != len(FieldNames) {
		return Record{}, fmt.Errorf("expected %d fields, got %d", len(FieldNames), len(fields))
	}
	for _, name := range FieldNames {
		if _, ok := fields[name]; !ok {
			return Record{}, fmt.Errorf("missing field %q", name)
		}
	}
	return Record{
		RollNo: fields["RollNo"],
		Name:   fields["Name"],
		Course: fields["Course"],
		Branch: fields["Branch"],
		Grade:  fields["Grade"],
		Year:   fields["Year"],
	}, nil
}

// Trimmed returns a copy of the record with surrounding whitespace removed
// from every field. Every input boundary applies it before hashing, so a
// value keyed in with stray spaces at verification time still matches its
// ingested form.
func (r Record) Trimmed() Record {
	return Record{
		RollNo: strings.TrimSpace(r.RollNo),
		Name:   strings.TrimSpace(r.Name),
		Course: strings.TrimSpace(r.Course),
		Branch: strings.TrimSpace(r.Branch),
		Grade:  strings.TrimSpace(r.Grade),
		Year:   strings.TrimSpace(r.Year),
	}
}

// Canonicalize serializes a record into its unique byte form: a compact JSON
// object with lexicographically sorted keys and no HTML escaping. Two records
// with identical field values produce byte-identical output regardless of how
// they were assembled; any single-value difference changes the output.
func Canonicalize(r Record) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// encoding/json sorts map keys, which gives us the canonical ordering.
	// A map of string to string cannot fail to encode.
	_ = enc.Encode(r.Fields())
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// HashSize is the digest length in bytes.
const HashSize = 32

// Hash is the SHA-256 digest of a record's canonical form. It is the sole key
// under which the ledger stores certificate entries.
type Hash [HashSize]byte

// Sum computes the digest of a canonical byte form.
func Sum(canonical []byte) Hash {
	return sha256.Sum256(canonical)
}

// HashRecord canonicalizes and digests a record in one step.
func HashRecord(r Record) Hash {
	return Sum(Canonicalize(r))
}

// Hex returns the lowercase hexadecimal form of the hash.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// HashFromHex parses the hexadecimal form produced by Hex.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Copyright 2026 The metawire Authors
//
// This product is licensed to you under the BSD-2 license (the "License").
// You may not use this product except in compliance with the BSD-2 License.
// This product may include a number of subcomponents with separate copyright
// notices and license terms. Your use of these subcomponents is subject to
// the terms and conditions of the subcomponent's license, as noted in the
// LICENSE file.
//
// SPDX-License-Identifier: BSD-2-Clause

package metadata

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"time"

	"golang.org/x/exp/slices"
)

// IsValidSpecVersion reports whether the declared specification version is
// one this codec understands. Exactly the literals "1.0" and "1.0.0" are
// accepted - "1.0" is not valid SemVer but is baked into old root
// documents, so both spellings stay. Anything else, including later
// versions, is rejected rather than negotiated.
func IsValidSpecVersion(version string) bool {
	switch version {
	case "1.0", "1.0.0":
		return true
	}
	return false
}

// parseDatetime accepts any RFC 3339 timestamp - fractional seconds of
// any precision, "Z" or a numeric UTC offset - and normalizes to UTC.
func parseDatetime(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, ErrDatetime{Value: value}
	}
	return ts.UTC(), nil
}

// formatDatetime emits the canonical "YYYY-MM-DDTHH:MM:SSZ" form.
// Sub-second precision is dropped so re-encoding is byte-stable for
// signing; the loss is intentional.
func formatDatetime(ts time.Time) string {
	return ts.UTC().Format("2006-01-02T15:04:05Z")
}

// unmarshalUniqueMap decodes a JSON object into out, failing the moment
// the same key appears twice. Plain map decoding is last-write-wins,
// which would make a repeated key an ambiguity instead of an error.
func unmarshalUniqueMap[V any](data []byte, out map[string]V) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrDecode{Msg: fmt.Sprintf("expected map, got %v", tok)}
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		// inside an object the decoder only yields string keys
		key := tok.(string)
		if _, ok := out[key]; ok {
			return ErrDuplicateMapKey{Key: key}
		}
		var value V
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// checkUniqueFields rejects a JSON object value that repeats a member
// name. Struct decoding is last-write-wins, so without this a repeated
// member would silently take the later value. Non-object values (null
// in particular) pass through untouched.
func checkUniqueFields(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	return unmarshalUniqueMap(trimmed, map[string]json.RawMessage{})
}

// firstDuplicate returns the first value appearing more than once
func firstDuplicate(values []string) (string, bool) {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v, true
		}
		seen[v] = struct{}{}
	}
	return "", false
}

// fromFile returns *Metadata[T] object from file and verifies
// that the data corresponds to the caller struct type
func fromFile[T Roles](name string) (*Metadata[T], error) {
	in, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("error opening metadata file - %s", name)
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("error reading metadata bytes from file - %s", name)
	}
	return fromBytes[T](data)
}

// fromBytes returns *Metadata[T] object from bytes and verifies
// that the data corresponds to the caller struct type
func fromBytes[T Roles](data []byte) (*Metadata[T], error) {
	meta := &Metadata[T]{}
	// an envelope repeating a member is ambiguous, reject it outright
	if err := checkUniqueFields(data); err != nil {
		return nil, err
	}
	// verify that the type we used to create the object is the same as the type of the metadata file
	if err := checkType[T](data); err != nil {
		return nil, err
	}
	// if all is okay, unmarshal meta to the desired Metadata[T] type
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, err
	}
	// make sure signature key IDs are unique
	if err := checkUniqueSignatures(*meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// checkUniqueSignatures verifies that signature key IDs are unique for that metadata
func checkUniqueSignatures[T Roles](meta Metadata[T]) error {
	signatures := []string{}
	for _, sig := range meta.Signatures {
		if slices.Contains(signatures, sig.KeyID) {
			return ErrValue{Msg: fmt.Sprintf("multiple signatures found for key ID %s", sig.KeyID)}
		}
		signatures = append(signatures, sig.KeyID)
	}
	return nil
}

// checkType verifies that the generic type used to create the object
// matches the _type tag of the metadata file in bytes
func checkType[T Roles](data []byte) error {
	var envelope struct {
		Signed struct {
			Type string `json:"_type"`
		} `json:"signed"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	expected := ""
	switch any(new(T)).(type) {
	case *RootType:
		expected = ROOT
	case *SnapshotType:
		expected = SNAPSHOT
	case *TimestampType:
		expected = TIMESTAMP
	case *TargetsType:
		expected = TARGETS
	}
	if signedType := envelope.Signed.Type; signedType != expected {
		return ErrRoleType{Expected: expected, Found: signedType}
	}
	return nil
}

// verifyLength verifies if the passed data has the corresponding length
func verifyLength(data []byte, length int64) error {
	len, err := io.Copy(io.Discard, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if length != len {
		return ErrLengthOrHashMismatch{Msg: fmt.Sprintf("length verification failed - expected %d, got %d", length, len)}
	}
	return nil
}

// verifyHashes verifies if the hash of the passed data corresponds to it
func verifyHashes(data []byte, hashes Hashes) error {
	var hasher hash.Hash
	for k, v := range hashes {
		switch k {
		case "sha256":
			hasher = sha256.New()
		case "sha512":
			hasher = sha512.New()
		default:
			return ErrLengthOrHashMismatch{Msg: fmt.Sprintf("hash verification failed - unknown hashing algorithm - %s", k)}
		}
		hasher.Write(data)
		if hex.EncodeToString(v) != hex.EncodeToString(hasher.Sum(nil)) {
			return ErrLengthOrHashMismatch{Msg: fmt.Sprintf("hash verification failed - mismatch for algorithm %s", k)}
		}
	}
	return nil
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || len(data)%2 != 0 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("invalid JSON hex bytes")
	}
	res := make([]byte, hex.DecodedLen(len(data)-2))
	_, err := hex.Decode(res, data[1:len(data)-1])
	if err != nil {
		return err
	}
	*b = res
	return nil
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	res := make([]byte, hex.EncodedLen(len(b))+2)
	res[0] = '"'
	res[len(res)-1] = '"'
	hex.Encode(res[1:], b)
	return res, nil
}

func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

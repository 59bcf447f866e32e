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
	"fmt"
)

// Typed errors for the metadata wire codec. Decode failures all satisfy
// errors.Is(err, ErrDecode{}) so callers can match the whole class or a
// specific violation. None of these are retried internally - parsing the
// same bytes again cannot succeed - and none are fatal to the process.

// ErrDecode - the generic "these bytes are not a well-formed metadata
// document" error. Every structural decode failure is a subset of it.
type ErrDecode struct {
	Msg string
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("decode error: %s", e.Msg)
}

// Any ErrDecode matches the zero-value ErrDecode class sentinel
func (e ErrDecode) Is(target error) bool {
	return target == ErrDecode{}
}

// ErrRoleType - the document's _type tag does not match the role the
// caller asked to decode
type ErrRoleType struct {
	Expected string
	Found    string
}

func (e ErrRoleType) Error() string {
	return fmt.Sprintf("expected metadata type %s, got - %s", e.Expected, e.Found)
}

// ErrRoleType is a subset of ErrDecode
func (e ErrRoleType) Is(target error) bool {
	return target == ErrDecode{} || target == ErrRoleType{}
}

// ErrSpecVersion - the document declares a spec_version outside the
// accepted literal set
type ErrSpecVersion struct {
	Found string
}

func (e ErrSpecVersion) Error() string {
	return fmt.Sprintf("unknown spec version %s", e.Found)
}

// ErrSpecVersion is a subset of ErrDecode
func (e ErrSpecVersion) Is(target error) bool {
	return target == ErrDecode{} || target == ErrSpecVersion{}
}

// ErrDuplicateMapKey - a map in the wire encoding contains the same key
// twice. Plain JSON decoding is last-write-wins, which would let two
// values for one key travel past review, so externally keyed maps are
// decoded with rejection instead.
type ErrDuplicateMapKey struct {
	Key string
}

func (e ErrDuplicateMapKey) Error() string {
	return fmt.Sprintf("duplicate key %q in map", e.Key)
}

// ErrDuplicateMapKey is a subset of ErrDecode
func (e ErrDuplicateMapKey) Is(target error) bool {
	return target == ErrDecode{} || target == ErrDuplicateMapKey{}
}

// ErrDuplicateKeyID - a role definition or a delegation lists the same
// key ID more than once. Role is empty for delegations.
type ErrDuplicateKeyID struct {
	Role  string
	KeyID string
}

func (e ErrDuplicateKeyID) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("non-unique delegation key IDs - %s", e.KeyID)
	}
	return fmt.Sprintf("duplicate key ID %s in role %s", e.KeyID, e.Role)
}

// ErrDuplicateKeyID is a subset of ErrDecode
func (e ErrDuplicateKeyID) Is(target error) bool {
	return target == ErrDecode{} || target == ErrDuplicateKeyID{}
}

// ErrDuplicatePath - a delegation lists the same path pattern more than
// once
type ErrDuplicatePath struct {
	Path string
}

func (e ErrDuplicatePath) Error() string {
	return fmt.Sprintf("non-unique delegation paths - %s", e.Path)
}

// ErrDuplicatePath is a subset of ErrDecode
func (e ErrDuplicatePath) Is(target error) bool {
	return target == ErrDecode{} || target == ErrDuplicatePath{}
}

// ErrDatetime - the expires field does not parse as an RFC 3339 timestamp
type ErrDatetime struct {
	Value string
}

func (e ErrDatetime) Error() string {
	return fmt.Sprintf("can't parse datetime %q", e.Value)
}

// ErrDatetime is a subset of ErrDecode
func (e ErrDatetime) Is(target error) bool {
	return target == ErrDecode{} || target == ErrDatetime{}
}

// ErrMetaPath - a snapshot meta key lacks the required .json suffix
type ErrMetaPath struct {
	Path string
}

func (e ErrMetaPath) Error() string {
	return fmt.Sprintf("metadata path does not end with .json: %s", e.Path)
}

// ErrMetaPath is a subset of ErrDecode
func (e ErrMetaPath) Is(target error) bool {
	return target == ErrDecode{} || target == ErrMetaPath{}
}

// ErrUnsignedMetadata - an error producing a signature over metadata
type ErrUnsignedMetadata struct {
	Msg string
}

func (e ErrUnsignedMetadata) Error() string {
	return fmt.Sprintf("unsigned metadata error: %s", e.Msg)
}

// ErrLengthOrHashMismatch - an error while checking the length and hash
// values of an object
type ErrLengthOrHashMismatch struct {
	Msg string
}

func (e ErrLengthOrHashMismatch) Error() string {
	return fmt.Sprintf("length/hash verification error: %s", e.Msg)
}

// ValueError
type ErrValue struct {
	Msg string
}

func (e ErrValue) Error() string {
	return fmt.Sprintf("value error: %s", e.Msg)
}

// TypeError
type ErrType struct {
	Msg string
}

func (e ErrType) Error() string {
	return fmt.Sprintf("type error: %s", e.Msg)
}

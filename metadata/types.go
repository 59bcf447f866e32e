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
	"encoding/json"
	"sync"
	"time"
)

// Generic type constraint
type Roles interface {
	RootType | SnapshotType | TimestampType | TargetsType
}

// Version of the specification emitted on newly created metadata.
// Decoding additionally accepts the literal "1.0.0"; see IsValidSpecVersion.
const (
	SPECIFICATION_VERSION = "1.0"
)

// Define top level role names
const (
	ROOT      = "root"
	SNAPSHOT  = "snapshot"
	TARGETS   = "targets"
	TIMESTAMP = "timestamp"
)

// Metadata is the signature envelope every document travels in
type Metadata[T Roles] struct {
	Signed     T           `json:"signed"`
	Signatures []Signature `json:"signatures"`
}

type Signature struct {
	KeyID     string   `json:"keyid"`
	Signature HexBytes `json:"sig"`
}

type RootType struct {
	Type               string          `json:"_type"`
	SpecVersion        string          `json:"spec_version"`
	ConsistentSnapshot bool            `json:"consistent_snapshot"`
	Version            int64           `json:"version"`
	Expires            time.Time       `json:"expires"`
	Keys               map[string]*Key `json:"keys"`
	Roles              RoleDefinitions `json:"roles"`
}

// SnapshotType's Meta is keyed by the logical metadata path; the wire
// form carries the ".json" suffix, added on encode and stripped on decode.
type SnapshotType struct {
	Type        string                `json:"_type"`
	SpecVersion string                `json:"spec_version"`
	Version     int64                 `json:"version"`
	Expires     time.Time             `json:"expires"`
	Meta        map[string]*MetaFiles `json:"meta"`
}

type TargetsType struct {
	Type        string                  `json:"_type"`
	SpecVersion string                  `json:"spec_version"`
	Version     int64                   `json:"version"`
	Expires     time.Time               `json:"expires"`
	Targets     map[string]*TargetFiles `json:"targets"`
	Delegations *Delegations            `json:"delegations,omitempty"`
}

// TimestampType vouches for exactly one document, so its wire meta map
// has the single fixed member "snapshot.json".
type TimestampType struct {
	Type         string     `json:"_type"`
	SpecVersion  string     `json:"spec_version"`
	Version      int64      `json:"version"`
	Expires      time.Time  `json:"expires"`
	SnapshotMeta *MetaFiles `json:"-"`
}

type Key struct {
	Type                string   `json:"keytype"`
	Scheme              string   `json:"scheme"`
	KeyIDHashAlgorithms []string `json:"keyid_hash_algorithms,omitempty"`
	Value               KeyVal   `json:"keyval"`
	id                  string
	idOnce              sync.Once
}

type KeyVal struct {
	PublicKey string `json:"public"`
}

// RoleDefinitions is the fixed four-member "roles" object of a root
// document. All members are required.
type RoleDefinitions struct {
	Root      *Role `json:"root"`
	Snapshot  *Role `json:"snapshot"`
	Targets   *Role `json:"targets"`
	Timestamp *Role `json:"timestamp"`
}

type Role struct {
	KeyIDs    []string `json:"keyids"`
	Threshold int      `json:"threshold"`
}

type HexBytes []byte

type Hashes map[string]HexBytes

type MetaFiles struct {
	Length  int64  `json:"length,omitempty"`
	Hashes  Hashes `json:"hashes,omitempty"`
	Version int64  `json:"version"`
}

type TargetFiles struct {
	Length int64                      `json:"length"`
	Hashes Hashes                     `json:"hashes"`
	Custom map[string]json.RawMessage `json:"custom,omitempty"`
	Path   string                     `json:"-"`
}

// Delegations' Roles keep their decoded order - it is the delegation
// search precedence. Encoding sorts them by name.
type Delegations struct {
	Keys  map[string]*Key `json:"keys"`
	Roles []DelegatedRole `json:"roles"`
}

type DelegatedRole struct {
	Name        string   `json:"name"`
	KeyIDs      []string `json:"keyids"`
	Threshold   int      `json:"threshold"`
	Terminating bool     `json:"terminating"`
	Paths       []string `json:"paths"`
}

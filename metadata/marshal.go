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
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/keylane/metawire/internal/sets"
)

// Wire codec for the metadata types. Decoding is a validating parse that
// fails closed: the _type tag and spec_version are checked before any
// other field is trusted, externally keyed maps and fixed wire objects
// reject repeated keys and members, and key ID / path lists reject
// repeats. Encoding is a pure projection that
// imposes sorted order on key ID lists, delegation path lists and the
// delegation list itself, so the output is a deterministic function of
// the value regardless of map iteration order.

const metaSuffix = ".json"

func (signed RootType) MarshalJSON() ([]byte, error) {
	keys := signed.Keys
	if keys == nil {
		keys = map[string]*Key{}
	}
	return json.Marshal(map[string]any{
		"_type":               signed.Type,
		"spec_version":        signed.SpecVersion,
		"consistent_snapshot": signed.ConsistentSnapshot,
		"version":             signed.Version,
		"expires":             formatDatetime(signed.Expires),
		"keys":                keys,
		"roles":               signed.Roles,
	})
}

func (signed *RootType) UnmarshalJSON(data []byte) error {
	var w struct {
		Type               string          `json:"_type"`
		SpecVersion        string          `json:"spec_version"`
		ConsistentSnapshot bool            `json:"consistent_snapshot"`
		Version            int64           `json:"version"`
		Expires            string          `json:"expires"`
		Keys               json.RawMessage `json:"keys"`
		Roles              RoleDefinitions `json:"roles"`
	}
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != ROOT {
		return ErrRoleType{Expected: ROOT, Found: w.Type}
	}
	if !IsValidSpecVersion(w.SpecVersion) {
		return ErrSpecVersion{Found: w.SpecVersion}
	}
	expires, err := parseDatetime(w.Expires)
	if err != nil {
		return err
	}
	if w.Roles == (RoleDefinitions{}) {
		return ErrDecode{Msg: "root metadata is missing role definitions"}
	}
	keys := map[string]*Key{}
	if w.Keys != nil {
		if err := unmarshalUniqueMap(w.Keys, keys); err != nil {
			return err
		}
	}
	// Ignore keys whose declared ID does not match the ID recomputed from
	// the key material. Strictly that is malformed metadata, but key IDs
	// generated by TUF 0.9 still appear in old signed root documents, so
	// those entries are skipped instead of rejected. Do not turn this
	// into an error.
	for id, key := range keys {
		if id != key.ID() {
			log.Info("Dropping root key with mismatched key ID", "keyid", id)
			delete(keys, id)
		}
	}
	*signed = RootType{
		Type:               w.Type,
		SpecVersion:        w.SpecVersion,
		ConsistentSnapshot: w.ConsistentSnapshot,
		Version:            w.Version,
		Expires:            expires,
		Keys:               keys,
		Roles:              w.Roles,
	}
	return nil
}

func (signed SnapshotType) MarshalJSON() ([]byte, error) {
	meta := make(map[string]*MetaFiles, len(signed.Meta))
	for path, desc := range signed.Meta {
		meta[path+metaSuffix] = desc
	}
	return json.Marshal(map[string]any{
		"_type":        signed.Type,
		"spec_version": signed.SpecVersion,
		"version":      signed.Version,
		"expires":      formatDatetime(signed.Expires),
		"meta":         meta,
	})
}

func (signed *SnapshotType) UnmarshalJSON(data []byte) error {
	var w struct {
		Type        string          `json:"_type"`
		SpecVersion string          `json:"spec_version"`
		Version     int64           `json:"version"`
		Expires     string          `json:"expires"`
		Meta        json.RawMessage `json:"meta"`
	}
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != SNAPSHOT {
		return ErrRoleType{Expected: SNAPSHOT, Found: w.Type}
	}
	if !IsValidSpecVersion(w.SpecVersion) {
		return ErrSpecVersion{Found: w.SpecVersion}
	}
	expires, err := parseDatetime(w.Expires)
	if err != nil {
		return err
	}
	if w.Meta == nil {
		return ErrDecode{Msg: "snapshot metadata is missing meta"}
	}
	wireMeta := map[string]*MetaFiles{}
	if err := unmarshalUniqueMap(w.Meta, wireMeta); err != nil {
		return err
	}
	meta := make(map[string]*MetaFiles, len(wireMeta))
	for path, desc := range wireMeta {
		if !strings.HasSuffix(path, metaSuffix) {
			return ErrMetaPath{Path: path}
		}
		meta[strings.TrimSuffix(path, metaSuffix)] = desc
	}
	*signed = SnapshotType{
		Type:        w.Type,
		SpecVersion: w.SpecVersion,
		Version:     w.Version,
		Expires:     expires,
		Meta:        meta,
	}
	return nil
}

func (signed TimestampType) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"_type":        signed.Type,
		"spec_version": signed.SpecVersion,
		"version":      signed.Version,
		"expires":      formatDatetime(signed.Expires),
		"meta": map[string]*MetaFiles{
			SNAPSHOT + metaSuffix: signed.SnapshotMeta,
		},
	})
}

func (signed *TimestampType) UnmarshalJSON(data []byte) error {
	var w struct {
		Type        string          `json:"_type"`
		SpecVersion string          `json:"spec_version"`
		Version     int64           `json:"version"`
		Expires     string          `json:"expires"`
		Meta        json.RawMessage `json:"meta"`
	}
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != TIMESTAMP {
		return ErrRoleType{Expected: TIMESTAMP, Found: w.Type}
	}
	if !IsValidSpecVersion(w.SpecVersion) {
		return ErrSpecVersion{Found: w.SpecVersion}
	}
	expires, err := parseDatetime(w.Expires)
	if err != nil {
		return err
	}
	if w.Meta == nil {
		return ErrDecode{Msg: "timestamp metadata is missing meta"}
	}
	meta := map[string]*MetaFiles{}
	if err := unmarshalUniqueMap(w.Meta, meta); err != nil {
		return err
	}
	snapshotMeta, ok := meta[SNAPSHOT+metaSuffix]
	if !ok || len(meta) != 1 {
		return ErrDecode{Msg: fmt.Sprintf("timestamp meta must hold exactly one %q entry", SNAPSHOT+metaSuffix)}
	}
	*signed = TimestampType{
		Type:         w.Type,
		SpecVersion:  w.SpecVersion,
		Version:      w.Version,
		Expires:      expires,
		SnapshotMeta: snapshotMeta,
	}
	return nil
}

func (signed TargetsType) MarshalJSON() ([]byte, error) {
	targets := signed.Targets
	if targets == nil {
		targets = map[string]*TargetFiles{}
	}
	dict := map[string]any{
		"_type":        signed.Type,
		"spec_version": signed.SpecVersion,
		"version":      signed.Version,
		"expires":      formatDatetime(signed.Expires),
		"targets":      targets,
	}
	if !signed.Delegations.IsEmpty() {
		dict["delegations"] = signed.Delegations
	}
	return json.Marshal(dict)
}

func (signed *TargetsType) UnmarshalJSON(data []byte) error {
	var w struct {
		Type        string                  `json:"_type"`
		SpecVersion string                  `json:"spec_version"`
		Version     int64                   `json:"version"`
		Expires     string                  `json:"expires"`
		Targets     map[string]*TargetFiles `json:"targets"`
		Delegations *Delegations            `json:"delegations"`
	}
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != TARGETS {
		return ErrRoleType{Expected: TARGETS, Found: w.Type}
	}
	if !IsValidSpecVersion(w.SpecVersion) {
		return ErrSpecVersion{Found: w.SpecVersion}
	}
	expires, err := parseDatetime(w.Expires)
	if err != nil {
		return err
	}
	if w.Targets == nil {
		return ErrDecode{Msg: "targets metadata is missing targets"}
	}
	for path, target := range w.Targets {
		target.Path = path
	}
	*signed = TargetsType{
		Type:        w.Type,
		SpecVersion: w.SpecVersion,
		Version:     w.Version,
		Expires:     expires,
		Targets:     w.Targets,
		Delegations: w.Delegations,
	}
	return nil
}

// RoleDefinitions requires all four members, rejects a repeated member,
// and rejects duplicate key IDs inside each, naming the offending role.
func (r *RoleDefinitions) UnmarshalJSON(data []byte) error {
	type Alias RoleDefinitions
	var a Alias
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = RoleDefinitions(a)
	for _, member := range []struct {
		name string
		role *Role
	}{
		{ROOT, r.Root},
		{SNAPSHOT, r.Snapshot},
		{TARGETS, r.Targets},
		{TIMESTAMP, r.Timestamp},
	} {
		if member.role == nil {
			return ErrDecode{Msg: fmt.Sprintf("missing role definition for %s", member.name)}
		}
		if id, ok := firstDuplicate(member.role.KeyIDs); ok {
			return ErrDuplicateKeyID{Role: member.name, KeyID: id}
		}
	}
	return nil
}

// The leaf wire objects reject repeated members the same way the
// externally keyed maps reject repeated keys.

func (r *Role) UnmarshalJSON(data []byte) error {
	type Alias Role
	var a Alias
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = Role(a)
	return nil
}

// Key assigns field by field rather than through an alias conversion so
// the embedded id cache is never copied.
func (k *Key) UnmarshalJSON(data []byte) error {
	var w struct {
		Type                string   `json:"keytype"`
		Scheme              string   `json:"scheme"`
		KeyIDHashAlgorithms []string `json:"keyid_hash_algorithms"`
		Value               KeyVal   `json:"keyval"`
	}
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	k.Type = w.Type
	k.Scheme = w.Scheme
	k.KeyIDHashAlgorithms = w.KeyIDHashAlgorithms
	k.Value = w.Value
	return nil
}

func (v *KeyVal) UnmarshalJSON(data []byte) error {
	type Alias KeyVal
	var a Alias
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*v = KeyVal(a)
	return nil
}

func (f *MetaFiles) UnmarshalJSON(data []byte) error {
	type Alias MetaFiles
	var a Alias
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*f = MetaFiles(a)
	return nil
}

func (f *TargetFiles) UnmarshalJSON(data []byte) error {
	type Alias TargetFiles
	var a Alias
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*f = TargetFiles(a)
	return nil
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	type Alias Signature
	var a Alias
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Signature(a)
	return nil
}

func (r Role) MarshalJSON() ([]byte, error) {
	type Alias Role
	out := Alias(r)
	out.KeyIDs = sets.DeduplicateStrings(r.KeyIDs)
	slices.Sort(out.KeyIDs)
	return json.Marshal(out)
}

func (d DelegatedRole) MarshalJSON() ([]byte, error) {
	type Alias DelegatedRole
	out := Alias(d)
	out.KeyIDs = sets.DeduplicateStrings(d.KeyIDs)
	slices.Sort(out.KeyIDs)
	out.Paths = sets.DeduplicateStrings(d.Paths)
	slices.Sort(out.Paths)
	return json.Marshal(out)
}

func (d *DelegatedRole) UnmarshalJSON(data []byte) error {
	type Alias DelegatedRole
	var a Alias
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if id, ok := firstDuplicate(a.KeyIDs); ok {
		return ErrDuplicateKeyID{KeyID: id}
	}
	if path, ok := firstDuplicate(a.Paths); ok {
		return ErrDuplicatePath{Path: path}
	}
	*d = DelegatedRole(a)
	return nil
}

func (d Delegations) MarshalJSON() ([]byte, error) {
	type Alias Delegations
	out := Alias(d)
	if out.Keys == nil {
		out.Keys = map[string]*Key{}
	}
	// consistent order for delegated roles on the wire; the in-memory
	// order is the search precedence and stays untouched
	out.Roles = slices.Clone(d.Roles)
	slices.SortStableFunc(out.Roles, func(a, b DelegatedRole) bool {
		return a.Name < b.Name
	})
	return json.Marshal(out)
}

func (d *Delegations) UnmarshalJSON(data []byte) error {
	var w struct {
		Keys  json.RawMessage `json:"keys"`
		Roles []DelegatedRole `json:"roles"`
	}
	if err := checkUniqueFields(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	keys := map[string]*Key{}
	if w.Keys != nil {
		if err := unmarshalUniqueMap(w.Keys, keys); err != nil {
			return err
		}
	}
	d.Keys = keys
	d.Roles = w.Roles
	return nil
}

// IsEmpty reports whether there is nothing worth putting on the wire
func (d *Delegations) IsEmpty() bool {
	return d == nil || (len(d.Keys) == 0 && len(d.Roles) == 0)
}

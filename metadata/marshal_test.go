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
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedExpires = time.Date(2030, 8, 15, 14, 30, 45, 0, time.UTC)

const (
	testKeyJSON    = `{"keytype":"ed25519","scheme":"ed25519","keyval":{"public":"beefcafe"}}`
	validRolesJSON = `{"root":{"keyids":[],"threshold":1},"snapshot":{"keyids":[],"threshold":1},"targets":{"keyids":[],"threshold":1},"timestamp":{"keyids":[],"threshold":1}}`
)

func rootDoc(keys, roles string) []byte {
	return []byte(fmt.Sprintf(`{"signed":{"_type":"root","spec_version":"1.0","consistent_snapshot":true,"version":1,"expires":"2030-08-15T14:30:45Z","keys":%s,"roles":%s},"signatures":[]}`, keys, roles))
}

func snapshotDoc(meta string) []byte {
	return []byte(fmt.Sprintf(`{"signed":{"_type":"snapshot","spec_version":"1.0","version":1,"expires":"2030-08-15T14:30:45Z","meta":%s},"signatures":[]}`, meta))
}

func timestampDoc(meta string) []byte {
	return []byte(fmt.Sprintf(`{"signed":{"_type":"timestamp","spec_version":"1.0","version":1,"expires":"2030-08-15T14:30:45Z","meta":%s},"signatures":[]}`, meta))
}

func targetsDoc(targets, delegations string) []byte {
	doc := fmt.Sprintf(`{"signed":{"_type":"targets","spec_version":"1.0","version":1,"expires":"2030-08-15T14:30:45Z","targets":%s`, targets)
	if delegations != "" {
		doc += fmt.Sprintf(`,"delegations":%s`, delegations)
	}
	return []byte(doc + `},"signatures":[]}`)
}

func TestRootRoundTrip(t *testing.T) {
	root := Root(fixedExpires)
	key := &Key{Type: KeyTypeEd25519, Scheme: KeySchemeEd25519, Value: KeyVal{PublicKey: "beefcafe"}}
	require.NoError(t, root.Signed.AddKey(key, ROOT))
	require.NoError(t, root.Signed.AddKey(key, TIMESTAMP))

	data, err := root.ToBytes(false)
	require.NoError(t, err)

	decoded, err := Root().FromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, root.Signed, decoded.Signed)

	// canonicalization is idempotent
	again, err := decoded.ToBytes(false)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestSnapshotRoundTrip(t *testing.T) {
	snapshot := Snapshot(fixedExpires)
	snapshot.Signed.Meta["delegated"] = MetaFile(4)
	snapshot.Signed.Meta["delegated"].Length = 42
	snapshot.Signed.Meta["delegated"].Hashes = Hashes{"sha256": HexBytes{0xde, 0xad}}

	data, err := snapshot.ToBytes(false)
	require.NoError(t, err)
	// wire keys carry the .json suffix, in-memory keys do not
	assert.Contains(t, string(data), `"delegated.json"`)
	assert.Contains(t, string(data), `"targets.json"`)

	decoded, err := Snapshot().FromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Signed, decoded.Signed)

	again, err := decoded.ToBytes(false)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestSnapshotMetaSuffix(t *testing.T) {
	decoded, err := Snapshot().FromBytes(snapshotDoc(`{"foo.json":{"version":1}}`))
	require.NoError(t, err)
	assert.Contains(t, decoded.Signed.Meta, "foo")
	assert.NotContains(t, decoded.Signed.Meta, "foo.json")

	_, err = Snapshot().FromBytes(snapshotDoc(`{"foo":{"version":1}}`))
	assert.ErrorIs(t, err, ErrMetaPath{})
	var metaPathErr ErrMetaPath
	require.ErrorAs(t, err, &metaPathErr)
	assert.Equal(t, "foo", metaPathErr.Path)
}

func TestTimestampRoundTrip(t *testing.T) {
	timestamp := Timestamp(fixedExpires)
	timestamp.Signed.SnapshotMeta.Version = 7
	timestamp.Signed.SnapshotMeta.Length = 21
	timestamp.Signed.SnapshotMeta.Hashes = Hashes{"sha512": HexBytes{0xca, 0xfe}}

	data, err := timestamp.ToBytes(false)
	require.NoError(t, err)

	decoded, err := Timestamp().FromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, timestamp.Signed, decoded.Signed)

	again, err := decoded.ToBytes(false)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestTimestampMetaExactlySnapshot(t *testing.T) {
	_, err := Timestamp().FromBytes(timestampDoc(`{"snapshot.json":{"version":1}}`))
	assert.NoError(t, err)

	_, err = Timestamp().FromBytes(timestampDoc(`{"other.json":{"version":1}}`))
	assert.ErrorIs(t, err, ErrDecode{})

	_, err = Timestamp().FromBytes(timestampDoc(`{"snapshot.json":{"version":1},"other.json":{"version":1}}`))
	assert.ErrorIs(t, err, ErrDecode{})

	_, err = Timestamp().FromBytes(timestampDoc(`{"snapshot.json":{"version":1},"snapshot.json":{"version":2}}`))
	assert.ErrorIs(t, err, ErrDuplicateMapKey{})
}

func TestTargetsRoundTrip(t *testing.T) {
	targets := Targets(fixedExpires)
	target, err := TargetFile().FromBytes("files/app.bin", []byte("payload"), "sha256", "sha512")
	require.NoError(t, err)
	target.Custom = map[string]json.RawMessage{"owner": json.RawMessage(`"release-eng"`)}
	targets.Signed.Targets["files/app.bin"] = target
	targets.Signed.Delegations = &Delegations{
		Keys: map[string]*Key{
			"aa01": {Type: KeyTypeEd25519, Scheme: KeySchemeEd25519, Value: KeyVal{PublicKey: "beefcafe"}},
		},
		Roles: []DelegatedRole{
			{Name: "alpha", KeyIDs: []string{"aa01"}, Threshold: 1, Terminating: true, Paths: []string{"files/*"}},
			{Name: "zeta", KeyIDs: []string{"aa01"}, Threshold: 1, Paths: []string{"other/*"}},
		},
	}

	data, err := targets.ToBytes(false)
	require.NoError(t, err)

	decoded, err := Targets().FromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, targets.Signed, decoded.Signed)

	again, err := decoded.ToBytes(false)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestEmptyDelegationsOmitted(t *testing.T) {
	targets := Targets(fixedExpires)
	targets.Signed.Delegations = &Delegations{Keys: map[string]*Key{}}

	data, err := targets.ToBytes(false)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "delegations")

	decoded, err := Targets().FromBytes(data)
	require.NoError(t, err)
	assert.Nil(t, decoded.Signed.Delegations)
}

func TestRoleTagMismatch(t *testing.T) {
	doc := rootDoc(`{}`, validRolesJSON)

	_, err := Snapshot().FromBytes(doc)
	assert.ErrorIs(t, err, ErrRoleType{})
	var roleErr ErrRoleType
	require.ErrorAs(t, err, &roleErr)
	assert.Equal(t, SNAPSHOT, roleErr.Expected)
	assert.Equal(t, ROOT, roleErr.Found)

	_, err = Timestamp().FromBytes(doc)
	assert.ErrorIs(t, err, ErrRoleType{})
	_, err = Targets().FromBytes(doc)
	assert.ErrorIs(t, err, ErrRoleType{})
	_, err = Root().FromBytes(doc)
	assert.NoError(t, err)
}

func TestUnknownSpecVersion(t *testing.T) {
	for _, version := range []string{"1.0.1", "2.0", ""} {
		doc := []byte(fmt.Sprintf(`{"signed":{"_type":"root","spec_version":%q,"consistent_snapshot":true,"version":1,"expires":"2030-08-15T14:30:45Z","keys":{},"roles":%s},"signatures":[]}`, version, validRolesJSON))
		_, err := Root().FromBytes(doc)
		assert.ErrorIs(t, err, ErrSpecVersion{}, "spec_version %q should be rejected", version)
	}

	// the pre-SemVer spelling from old roots still decodes, and the
	// declared string survives re-encoding untouched
	doc := []byte(fmt.Sprintf(`{"signed":{"_type":"root","spec_version":"1.0.0","consistent_snapshot":true,"version":1,"expires":"2030-08-15T14:30:45Z","keys":{},"roles":%s},"signatures":[]}`, validRolesJSON))
	decoded, err := Root().FromBytes(doc)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", decoded.Signed.SpecVersion)
	data, err := decoded.ToBytes(false)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"spec_version":"1.0.0"`)
}

func TestDuplicateMapKeysRejected(t *testing.T) {
	// root key pool
	_, err := Root().FromBytes(rootDoc(
		fmt.Sprintf(`{"aa01":%s,"aa01":%s}`, testKeyJSON, testKeyJSON), validRolesJSON))
	assert.ErrorIs(t, err, ErrDuplicateMapKey{})

	// all-unique key pool decodes
	_, err = Root().FromBytes(rootDoc(
		fmt.Sprintf(`{"aa01":%s,"bb02":%s}`, testKeyJSON, testKeyJSON), validRolesJSON))
	assert.NoError(t, err)

	// snapshot meta
	_, err = Snapshot().FromBytes(snapshotDoc(`{"a.json":{"version":1},"a.json":{"version":2}}`))
	assert.ErrorIs(t, err, ErrDuplicateMapKey{})

	// delegations key pool
	_, err = Targets().FromBytes(targetsDoc(`{}`,
		fmt.Sprintf(`{"keys":{"aa01":%s,"aa01":%s},"roles":[]}`, testKeyJSON, testKeyJSON)))
	assert.ErrorIs(t, err, ErrDuplicateMapKey{})
}

func TestDuplicateRoleKeyIDsRejected(t *testing.T) {
	roles := `{"root":{"keyids":["A","B","A"],"threshold":1},"snapshot":{"keyids":[],"threshold":1},"targets":{"keyids":[],"threshold":1},"timestamp":{"keyids":[],"threshold":1}}`
	_, err := Root().FromBytes(rootDoc(`{}`, roles))
	assert.ErrorIs(t, err, ErrDuplicateKeyID{})
	var dupErr ErrDuplicateKeyID
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, ROOT, dupErr.Role)
	assert.Equal(t, "A", dupErr.KeyID)

	roles = `{"root":{"keyids":["A","B"],"threshold":1},"snapshot":{"keyids":[],"threshold":1},"targets":{"keyids":[],"threshold":1},"timestamp":{"keyids":["B","A"],"threshold":2}}`
	_, err = Root().FromBytes(rootDoc(`{}`, roles))
	assert.NoError(t, err)
}

func TestMissingRoleDefinitionRejected(t *testing.T) {
	roles := `{"root":{"keyids":[],"threshold":1},"snapshot":{"keyids":[],"threshold":1},"targets":{"keyids":[],"threshold":1}}`
	_, err := Root().FromBytes(rootDoc(`{}`, roles))
	assert.ErrorIs(t, err, ErrDecode{})
	assert.ErrorContains(t, err, TIMESTAMP)
}

func TestDuplicateDelegationEntriesRejected(t *testing.T) {
	// duplicate key IDs
	_, err := Targets().FromBytes(targetsDoc(`{}`,
		`{"keys":{},"roles":[{"name":"alpha","keyids":["A","A"],"threshold":1,"terminating":false,"paths":["x/*"]}]}`))
	assert.ErrorIs(t, err, ErrDuplicateKeyID{})
	var dupKey ErrDuplicateKeyID
	require.ErrorAs(t, err, &dupKey)
	assert.Empty(t, dupKey.Role)

	// duplicate paths
	_, err = Targets().FromBytes(targetsDoc(`{}`,
		`{"keys":{},"roles":[{"name":"alpha","keyids":["A"],"threshold":1,"terminating":false,"paths":["x/*","x/*"]}]}`))
	assert.ErrorIs(t, err, ErrDuplicatePath{})

	// distinct entries decode
	_, err = Targets().FromBytes(targetsDoc(`{}`,
		`{"keys":{},"roles":[{"name":"alpha","keyids":["A","B"],"threshold":1,"terminating":false,"paths":["x/*","y/*"]}]}`))
	assert.NoError(t, err)
}

func TestDuplicateWireFieldsRejected(t *testing.T) {
	// a repeated member of a fixed wire object must be rejected, not
	// silently resolved to the later value
	roles := `{"root":{"keyids":[],"threshold":1},"root":{"keyids":[],"threshold":99},"snapshot":{"keyids":[],"threshold":1},"targets":{"keyids":[],"threshold":1},"timestamp":{"keyids":[],"threshold":1}}`
	_, err := Root().FromBytes(rootDoc(`{}`, roles))
	assert.ErrorIs(t, err, ErrDuplicateMapKey{}, "repeated roles member should be rejected")

	// repeated member inside one role definition
	roles = `{"root":{"keyids":[],"threshold":1,"threshold":2},"snapshot":{"keyids":[],"threshold":1},"targets":{"keyids":[],"threshold":1},"timestamp":{"keyids":[],"threshold":1}}`
	_, err = Root().FromBytes(rootDoc(`{}`, roles))
	assert.ErrorIs(t, err, ErrDuplicateMapKey{}, "repeated threshold should be rejected")

	// repeated member of a signed body
	doc := []byte(`{"signed":{"_type":"timestamp","spec_version":"1.0","version":1,"version":2,"expires":"2030-08-15T14:30:45Z","meta":{"snapshot.json":{"version":1}}},"signatures":[]}`)
	_, err = Timestamp().FromBytes(doc)
	assert.ErrorIs(t, err, ErrDuplicateMapKey{}, "repeated version should be rejected")

	// repeated member of the envelope itself
	signed := `{"_type":"timestamp","spec_version":"1.0","version":1,"expires":"2030-08-15T14:30:45Z","meta":{"snapshot.json":{"version":1}}}`
	doc = []byte(fmt.Sprintf(`{"signed":%s,"signed":%s,"signatures":[]}`, signed, signed))
	_, err = Timestamp().FromBytes(doc)
	assert.ErrorIs(t, err, ErrDuplicateMapKey{}, "repeated signed should be rejected")

	// repeated member of a key object
	keyJSON := `{"keytype":"ed25519","keytype":"rsa","scheme":"ed25519","keyval":{"public":"beefcafe"}}`
	_, err = Root().FromBytes(rootDoc(fmt.Sprintf(`{"aa01":%s}`, keyJSON), validRolesJSON))
	assert.ErrorIs(t, err, ErrDuplicateMapKey{}, "repeated keytype should be rejected")

	// repeated member of a delegation entry
	_, err = Targets().FromBytes(targetsDoc(`{}`,
		`{"keys":{},"roles":[{"name":"alpha","keyids":["A"],"threshold":1,"threshold":2,"terminating":false,"paths":["x/*"]}]}`))
	assert.ErrorIs(t, err, ErrDuplicateMapKey{}, "repeated delegation threshold should be rejected")

	// repeated member of a snapshot meta entry
	_, err = Snapshot().FromBytes(snapshotDoc(`{"a.json":{"version":1,"version":2}}`))
	assert.ErrorIs(t, err, ErrDuplicateMapKey{}, "repeated meta version should be rejected")

	// repeated member of a signature
	doc = []byte(fmt.Sprintf(`{"signed":%s,"signatures":[{"keyid":"aa01","sig":"beef","sig":"cafe"}]}`, signed))
	_, err = Timestamp().FromBytes(doc)
	assert.ErrorIs(t, err, ErrDuplicateMapKey{}, "repeated sig should be rejected")
}

func TestLegacyRootKeyFiltering(t *testing.T) {
	key := &Key{Type: KeyTypeEd25519, Scheme: KeySchemeEd25519, Value: KeyVal{PublicKey: "beefcafe"}}
	keyJSON, err := json.Marshal(key)
	require.NoError(t, err)

	// one entry stored under the recomputed key ID, one under a stale
	// TUF 0.9 style identifier - only the former is retained
	doc := rootDoc(fmt.Sprintf(`{%q:%s,"legacy-id":%s}`, key.ID(), keyJSON, keyJSON), validRolesJSON)
	decoded, err := Root().FromBytes(doc)
	require.NoError(t, err)
	assert.Len(t, decoded.Signed.Keys, 1)
	assert.Contains(t, decoded.Signed.Keys, key.ID())
	assert.NotContains(t, decoded.Signed.Keys, "legacy-id")
}

func TestExpiresCanonicalization(t *testing.T) {
	for _, expires := range []string{"2022-08-30T19:53:55.775Z", "2022-08-30T14:53:55.775-05:00"} {
		doc := []byte(fmt.Sprintf(`{"signed":{"_type":"timestamp","spec_version":"1.0","version":1,"expires":%q,"meta":{"snapshot.json":{"version":1}}},"signatures":[]}`, expires))
		decoded, err := Timestamp().FromBytes(doc)
		require.NoError(t, err)
		data, err := decoded.ToBytes(false)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"expires":"2022-08-30T19:53:55Z"`)
	}

	_, err := Timestamp().FromBytes(timestampDoc(`{"snapshot.json":{"version":1}}`))
	assert.NoError(t, err)

	doc := []byte(`{"signed":{"_type":"timestamp","spec_version":"1.0","version":1,"expires":"not-a-time","meta":{"snapshot.json":{"version":1}}},"signatures":[]}`)
	_, err = Timestamp().FromBytes(doc)
	assert.ErrorIs(t, err, ErrDatetime{})
}

func TestDeterministicDelegationOrdering(t *testing.T) {
	build := func(roleOrder []DelegatedRole) *Metadata[TargetsType] {
		targets := Targets(fixedExpires)
		targets.Signed.Delegations = &Delegations{
			Keys:  map[string]*Key{},
			Roles: roleOrder,
		}
		return targets
	}

	forward := build([]DelegatedRole{
		{Name: "alpha", KeyIDs: []string{"B", "A"}, Threshold: 1, Paths: []string{"b/*", "a/*"}},
		{Name: "zeta", KeyIDs: []string{"Z"}, Threshold: 1, Paths: []string{"z/*"}},
	})
	reversed := build([]DelegatedRole{
		{Name: "zeta", KeyIDs: []string{"Z"}, Threshold: 1, Paths: []string{"z/*"}},
		{Name: "alpha", KeyIDs: []string{"A", "B"}, Threshold: 1, Paths: []string{"a/*", "b/*"}},
	})

	data1, err := forward.ToBytes(false)
	require.NoError(t, err)
	data2, err := reversed.ToBytes(false)
	require.NoError(t, err)
	assert.Equal(t, data1, data2)

	// decode keeps the wire order, it does not re-sort
	decoded, err := Targets().FromBytes(data1)
	require.NoError(t, err)
	require.Len(t, decoded.Signed.Delegations.Roles, 2)
	assert.Equal(t, "alpha", decoded.Signed.Delegations.Roles[0].Name)
	assert.Equal(t, []string{"A", "B"}, decoded.Signed.Delegations.Roles[0].KeyIDs)
	assert.Equal(t, []string{"a/*", "b/*"}, decoded.Signed.Delegations.Roles[0].Paths)
}

func TestDeterministicRoleKeyIDOrdering(t *testing.T) {
	build := func(keyIDs []string) []byte {
		root := Root(fixedExpires)
		root.Signed.Roles.Root.KeyIDs = keyIDs
		data, err := root.ToBytes(false)
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, build([]string{"B", "A", "C"}), build([]string{"C", "B", "A"}))
}

func TestDuplicateSignatureKeyIDsRejected(t *testing.T) {
	doc := []byte(`{"signed":{"_type":"timestamp","spec_version":"1.0","version":1,"expires":"2030-08-15T14:30:45Z","meta":{"snapshot.json":{"version":1}}},"signatures":[{"keyid":"aa01","sig":"beef"},{"keyid":"aa01","sig":"cafe"}]}`)
	_, err := Timestamp().FromBytes(doc)
	assert.ErrorContains(t, err, "multiple signatures found for key ID aa01")
}

func TestDecodeErrorsShareClass(t *testing.T) {
	for _, err := range []error{
		ErrRoleType{Expected: ROOT, Found: TARGETS},
		ErrSpecVersion{Found: "2.0"},
		ErrDuplicateMapKey{Key: "aa"},
		ErrDuplicateKeyID{Role: ROOT, KeyID: "A"},
		ErrDuplicatePath{Path: "x/*"},
		ErrDatetime{Value: "bogus"},
		ErrMetaPath{Path: "foo"},
	} {
		assert.True(t, errors.Is(err, ErrDecode{}), "%T should match ErrDecode", err)
	}
	assert.False(t, errors.Is(ErrValue{Msg: "x"}, ErrDecode{}))
}

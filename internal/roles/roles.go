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

// Package roles knows the names of the four top level metadata roles and
// their on-disk manifest files.
package roles

import (
	"strings"
)

var topLevelRoles = map[string]struct{}{
	"root":      {},
	"timestamp": {},
	"snapshot":  {},
	"targets":   {},
}

func IsTopLevelRole(name string) bool {
	_, ok := topLevelRoles[name]
	return ok
}

func IsDelegatedTargetsRole(name string) bool {
	return !IsTopLevelRole(name)
}

func IsTopLevelManifest(name string) bool {
	return IsTopLevelRole(strings.TrimSuffix(name, ".json"))
}

func IsDelegatedTargetsManifest(name string) bool {
	return !IsTopLevelManifest(name)
}

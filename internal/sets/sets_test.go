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

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSliceToSet(t *testing.T) {
	assert.Equal(t,
		map[string]struct{}{
			"a": {},
			"b": {},
			"c": {},
		},
		StringSliceToSet([]string{"a", "c", "b", "c", "b"}))
}

func TestStringSetToSlice(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"a", "b", "c"},
		StringSetToSlice(map[string]struct{}{
			"a": {},
			"b": {},
			"c": {},
		}),
	)
}

func TestDeduplicateStrings(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"a", "b", "c"},
		DeduplicateStrings([]string{"a", "c", "b", "c", "b"}),
	)
}

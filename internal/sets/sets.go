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

// Package sets provides tiny helpers for treating string slices as sets.
package sets

func StringSliceToSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func StringSetToSlice(items map[string]struct{}) []string {
	ret := make([]string, 0, len(items))
	for k := range items {
		ret = append(ret, k)
	}
	return ret
}

func DeduplicateStrings(items []string) []string {
	return StringSetToSlice(StringSliceToSet(items))
}

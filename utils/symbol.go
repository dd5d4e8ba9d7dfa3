// elsomatic: a high-performance tool for phasing and filtering somatic variants.
// Copyright (c) 2021 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package utils

import (
	"github.com/exascience/pargo/sync"

	"github.com/exascience/elsomatic/internal"
)

type symbolKey string

func (s symbolKey) Hash() uint64 {
	return internal.StringHash(string(s))
}

// A Symbol is a unique pointer to a string. Symbols name the VCF
// header keys, filters, and INFO and FORMAT fields, so that they can be
// compared by pointer.
type Symbol *string

var symbols = sync.NewMap(0)

// Intern returns the Symbol for the given string. Equal strings always
// yield the same Symbol, and *Intern(s) == s. Intern is safe for
// concurrent use.
func Intern(s string) Symbol {
	entry, _ := symbols.LoadOrStore(symbolKey(s), Symbol(&s))
	return entry.(Symbol)
}

// Interned returns the symbols for the given strings.
func Interned(strs ...string) []Symbol {
	result := make([]Symbol, len(strs))
	for i, s := range strs {
		result[i] = Intern(s)
	}
	return result
}

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

package caller

import (
	"fmt"

	"github.com/exascience/elsomatic/intervals"
)

// ChromosomeError reports the failure of a chromosome. No variants of
// a failed chromosome are emitted.
type ChromosomeError struct {
	Chromosome string
	// the region whose evidence count failed, zero if not region specific
	Region intervals.Interval
	Err    error
}

func (e *ChromosomeError) Error() string {
	if e.Region == (intervals.Interval{}) {
		return fmt.Sprintf("chromosome %v: %v", e.Chromosome, e.Err)
	}
	return fmt.Sprintf("chromosome %v, region %v: %v", e.Chromosome, e.Region, e.Err)
}

func (e *ChromosomeError) Unwrap() error {
	return e.Err
}

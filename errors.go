// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package generations

import "errors"

var (
	// ErrOutOfRange is returned by the checked API when a key is negative or
	// not less than the capacity.
	ErrOutOfRange = errors.New("generations: key out of range")
	// ErrInvalidCapacity is returned when a negative capacity is requested.
	ErrInvalidCapacity = errors.New("generations: invalid capacity")
	// ErrAllocation is returned when an Allocator hands back a slice whose
	// length differs from the requested capacity.
	ErrAllocation = errors.New("generations: allocation failed")
)

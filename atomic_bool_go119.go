// Go MySQL Driver - A MySQL-Driver for Go's database/sql package.
//
// Copyright 2022 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.
//go:build go1.19
// +build go1.19

package mysql

import "sync/atomic"

// atomicBool wraps the standard library's atomic.Bool, added in Go 1.19.
// atomic_bool_go118.go carries the hand-rolled equivalent for older Go
// versions via the inverse build tag.
type atomicBool struct {
	_ noCopy
	v atomic.Bool
}

func (ab *atomicBool) Load() bool { return ab.v.Load() }

func (ab *atomicBool) Store(value bool) { ab.v.Store(value) }

func (ab *atomicBool) Swap(value bool) bool { return ab.v.Swap(value) }

// noCopy may be embedded into structs which must not be copied after
// first use — see golang.org/issue/8005.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

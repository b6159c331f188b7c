// Package catomic provides small lock-free counter/flag types (Int64,
// Uint32, Bool). No other package in this module imports it; icwire's
// slot counter uses sync/atomic directly. Grounded on the *usage* of the teacher's
// github.com/NVIDIA/aistore/cmn/atomic package (Int64/Bool with CAS/Add/
// Swap, as called from transport/base.go and transport/api.go) - the
// package body itself was not present in the retrieved pack, so the method
// surface here is built directly over sync/atomic rather than adapted from
// a source file.
package catomic

import "sync/atomic"

type Int64 struct{ v atomic.Int64 }

func (i *Int64) Load() int64         { return i.v.Load() }
func (i *Int64) Store(n int64)       { i.v.Store(n) }
func (i *Int64) Add(n int64) int64   { return i.v.Add(n) }
func (i *Int64) Inc() int64          { return i.v.Add(1) }
func (i *Int64) CAS(old, n int64) bool { return i.v.CompareAndSwap(old, n) }
func (i *Int64) Swap(n int64) int64  { return i.v.Swap(n) }

type Uint32 struct{ v atomic.Uint32 }

func (u *Uint32) Load() uint32       { return u.v.Load() }
func (u *Uint32) Store(n uint32)     { u.v.Store(n) }
func (u *Uint32) Add(n uint32) uint32 { return u.v.Add(n) }

type Bool struct{ v atomic.Bool }

func (b *Bool) Load() bool          { return b.v.Load() }
func (b *Bool) Store(v bool)        { b.v.Store(v) }
func (b *Bool) CAS(old, n bool) bool { return b.v.CompareAndSwap(old, n) }
func (b *Bool) Swap(v bool) bool    { return b.v.Swap(v) }

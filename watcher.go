// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2016 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// cancelRequest is handed to the long-lived watcher goroutine so it can
// race a caller's context against the in-flight blocking I/O.
type cancelRequest struct {
	ctx  context.Context
	done chan struct{}
}

// startWatcher launches the single goroutine that gives every blocking
// Send/Receive/Connect call its "asynchronous" half: the canonical code
// path is the synchronous one (blocking on net.Conn), and cancellation is
// delivered by having this goroutine force the socket closed, unblocking
// the read/write with an error. Supervised through an errgroup so Dispose
// can wait for the watcher to actually exit instead of leaking it.
func (mc *Session) startWatcher() {
	ch := make(chan cancelRequest, runtime.GOMAXPROCS(0))
	mc.chCancel = ch

	g, ctx := errgroup.WithContext(context.Background())
	mc.watcherGroup = g
	mc.watcherGroupCtx = ctx

	g.Go(func() error {
		for {
			select {
			case req, ok := <-ch:
				if !ok {
					return nil
				}
				select {
				case <-req.ctx.Done():
					mc.setCanceled(req.ctx.Err())
					mc.cleanup()
				case <-req.done:
				case <-mc.closeSignal:
					return nil
				}
			case <-mc.closeSignal:
				return nil
			}
		}
	})
}

// watchCancel registers ctx with the watcher for the duration of a single
// blocking operation. The returned channel must be closed when the
// operation completes, win or lose.
func (mc *Session) watchCancel(ctx context.Context) (chan<- struct{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if mc.chCancel == nil {
		return make(chan struct{}), nil
	}

	done := make(chan struct{})
	select {
	case mc.chCancel <- cancelRequest{ctx: ctx, done: done}:
	case <-mc.closeSignal:
		return nil, ErrInvalidConn
	}
	return done, nil
}

// stopWatcher closes the request channel and waits for the watcher
// goroutine to exit, so Dispose doesn't return while it's still running.
func (mc *Session) stopWatcher() {
	if mc.chCancel == nil {
		return
	}
	close(mc.closeSignal)
	close(mc.chCancel)
	if mc.watcherGroup != nil {
		_ = mc.watcherGroup.Wait()
	}
}

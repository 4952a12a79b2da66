/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var runs, last int64
	for i := 1; i <= 5; i++ {
		v := int64(i)
		d.Trigger(func() {
			atomic.AddInt64(&runs, 1)
			atomic.StoreInt64(&last, v)
		})
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(60 * time.Millisecond)
	if atomic.LoadInt64(&runs) != 1 {
		t.Fatalf("burst should coalesce into one run, got %d", runs)
	}
	if atomic.LoadInt64(&last) != 5 {
		t.Fatalf("superseded payload ran, last=%d", last)
	}
}

func TestDebouncerFlush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	var ran int64
	d.Trigger(func() { atomic.AddInt64(&ran, 1) })
	d.Flush()
	if atomic.LoadInt64(&ran) != 1 {
		t.Fatalf("flush did not run pending function")
	}
	d.Flush() // nothing pending; must be a no-op
	if atomic.LoadInt64(&ran) != 1 {
		t.Fatalf("flush ran stale function twice")
	}
}

func TestDebouncerStopRejectsNewTriggers(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var ran int64
	d.Trigger(func() { atomic.AddInt64(&ran, 1) })
	d.Stop()
	if atomic.LoadInt64(&ran) != 1 {
		t.Fatalf("stop must flush the pending write")
	}
	d.Trigger(func() { atomic.AddInt64(&ran, 1) })
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt64(&ran) != 1 {
		t.Fatalf("trigger after stop should be ignored")
	}
}

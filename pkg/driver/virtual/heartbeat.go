/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package virtual

import (
	"sync"
	"time"
)

// heartbeat calls fn every interval until stopped or fn returns false.
type heartbeat struct {
	stop chan struct{}
	once sync.Once
}

func startHeartbeat(interval time.Duration, fn func() bool) *heartbeat {
	h := &heartbeat{stop: make(chan struct{})}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-h.stop:
				return
			case <-t.C:
				if !fn() {
					return
				}
			}
		}
	}()

	return h
}

// Stop is safe on a nil heartbeat and may be called more than once.
func (h *heartbeat) Stop() {
	if h == nil {
		return
	}

	h.once.Do(func() { close(h.stop) })
}

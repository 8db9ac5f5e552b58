// Copyright 2023 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package av

import (
	"sync"
	"time"
)

// quota tracks the calls made within the current per-minute window and the
// current UTC day against the configured ceilings. Each client owns its own
// quota instance; clients with different API keys never share one. The mutex
// covers only the read-check-increment sequence; waiting for a window to roll
// over happens outside the lock.
type quota struct {
	perMinute int // 0 = unlimited
	perDay    int // 0 = unlimited
	now       func() time.Time

	mu          sync.Mutex
	minuteStart time.Time
	minuteCount int
	day         string // UTC calendar day, "2006-01-02"
	dayCount    int
}

func newQuota(perMinute, perDay int, now func() time.Time) *quota {
	return &quota{perMinute: perMinute, perDay: perDay, now: now}
}

// acquire reserves one call. On success both counters are incremented and the
// caller must perform the call now. When the per-minute window is full, it
// returns the duration until the window rolls over without incrementing
// anything, so a caller abandoning the wait leaves the state intact. When the
// daily ceiling is reached it fails fast with QuotaExhaustedError.
func (q *quota) acquire() (wait time.Duration, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	day := now.UTC().Format("2006-01-02")
	if day != q.day {
		q.day = day
		q.dayCount = 0
	}
	if q.perDay > 0 && q.dayCount >= q.perDay {
		return 0, &QuotaExhaustedError{Limit: q.perDay}
	}
	if q.minuteStart.IsZero() || now.Sub(q.minuteStart) >= time.Minute {
		q.minuteStart = now
		q.minuteCount = 0
	}
	if q.perMinute > 0 && q.minuteCount >= q.perMinute {
		return q.minuteStart.Add(time.Minute).Sub(now), nil
	}
	q.minuteCount++
	q.dayCount++
	return 0, nil
}

//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueueBlocksAtBound(t *testing.T) {
	q := NewQueue(1)
	now := time.Now()
	ok := q.Enqueue(context.Background(), Entry{ReleaseAt: now})
	require.True(t, ok)

	enqueued := make(chan bool, 1)
	go func() {
		enqueued <- q.Enqueue(context.Background(), Entry{ReleaseAt: now})
	}()

	select {
	case <-enqueued:
		t.Fatal("second enqueue should have blocked at bound 1")
	case <-time.After(50 * time.Millisecond):
	}

	_, ok = q.Dequeue(context.Background())
	require.True(t, ok)

	select {
	case ok := <-enqueued:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("second enqueue never unblocked after dequeue freed room")
	}
}

func TestQueue_DequeueReturnsFalseWhenClosedAndDrained(t *testing.T) {
	q := NewQueue(4)
	q.Close()
	_, ok := q.Dequeue(context.Background())
	assert.False(t, ok)
}

func TestQueue_CloseStillDeliversPendingEntries(t *testing.T) {
	q := NewQueue(4)
	require.True(t, q.Enqueue(context.Background(), Entry{ReleaseAt: time.Now()}))
	q.Close()

	_, ok := q.Dequeue(context.Background())
	assert.True(t, ok)
	_, ok = q.Dequeue(context.Background())
	assert.False(t, ok)
}

func TestQueue_DequeueRespectsContextCancellation(t *testing.T) {
	q := NewQueue(4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok := q.Dequeue(ctx)
	assert.False(t, ok)
}

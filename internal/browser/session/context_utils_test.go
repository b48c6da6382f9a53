// internal/browser/session/context_utils_test.go
package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestCombineContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	type ctxKey string
	const key ctxKey = "target"

	t.Run("inherits values from the primary", func(t *testing.T) {
		ctx1 := context.WithValue(context.Background(), key, "tab-1")
		combined, cancel := CombineContext(ctx1, context.Background())
		defer cancel()

		assert.Equal(t, "tab-1", combined.Value(key))
		assert.NoError(t, combined.Err())
	})

	t.Run("ignores values from the secondary", func(t *testing.T) {
		ctx2 := context.WithValue(context.Background(), key, "op")
		combined, cancel := CombineContext(context.Background(), ctx2)
		defer cancel()

		assert.Nil(t, combined.Value(key))
	})

	t.Run("cancelled by the primary", func(t *testing.T) {
		ctx1, cancel1 := context.WithCancel(context.Background())
		combined, cancel := CombineContext(ctx1, context.Background())
		defer cancel()

		cancel1()
		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("cancelled by the secondary deadline", func(t *testing.T) {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel2()
		combined, cancel := CombineContext(context.Background(), ctx2)
		defer cancel()

		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context was not cancelled by the secondary deadline")
		}
	})

	t.Run("cancel func releases the link", func(t *testing.T) {
		ctx2, cancel2 := context.WithCancel(context.Background())
		defer cancel2()
		combined, cancel := CombineContext(context.Background(), ctx2)
		cancel()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})
}

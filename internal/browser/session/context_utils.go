// internal/browser/session/context_utils.go
package session

import (
	"context"
)

// CombineContext derives a context from ctx1 that is also cancelled when ctx2
// is done. Values come from ctx1 only, which matters for chromedp: ctx1 holds
// the browser target and ctx2 holds the operation's deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(ctx1)
	stop := context.AfterFunc(ctx2, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

// File: internal/browser/errors.go
package browser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/casepilot/internal/locator"
)

// ErrLocatorTimeout is matched by every *LocatorTimeoutError via errors.Is.
var ErrLocatorTimeout = errors.New("timed out waiting for element")

// LocatorTimeoutError reports that no candidate located an element within the
// bounded wait.
type LocatorTimeoutError struct {
	Locators []locator.Locator
	Timeout  time.Duration
	// Purpose names what was being looked for, e.g. "password field". Optional.
	Purpose string
}

func (e *LocatorTimeoutError) Error() string {
	parts := make([]string, len(e.Locators))
	for i, l := range e.Locators {
		parts[i] = l.String()
	}
	what := "element"
	if e.Purpose != "" {
		what = e.Purpose
	}
	return fmt.Sprintf("timeout waiting for %s using %s after %s", what, strings.Join(parts, ", "), e.Timeout)
}

func (e *LocatorTimeoutError) Is(target error) bool { return target == ErrLocatorTimeout }

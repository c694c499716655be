package stream

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies the reconnect loop in Updater.Run and the
// goroutines its tests spawn to feed fake subscriptions leave nothing
// running after the suite completes.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

package hist

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies the polling loop in Updater.Run leaves no
// goroutines running after the suite completes.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

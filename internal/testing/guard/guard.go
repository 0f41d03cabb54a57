// Package guard puts test binaries into test mode. Import it for side effects
// from tests that load configuration or start runtime components.
package guard

import (
	"os"
	"sync"
)

// TestAPIKey is the sync API key installed for tests that call LoadConfig.
const TestAPIKey = "test-sync-key"

var once sync.Once

func init() {
	once.Do(func() {
		setDefault("SAPSYNC_TEST_MODE", "1")
		setDefault("SYNC_API_KEY", TestAPIKey)
		setDefault("SAP_API_BASE_URL", "http://127.0.0.1:0")
	})
}

func setDefault(key, value string) {
	if os.Getenv(key) == "" {
		_ = os.Setenv(key, value)
	}
}

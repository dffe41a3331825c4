package tests

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/decksmithhq/decksmith/tests/common"
)

// TestMain builds the decksmith:test image and starts it in a container
// unless DECKSMITH_TEST_URL points at a running server.
func TestMain(m *testing.M) {
	env, err := common.StartPortalForTestMain()
	if err != nil {
		fmt.Fprintf(os.Stderr, "test environment: %v\n", err)
		os.Exit(1)
	}
	if env != nil {
		os.Setenv("DECKSMITH_TEST_URL", env.URL())
	}

	runner := common.NewTestRunner("ui")

	code := m.Run()

	if env != nil {
		env.CollectLogs(filepath.Join(common.GetResultsDir(), "logs"))
		env.Cleanup()
	}
	runner.Finalize()

	os.Exit(code)
}

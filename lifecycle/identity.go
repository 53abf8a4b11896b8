package lifecycle

import (
	"os"
	"path/filepath"
	"strings"
)

// bundled reports whether the running executable looks like an installed
// binary. `go run` places its scratch binary under the OS temp dir, which
// is the closest analogue of running from source.
func bundled() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}

	tmp := filepath.Clean(os.TempDir()) + string(os.PathSeparator)

	return !strings.HasPrefix(filepath.Clean(exe), tmp)
}

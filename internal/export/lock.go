package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"autocaption/internal/services"
)

// LockName is the lock file LockDir creates inside the output directory.
const LockName = ".autocaption.lock"

// LockDir takes an exclusive lock on dir so two runs cannot write the same
// output. The returned function releases it.
func LockDir(dir string) (func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "export", "lock", dir, err)
	}
	path := filepath.Join(dir, LockName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "export", "lock", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "export", "lock", fmt.Sprintf("output directory %s is in use by another run", dir), nil)
	}
	return lock.Unlock, nil
}

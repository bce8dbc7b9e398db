package embed

import (
	"os"
	"sync"

	"ykcfg/common"
)

// scratch tracks every temporary path created by this package that has not
// been removed yet so that an interrupted build can clean up after itself.
var scratch = struct {
	m     sync.Mutex
	paths map[string]struct{}
}{paths: make(map[string]struct{})}

// createScratch creates an empty temporary file whose name ends in suffix and
// registers it.
func createScratch(suffix string) (string, error) {
	f, err := os.CreateTemp("", common.ScratchPrefix+"*"+suffix)
	if err != nil {
		return "", err
	}

	path := f.Name()
	registerScratch(path)

	if err := f.Close(); err != nil {
		removeScratch(path)
		return "", err
	}

	return path, nil
}

func registerScratch(path string) {
	scratch.m.Lock()
	scratch.paths[path] = struct{}{}
	scratch.m.Unlock()
}

// removeScratch deletes a registered path.  A path that no longer exists is
// not an error.
func removeScratch(path string) error {
	scratch.m.Lock()
	delete(scratch.paths, path)
	scratch.m.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// RemoveScratch deletes every temporary file and every unreleased object
// created by this package.  It is meant to be called from an interrupt
// handler.
func RemoveScratch() {
	scratch.m.Lock()
	paths := scratch.paths
	scratch.paths = make(map[string]struct{})
	scratch.m.Unlock()

	for path := range paths {
		os.Remove(path)
	}
}

package fsstore

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// writeAtomic replaces the file at path with data. A reader that opens the
// path afterwards sees either the complete prior content or the complete new
// content, never a mix: data is first written to a sibling temp file, then
// renamed onto the target under an exclusive advisory lock. Rename is the
// atomicity boundary (a single syscall on POSIX filesystems).
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	lockPath := path + ".lock"
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		os.Remove(tmpName)
		return err
	}
	renameErr := os.Rename(tmpName, path)
	unlockErr := lock.Unlock()
	// best-effort lock artifact cleanup
	os.Remove(lockPath)

	if renameErr != nil {
		os.Remove(tmpName)
		return renameErr
	}
	return unlockErr
}

// readLocked reads the file at path under a shared advisory lock, so readers
// may proceed together but never race a writer's rename. A missing file
// yields (nil, nil); I/O failures propagate.
func readLocked(path string) ([]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	lockPath := path + ".lock"
	lock := flock.New(lockPath)
	if err := lock.RLock(); err != nil {
		return nil, err
	}
	data, readErr := os.ReadFile(path)
	unlockErr := lock.Unlock()
	os.Remove(lockPath)

	if readErr != nil {
		// The file can vanish between the stat and the lock only if an
		// external actor deletes it; treat that as missing too.
		if os.IsNotExist(readErr) {
			return nil, nil
		}
		return nil, readErr
	}
	return data, unlockErr
}

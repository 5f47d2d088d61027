package settings

import (
	"os"

	"github.com/spf13/afero"
)

// writeFileAtomic writes data to a temporary file next to name and renames
// it into place, so a reader never sees a half-written file.
func writeFileAtomic(fs afero.Fs, name string, data []byte) error {
	tmp := name + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		_ = fs.Remove(tmp)
		return NewIOError(tmp, "failed to write temporary file", err)
	}
	if err := fs.Rename(tmp, name); err != nil {
		_ = fs.Remove(tmp)
		return NewIOError(name, "failed to replace file", err)
	}
	return nil
}

// readFileIfExists returns (nil, false, nil) when name does not exist.
func readFileIfExists(fs afero.Fs, name string) ([]byte, bool, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, true, NewIOError(name, "failed to read file", err)
	}
	return data, true, nil
}

// removeIfExists removes name, treating a missing file as success.
func removeIfExists(fs afero.Fs, name string) error {
	if err := fs.Remove(name); err != nil && !os.IsNotExist(err) {
		return NewIOError(name, "failed to remove file", err)
	}
	return nil
}

package store

import (
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// readFile reads the file at name. A missing file surfaces as os.ErrNotExist.
func readFile(fs billy.Filesystem, name string) ([]byte, error) {
	return util.ReadFile(fs, name)
}

// writeFile writes bytes via a temp file, then atomically replaces the target.
func writeFile(fs billy.Filesystem, name string, b []byte) error {
	f, err := fs.TempFile(path.Dir(name), path.Base(name)+".tmp-")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// Best-effort cleanup if anything fails before rename.
	renamed := false
	defer func() {
		if !renamed {
			_ = fs.Remove(tmp)
		}
	}()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if ch, ok := fs.(billy.Change); ok {
		_ = ch.Chmod(tmp, blobMode)
	}
	if err := fs.Rename(tmp, name); err != nil {
		return err
	}
	renamed = true
	return nil
}

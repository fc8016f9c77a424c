package storage

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type Local struct {
	root    string
	baseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve upload dir")
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %s", abs)
	}
	return &Local{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) Disk() string { return DiskLocal }

func (l *Local) Root() string { return l.root }

func (l *Local) Store(r io.Reader, dir, filename, _ string) (string, error) {
	rel, err := cleanRelative(path.Join(dir, filename))
	if err != nil {
		return "", err
	}
	full, err := l.resolve(rel)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create directory")
	}

	dst, err := os.Create(full)
	if err != nil {
		return "", errors.Wrap(err, "failed to create file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		_ = os.Remove(full)
		return "", errors.Wrap(err, "failed to save file")
	}

	return rel, nil
}

func (l *Local) URL(p string) string {
	rel, err := cleanRelative(p)
	if err != nil {
		return ""
	}
	return l.baseURL + "/" + rel
}

func (l *Local) Exists(p string) bool {
	full, err := l.resolvePath(p)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (l *Local) Open(p string) (io.ReadCloser, error) {
	full, err := l.resolvePath(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}
	return f, nil
}

func (l *Local) Delete(p string) error {
	full, err := l.resolvePath(p)
	if err != nil {
		return err
	}

	if real, err := filepath.EvalSymlinks(full); err == nil {
		full = real
	}
	if !l.within(full) {
		return errors.New("file path outside uploads directory")
	}

	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return errors.Wrap(err, "failed to delete file")
	}
	return nil
}

func (l *Local) resolvePath(p string) (string, error) {
	rel, err := cleanRelative(p)
	if err != nil {
		return "", err
	}
	return l.resolve(rel)
}

func (l *Local) resolve(rel string) (string, error) {
	full := filepath.Join(l.root, filepath.FromSlash(rel))
	if !l.within(full) {
		return "", errors.New("file path outside uploads directory")
	}
	return full, nil
}

func (l *Local) within(full string) bool {
	return full == l.root || strings.HasPrefix(full, l.root+string(filepath.Separator))
}

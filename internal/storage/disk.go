package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type DiskProvider struct {
	dir     string
	baseURL string
}

// NewDiskProvider stores files under dir and serves them from baseURL + "/files/".
func NewDiskProvider(dir, baseURL string) (*DiskProvider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskProvider{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (p *DiskProvider) Dir() string { return p.dir }

func (p *DiskProvider) Save(ctx context.Context, up Upload) (string, error) {
	name, err := StoredName(up.Filename)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(filepath.Join(p.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, up.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return name, nil
}

func (p *DiskProvider) Delete(ctx context.Context, name string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	err := os.Remove(filepath.Join(p.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (p *DiskProvider) URL(name string) string {
	return p.baseURL + "/files/" + name
}

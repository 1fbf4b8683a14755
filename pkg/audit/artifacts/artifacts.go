// Package artifacts stores rendered report files on disk, one
// directory per contract.
package artifacts

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func NewStore(baseDir string) *Store {
	return &Store{
		baseDir: baseDir,
		now:     time.Now,
	}
}

// Save writes one rendered artifact and returns its path:
// {base}/{contractID}/report-{timestamp}.{ext}.
func (s Store) Save(contractID uint, format models.ReportFormat, content []byte) (string, error) {
	dir := s.contractDir(contractID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "can't create artifacts dir for contract %d", contractID)
	}

	name := fmt.Sprintf("report-%d.%s", s.now().UnixNano(), format.Ext())
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, content, 0644); err != nil {
		return "", errors.Wrapf(err, "can't write artifact %s", path)
	}
	return path, nil
}

func (s Store) Read(path string) ([]byte, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read artifact %s", path)
	}
	return data, nil
}

// DeleteAll removes every stored artifact of the contract.
func (s Store) DeleteAll(contractID uint) error {
	dir := s.contractDir(contractID)
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, "can't delete artifacts of contract %d", contractID)
	}
	return nil
}

func (s Store) contractDir(contractID uint) string {
	return filepath.Join(s.baseDir, fmt.Sprint(contractID))
}

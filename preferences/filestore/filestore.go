// Package filestore persists preferences as a YAML document on local disk.
package filestore

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/ailab-client/preferences"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const filePerm = 0o600

var _ preferences.Repo = (*Repo)(nil)

// Repo stores every key in a single file. Writes go to a temp file in the
// same directory which is then renamed over the original, so a crash never
// leaves a half written document behind.
type Repo struct {
	path string
	lock sync.Mutex
}

type document struct {
	Version int               `yaml:"version"`
	Values  map[string]string `yaml:"values"`
}

func New(path string) *Repo {
	return &Repo{path: path}
}

// Path returns the backing file location.
func (r *Repo) Path() string {
	return r.path
}

func (r *Repo) Load(_ context.Context) (map[preferences.Key]string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.read()
}

func (r *Repo) Put(_ context.Context, values map[preferences.Key]string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	current, err := r.read()
	if err != nil {
		return err
	}
	maps.Copy(current, values)
	return r.write(current)
}

func (r *Repo) Delete(_ context.Context, keys ...preferences.Key) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	current, err := r.read()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(current, k)
	}
	return r.write(current)
}

func (r *Repo) Replace(_ context.Context, values map[preferences.Key]string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.write(values)
}

func (r *Repo) read() (map[preferences.Key]string, error) {
	values := make(map[preferences.Key]string)

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[filestore] read")
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "[filestore] decode")
	}
	for k, v := range doc.Values {
		values[preferences.Key(k)] = v
	}
	return values, nil
}

func (r *Repo) write(values map[preferences.Key]string) error {
	doc := document{Version: 1, Values: make(map[string]string, len(values))}
	for k, v := range values {
		doc.Values[string(k)] = v
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return errors.Wrap(err, "[filestore] encode")
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "[filestore] mkdir")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*")
	if err != nil {
		return errors.Wrap(err, "[filestore] create temp")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filestore] write")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filestore] sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[filestore] close")
	}
	if err := os.Chmod(tmp.Name(), filePerm); err != nil {
		return errors.Wrap(err, "[filestore] chmod")
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return errors.Wrap(err, "[filestore] rename")
	}
	return nil
}

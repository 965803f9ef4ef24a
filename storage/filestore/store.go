// Package filestore keeps session and policy records as one JSON file per
// account. Session files may be encrypted at rest.
package filestore

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/vuquang23/steamauto/storage"
)

const (
	sessionsDir = "sessions"
	policiesDir = "policies"
)

// sealedMagic prefixes encrypted records.
var sealedMagic = []byte("steamauto-sealed-v1:")

var (
	ErrSealed    = errors.New("record is encrypted and no key is configured")
	ErrBadKey    = errors.New("encryption key must be 32 bytes, base64 encoded")
	ErrCorrupted = errors.New("record cannot be decrypted")
)

type Store struct {
	dir  string
	aead cipher.AEAD
}

type Option func(*Store) error

// WithKey encrypts session records with XChaCha20-Poly1305.
func WithKey(key []byte) Option {
	return func(s *Store) error {
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return ErrBadKey
		}
		s.aead = aead
		return nil
	}
}

// ParseKey decodes a base64 key as written in the config file.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrBadKey
	}
	return key, nil
}

func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{dir: dir}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	for _, sub := range []string{sessionsDir, policiesDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return nil, fmt.Errorf("create %s: %w", sub, err)
		}
	}
	return s, nil
}

func (s *Store) Sessions() *SessionStore {
	return &SessionStore{s}
}

func (s *Store) Policies() *PolicyStore {
	return &PolicyStore{s}
}

func (s *Store) path(sub, account string) (string, error) {
	if err := storage.ValidateAccount(account); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, sub, account+".json"), nil
}

func (s *Store) read(sub, account string, out interface{}) error {
	path, err := s.path(sub, account)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	if bytes.HasPrefix(data, sealedMagic) {
		data, err = s.open(account, data[len(sealedMagic):])
		if err != nil {
			return err
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (s *Store) write(sub, account string, v interface{}, seal bool) error {
	path, err := s.path(sub, account)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if seal && s.aead != nil {
		data, err = s.seal(account, data)
		if err != nil {
			return err
		}
	}
	return writeFileAtomic(path, data, 0o600)
}

func (s *Store) seal(account string, plain []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	sealed := s.aead.Seal(nonce, nonce, plain, []byte(account))
	out := make([]byte, len(sealedMagic)+base64.StdEncoding.EncodedLen(len(sealed)))
	copy(out, sealedMagic)
	base64.StdEncoding.Encode(out[len(sealedMagic):], sealed)
	return out, nil
}

func (s *Store) open(account string, encoded []byte) ([]byte, error) {
	if s.aead == nil {
		return nil, ErrSealed
	}
	sealed := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(sealed, encoded)
	if err != nil {
		return nil, ErrCorrupted
	}
	sealed = sealed[:n]
	if len(sealed) < s.aead.NonceSize() {
		return nil, ErrCorrupted
	}
	nonce, box := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, box, []byte(account))
	if err != nil {
		return nil, ErrCorrupted
	}
	return plain, nil
}

// writeFileAtomic replaces path so readers see the old or the new record,
// never a partial one.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

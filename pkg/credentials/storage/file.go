package storage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"

	"github.com/octocode/octocred/pkg/credentials/types"
	"github.com/octocode/octocred/pkg/secrets"
)

const (
	credentialsFileName = "credentials.json"
	keyFileName         = ".key"

	dirMode  = 0700
	fileMode = 0600
)

// FileStore persists credentials in an AES-256-GCM encrypted file. The
// encryption key lives beside it in an owner-only key file and is generated
// on first write. A missing or undecryptable file reads as an empty store so
// resolution can proceed to the next source.
//
// Mutations are whole-file read-modify-write cycles serialized in-process by
// a mutex; cross-process writers are last-writer-wins.
type FileStore struct {
	dir    string
	logger zerolog.Logger

	mu sync.Mutex
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithDir overrides the credential directory (default ~/.octocode).
func WithDir(dir string) FileOption {
	return func(f *FileStore) {
		if dir != "" {
			f.dir = dir
		}
	}
}

// WithFileLogger sets the logger for masked corruption warnings.
func WithFileLogger(logger zerolog.Logger) FileOption {
	return func(f *FileStore) {
		f.logger = logger
	}
}

// NewFileStore creates an encrypted file store rooted at ~/.octocode.
// No I/O happens until the first read or write.
func NewFileStore(opts ...FileOption) *FileStore {
	f := &FileStore{
		dir:    filepath.Join(xdg.Home, ".octocode"),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Dir returns the credential directory path.
func (f *FileStore) Dir() string {
	return f.dir
}

// EnsureDir creates the credential directory with owner-only permissions.
func (f *FileStore) EnsureDir() error {
	if err := os.MkdirAll(f.dir, dirMode); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	return nil
}

// Read decrypts and returns the credential store. A missing file yields an
// empty store; a corrupt or undecryptable file logs a masked warning and
// also yields an empty store so callers can fall through to the next source.
func (f *FileStore) Read() *types.CredentialsStore {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked()
}

func (f *FileStore) readLocked() *types.CredentialsStore {
	data, err := os.ReadFile(f.credentialsPath())
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn().Msg(secrets.Maskf("failed to read credentials file: %v", err))
		}
		return types.NewCredentialsStore()
	}

	key, err := f.loadKey()
	if err != nil {
		f.logger.Warn().Msg(secrets.Maskf("failed to load encryption key: %v", err))
		return types.NewCredentialsStore()
	}

	plaintext, err := decrypt(key, strings.TrimSpace(string(data)))
	if err != nil {
		f.logger.Warn().Msg(secrets.Maskf("failed to decrypt credentials file: %v", err))
		return types.NewCredentialsStore()
	}

	var store types.CredentialsStore
	if err := json.Unmarshal(plaintext, &store); err != nil {
		f.logger.Warn().Msg(secrets.Maskf("malformed credentials file: %v", err))
		return types.NewCredentialsStore()
	}
	if store.Credentials == nil {
		store.Credentials = make(map[string]types.StoredCredentials)
	}
	return &store
}

// Write encrypts and persists the whole store atomically. An empty store
// deletes the credentials file and its key file instead.
func (f *FileStore) Write(store *types.CredentialsStore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeLocked(store)
}

func (f *FileStore) writeLocked(store *types.CredentialsStore) error {
	if store == nil || len(store.Credentials) == 0 {
		return f.removeLocked()
	}

	if err := f.EnsureDir(); err != nil {
		return err
	}

	plaintext, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	key, err := f.loadOrCreateKey()
	if err != nil {
		return err
	}

	envelope, err := encrypt(key, plaintext)
	if err != nil {
		return secrets.MaskError(err)
	}

	// Temp file + rename so a crash mid-write cannot corrupt the store.
	tmp, err := os.CreateTemp(f.dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp credentials file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(envelope); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		return fmt.Errorf("failed to set credentials file permissions: %w", err)
	}
	if err := os.Rename(tmpName, f.credentialsPath()); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

// Get returns the credentials stored for hostname, or nil.
func (f *FileStore) Get(hostname string) *types.StoredCredentials {
	store := f.Read()
	if creds, ok := store.Credentials[hostname]; ok {
		return &creds
	}
	return nil
}

// Set stores credentials for their hostname, replacing any existing entry.
func (f *FileStore) Set(creds types.StoredCredentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	store := f.readLocked()
	store.Credentials[creds.Hostname] = creds
	return f.writeLocked(store)
}

// Delete removes the entry for hostname. Reports whether an entry existed.
// Deleting the last entry removes the credentials file and its key.
func (f *FileStore) Delete(hostname string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	store := f.readLocked()
	if _, ok := store.Credentials[hostname]; !ok {
		return false, nil
	}
	delete(store.Credentials, hostname)
	if err := f.writeLocked(store); err != nil {
		return false, err
	}
	return true, nil
}

// Hosts lists the hostnames with file-stored credentials.
func (f *FileStore) Hosts() []string {
	store := f.Read()
	hosts := make([]string, 0, len(store.Credentials))
	for hostname := range store.Credentials {
		hosts = append(hosts, hostname)
	}
	return hosts
}

// Touch updates UpdatedAt on an entry if it exists, used after refresh
// rotation.
func (f *FileStore) Touch(hostname string, token types.OAuthToken, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	store := f.readLocked()
	creds, ok := store.Credentials[hostname]
	if !ok {
		return fmt.Errorf("no stored credentials for %s", hostname)
	}
	creds.Token = token
	creds.UpdatedAt = now
	store.Credentials[hostname] = creds
	return f.writeLocked(store)
}

func (f *FileStore) removeLocked() error {
	for _, path := range []string{f.credentialsPath(), f.keyPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func (f *FileStore) credentialsPath() string {
	return filepath.Join(f.dir, credentialsFileName)
}

func (f *FileStore) keyPath() string {
	return filepath.Join(f.dir, keyFileName)
}

func (f *FileStore) loadKey() ([]byte, error) {
	data, err := os.ReadFile(f.keyPath())
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil || len(key) != keySize {
		return nil, fmt.Errorf("malformed key file")
	}
	return key, nil
}

func (f *FileStore) loadOrCreateKey() ([]byte, error) {
	key, err := f.loadKey()
	if err == nil {
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load encryption key: %w", err)
	}

	key, err = generateKey()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(f.keyPath(), []byte(hex.EncodeToString(key)), fileMode); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return key, nil
}

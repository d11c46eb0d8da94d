// Package secrets stores the image host API key in the OS keychain, with a
// 0600 JSON file for systems that have none.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	DefaultService = "playdeck"
	keyImageAPIKey = "image-api-key"
)

// ErrNotFound is returned when no key has been stored.
var ErrNotFound = keyring.ErrNotFound

// Store wraps the OS keychain with an optional file fallback. The last value
// read or written is cached, so APIKey is cheap enough to call per request.
type Store struct {
	service      string
	fallbackPath string

	mu     sync.Mutex
	cached *string
}

// New creates a store. An empty service uses DefaultService; an empty
// fallbackPath disables the file fallback.
func New(service, fallbackPath string) *Store {
	if strings.TrimSpace(service) == "" {
		service = DefaultService
	}
	return &Store{service: service, fallbackPath: fallbackPath}
}

func (s *Store) SetImageAPIKey(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("secrets: empty key")
	}
	if err := s.set(keyImageAPIKey, value); err != nil {
		return err
	}
	s.remember(&value)
	return nil
}

// ImageAPIKey returns the stored key or ErrNotFound.
func (s *Store) ImageAPIKey() (string, error) {
	s.mu.Lock()
	if s.cached != nil {
		v := *s.cached
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	v, err := s.get(keyImageAPIKey)
	if err != nil {
		return "", err
	}
	s.remember(&v)
	return v, nil
}

// DeleteImageAPIKey removes the key from the keychain and the fallback file.
func (s *Store) DeleteImageAPIKey() error {
	s.remember(nil)
	var errs []error
	if err := keyring.Delete(s.service, keyImageAPIKey); err != nil &&
		!errors.Is(err, keyring.ErrNotFound) && !isKeyringUnavailable(err) {
		errs = append(errs, fmt.Errorf("secrets: keyring delete: %w", err))
	}
	if err := s.deleteFallback(keyImageAPIKey); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// APIKey returns the key or "" when none is stored; suitable for
// gallery.HTTPConfig.APIKey.
func (s *Store) APIKey() string {
	v, err := s.ImageAPIKey()
	if err != nil {
		return ""
	}
	return v
}

// HasImageAPIKey reports whether a key is stored.
func (s *Store) HasImageAPIKey() bool { return s.APIKey() != "" }

func (s *Store) remember(v *string) {
	s.mu.Lock()
	s.cached = v
	s.mu.Unlock()
}

func (s *Store) set(name, value string) error {
	err := keyring.Set(s.service, name, value)
	if err == nil {
		return nil
	}
	if !isKeyringUnavailable(err) {
		return fmt.Errorf("secrets: keyring set %s: %w", name, err)
	}
	return s.setFallback(name, value)
}

func (s *Store) get(name string) (string, error) {
	val, err := keyring.Get(s.service, name)
	if err == nil {
		return val, nil
	}
	if !isKeyringUnavailable(err) && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("secrets: keyring get %s: %w", name, err)
	}

	fallback, ferr := s.getFallback(name)
	if ferr == nil {
		return fallback, nil
	}
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(ferr, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return "", ferr
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

func (s *Store) setFallback(name, value string) error {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return fmt.Errorf("secrets: keyring unavailable and no fallback path configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return err
	}
	data[name] = value
	return s.writeFallbackUnlocked(data)
}

func (s *Store) getFallback(name string) (string, error) {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return "", keyring.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return "", err
	}
	val, ok := data[name]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return val, nil
}

func (s *Store) deleteFallback(name string) error {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return err
	}
	if _, ok := data[name]; !ok {
		return nil
	}
	delete(data, name)
	return s.writeFallbackUnlocked(data)
}

func (s *Store) readFallbackUnlocked() (map[string]string, error) {
	out := map[string]string{}
	raw, err := os.ReadFile(s.fallbackPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("secrets: read fallback: %w", err)
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("secrets: decode fallback: %w", err)
	}
	return out, nil
}

func (s *Store) writeFallbackUnlocked(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.fallbackPath), 0o700); err != nil {
		return fmt.Errorf("secrets: mkdir fallback dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("secrets: encode fallback: %w", err)
	}
	if err := os.WriteFile(s.fallbackPath, raw, 0o600); err != nil {
		return fmt.Errorf("secrets: write fallback: %w", err)
	}
	return nil
}

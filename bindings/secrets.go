package bindings

import (
	"errors"
	"strings"

	"github.com/MJE43/playdeck/internal/secrets"
)

// SecretsModule exposes the image host key to the settings screen. The key
// itself never goes back to the frontend, only a masked form.
type SecretsModule struct {
	store *secrets.Store
}

func NewSecretsModule(store *secrets.Store) *SecretsModule {
	return &SecretsModule{store: store}
}

type KeyStatus struct {
	Set    bool   `json:"set"`
	Masked string `json:"masked,omitempty"`
}

func (m *SecretsModule) SetImageAPIKey(value string) (KeyStatus, error) {
	if err := m.store.SetImageAPIKey(value); err != nil {
		return KeyStatus{}, err
	}
	return m.ImageAPIKeyStatus()
}

func (m *SecretsModule) ImageAPIKeyStatus() (KeyStatus, error) {
	v, err := m.store.ImageAPIKey()
	if errors.Is(err, secrets.ErrNotFound) {
		return KeyStatus{}, nil
	}
	if err != nil {
		return KeyStatus{}, err
	}
	return KeyStatus{Set: true, Masked: mask(v)}, nil
}

func (m *SecretsModule) DeleteImageAPIKey() error {
	return m.store.DeleteImageAPIKey()
}

func mask(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("•", len(v))
	}
	return strings.Repeat("•", len(v)-4) + v[len(v)-4:]
}

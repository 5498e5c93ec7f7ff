package repositories

import "github.com/desertthunder/multistream/internal/models"

var _ models.TokenStore = (*TokenRepository)(nil)

// TokenRepository implements [models.TokenStore] under [TokenKey].
type TokenRepository struct {
	kv *KVRepository
}

// NewTokenRepository creates a new TokenRepository backed by kv
func NewTokenRepository(kv *KVRepository) *TokenRepository {
	return &TokenRepository{kv: kv}
}

func (r *TokenRepository) Token() (string, error) {
	token, _, err := r.kv.Get(TokenKey)
	return token, err
}

func (r *TokenRepository) SetToken(token string) error {
	return r.kv.Set(TokenKey, token)
}

func (r *TokenRepository) ClearToken() error {
	return r.kv.Delete(TokenKey)
}

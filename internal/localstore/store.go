// Package localstore はブラウザのlocalStorage相当の永続KVストア。
// TTLも追い出しも無く、上書きか削除するまで値は残る。
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// セッション状態で使うキー
const (
	KeyCartItems         = "cartItems"
	KeyUser              = "user"
	KeyGenrePreferences  = "genrePreferences"
	KeyPreviousPurchases = "previousPurchases"
)

// 文字列キーのKVストア
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// クライアントIDでキーを名前空間化したストア
type scoped struct {
	inner  Store
	prefix string
}

// Scopedは "<clientID>:<key>" で読み書きするStoreを返す
func Scoped(inner Store, clientID string) Store {
	return &scoped{inner: inner, prefix: clientID + ":"}
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// GetJSONはJSONで保存された値をdstに読み込む。無ければfalse。
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("localstore: decode %q: %w", key, err)
	}
	return true, nil
}

// SetJSONは値をJSONにして保存する
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("localstore: encode %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

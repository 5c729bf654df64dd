package storage

import (
	"context"
	"crypto/cipher"
	"crypto/subtle"
	"fmt"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/cryptox"
)

const sealVerifierKey = "seal_verifier"

// Sealed is a Store decorator that encrypts every value with AES-GCM under a
// key derived from a passphrase. The salt and a key verifier live unencrypted
// in the wrapped store.
type Sealed struct {
	inner    Store
	aead     cipher.AEAD
	salt     []byte
	verifier []byte
}

// NewSealed derives the key for passphrase, creating salt and verifier on
// first use. A passphrase that does not match the stored verifier yields
// common.ErrUnauthorized.
func NewSealed(ctx context.Context, inner Store, passphrase []byte) (*Sealed, error) {
	salt, err := inner.Get(ctx, common.SealSaltKey)
	if err != nil {
		return nil, err
	}
	fresh := salt == nil
	if fresh {
		salt = common.GenerateRandByteArray(cryptox.SaltSize)
	}

	key := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(key)
	verifier := cryptox.MakeVerifier(key)

	if fresh {
		if err := inner.Set(ctx, common.SealSaltKey, salt); err != nil {
			return nil, err
		}
		if err := inner.Set(ctx, sealVerifierKey, verifier); err != nil {
			return nil, err
		}
	} else {
		saved, err := inner.Get(ctx, sealVerifierKey)
		if err != nil {
			return nil, err
		}
		if subtle.ConstantTimeCompare(saved, verifier) == 0 {
			return nil, fmt.Errorf("wrong passphrase: %w", common.ErrUnauthorized)
		}
	}

	aead, err := cryptox.NewAEAD(key)
	if err != nil {
		return nil, err
	}
	return &Sealed{inner: inner, aead: aead, salt: salt, verifier: verifier}, nil
}

func (s *Sealed) seal(key string, plain []byte) ([]byte, error) {
	out, err := cryptox.Seal(s.aead, plain)
	if err != nil {
		return nil, &common.StorageError{Op: "seal", Key: key, Err: err}
	}
	return out, nil
}

func (s *Sealed) open(key string, sealed []byte) ([]byte, error) {
	if sealed == nil {
		return nil, nil
	}
	out, err := cryptox.Open(s.aead, sealed)
	if err != nil {
		return nil, &common.StorageError{Op: "open", Key: key, Err: err}
	}
	return out, nil
}

func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.open(key, v)
}

func (s *Sealed) Set(ctx context.Context, key string, value []byte) error {
	v, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, v)
}

func (s *Sealed) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *Sealed) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	raw, err := s.inner.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(raw))
	for k, v := range raw {
		if k == common.SealSaltKey || k == sealVerifierKey {
			continue
		}
		plain, err := s.open(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = plain
	}
	return out, nil
}

// Clear wipes the data but keeps the salt and verifier, so the current
// passphrase stays valid.
func (s *Sealed) Clear(ctx context.Context) error {
	if err := s.inner.Clear(ctx); err != nil {
		return err
	}
	if err := s.inner.Set(ctx, common.SealSaltKey, s.salt); err != nil {
		return err
	}
	return s.inner.Set(ctx, sealVerifierKey, s.verifier)
}

func (s *Sealed) Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	return s.inner.Update(ctx, key, func(old []byte) ([]byte, error) {
		plain, err := s.open(key, old)
		if err != nil {
			return nil, err
		}
		next, err := fn(plain)
		if err != nil || next == nil {
			return next, err
		}
		return s.seal(key, next)
	})
}

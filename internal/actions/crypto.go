package actions

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"reflect"

	"github.com/google/uuid"

	"github.com/forgewalk/forge/pkg/forge"
)

// CryptoActions returns the crypto builtin set: hashing, HMAC signing,
// and UUID generation.
func CryptoActions() []NamedAction {
	return []NamedAction{
		&cryptoHashAction{},
		&cryptoHMACAction{},
		&cryptoUUIDAction{},
	}
}

func hashFunc(algorithm string) (func() hash.Hash, error) {
	switch algorithm {
	case "sha256":
		return sha256.New, nil
	case "sha512":
		return sha512.New, nil
	case "sha384":
		return sha512.New384, nil
	case "md5":
		return md5.New, nil
	case "sha1":
		return sha1.New, nil
	default:
		return nil, forge.NewErrorf(forge.ErrCodeValidation, "unsupported hash algorithm: %s", algorithm)
	}
}

// --- crypto.hash ---

type cryptoHashAction struct {
	forge.BaseAction
}

func (a *cryptoHashAction) Name() string           { return "crypto.hash" }
func (a *cryptoHashAction) InputType() reflect.Type { return nil }

func (a *cryptoHashAction) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	params := asMap(ctx.Input)
	data := stringParam(params, "data", "")
	algorithm := stringParam(params, "algorithm", "sha256")

	newHash, err := hashFunc(algorithm)
	if err != nil {
		return nil, err
	}
	h := newHash()
	h.Write([]byte(data))
	sum := hex.EncodeToString(h.Sum(nil))

	return forge.ActionResponse{"hash": sum, "algorithm": algorithm}, nil
}

// --- crypto.hmac ---

type cryptoHMACAction struct {
	forge.BaseAction
}

func (a *cryptoHMACAction) Name() string           { return "crypto.hmac" }
func (a *cryptoHMACAction) InputType() reflect.Type { return nil }

func (a *cryptoHMACAction) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	params := asMap(ctx.Input)
	data := stringParam(params, "data", "")
	key := stringParam(params, "key", "")
	algorithm := stringParam(params, "algorithm", "sha256")

	newHash, err := hashFunc(algorithm)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(newHash, []byte(key))
	mac.Write([]byte(data))
	sum := hex.EncodeToString(mac.Sum(nil))

	return forge.ActionResponse{"hmac": sum, "algorithm": algorithm}, nil
}

// --- crypto.uuid ---

type cryptoUUIDAction struct {
	forge.BaseAction
}

func (a *cryptoUUIDAction) Name() string           { return "crypto.uuid" }
func (a *cryptoUUIDAction) InputType() reflect.Type { return nil }

func (a *cryptoUUIDAction) RunAction(_ forge.ActionContext) (forge.ActionResponse, error) {
	return forge.ActionResponse{"uuid": uuid.New().String()}, nil
}

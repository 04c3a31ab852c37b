package secrets

import (
	"context"

	"github.com/forgewalk/forge/pkg/forge"
)

// VaultExecutor exposes an AESVault as a forge.ExternalExecutor under
// the "vault|" prefix: "vault|db_password" resolves to the decrypted
// secret string stored under key "db_password".
type VaultExecutor struct {
	Vault *AESVault
}

func (e *VaultExecutor) Execute(ctx context.Context, payload string) (any, error) {
	plaintext, err := e.Vault.Resolve(ctx, payload)
	if err != nil {
		return nil, err
	}
	return string(plaintext), nil
}

var _ forge.ExternalExecutor = (*VaultExecutor)(nil)

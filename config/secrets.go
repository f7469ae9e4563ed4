package config

import (
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/xerrors"
)

// Environment variables holding key material. Keys never live in the config file.
const (
	EnvGuardianKeys = "TESTNET_GUARDIAN_PRIVATE_KEY"
	EnvWalletKey    = "TESTNET_WALLET_PRIVATE_KEY"
)

type guardianSecrets struct {
	// hex secp256k1 keys, comma separated
	Keys []string `envconfig:"TESTNET_GUARDIAN_PRIVATE_KEY" required:"true"`
}

type walletSecrets struct {
	// base64 sui keystore entry
	Key string `envconfig:"TESTNET_WALLET_PRIVATE_KEY" required:"true"`
}

// GuardianKeys reads the guardian signing keys from the environment.
func GuardianKeys() ([]string, error) {
	var s guardianSecrets
	if err := envconfig.Process("", &s); err != nil {
		return nil, xerrors.Errorf("%s: %v: %w", EnvGuardianKeys, err, ErrConfiguration)
	}
	keys := make([]string, 0, len(s.Keys))
	for _, k := range s.Keys {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, xerrors.Errorf("%s is empty: %w", EnvGuardianKeys, ErrConfiguration)
	}
	return keys, nil
}

// WalletKey reads the key of the account paying for transactions from the environment.
func WalletKey() (string, error) {
	var s walletSecrets
	if err := envconfig.Process("", &s); err != nil {
		return "", xerrors.Errorf("%s: %v: %w", EnvWalletKey, err, ErrConfiguration)
	}
	if s.Key == "" {
		return "", xerrors.Errorf("%s is empty: %w", EnvWalletKey, ErrConfiguration)
	}
	return s.Key, nil
}

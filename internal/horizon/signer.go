package horizon

import (
	"context"
	"fmt"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

// KeySigner signs envelopes with a locally-held secret seed. It stands in
// for an external wallet when the service runs unattended.
type KeySigner struct {
	kp *keypair.Full
}

func NewKeySigner(seed string) (*KeySigner, error) {
	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return nil, fmt.Errorf("parse signing seed: %w", err)
	}
	return &KeySigner{kp: kp}, nil
}

// Address returns the public key of the signing account.
func (s *KeySigner) Address() string { return s.kp.Address() }

func (s *KeySigner) Sign(_ context.Context, envelope, networkPassphrase string) (string, error) {
	generic, err := txnbuild.TransactionFromXDR(envelope)
	if err != nil {
		return "", fmt.Errorf("parse envelope: %w", err)
	}
	tx, ok := generic.Transaction()
	if !ok {
		return "", fmt.Errorf("envelope is not a simple transaction")
	}
	signed, err := tx.Sign(networkPassphrase, s.kp)
	if err != nil {
		return "", fmt.Errorf("sign envelope: %w", err)
	}
	return signed.Base64()
}

package beacon

import (
	"errors"
	"fmt"

	"github.com/prysmaticlabs/prysm/v5/crypto/bls"
)

// ErrInvalidSignature is returned when an aggregate signature does not verify.
var ErrInvalidSignature = errors.New("sync committee signature verification failed")

// FastAggregateVerify checks a BLS aggregate signature of the given public
// keys over a single message.
func FastAggregateVerify(pubkeys [][]byte, message [32]byte, signature []byte) error {
	if len(pubkeys) == 0 {
		return errors.New("no participating public keys")
	}

	keys := make([]bls.PublicKey, len(pubkeys))
	for i, bz := range pubkeys {
		pk, err := bls.PublicKeyFromBytes(bz)
		if err != nil {
			return fmt.Errorf("public key %d: %w", i, err)
		}
		keys[i] = pk
	}

	sig, err := bls.SignatureFromBytes(signature)
	if err != nil {
		return fmt.Errorf("signature: %w", err)
	}

	if !sig.FastAggregateVerify(keys, message) {
		return ErrInvalidSignature
	}

	return nil
}

// Package identity derives the caller address of an HTTP request from a
// secp256k1 signature over its body.
//
// The header format is compatible with Flashbots signed requests:
//
//	X-Flashbots-Signature: <0x address>:<0x 65-byte signature>
//
// where the signature is an EIP-191 personal signature of the hex-encoded
// keccak256 hash of the request body.
package identity

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/weighted-membership-registry/interfaces"
)

// SignatureHeader carries the request signature.
const SignatureHeader = "X-Flashbots-Signature"

var (
	ErrMissingSignature = errors.New("missing request signature")
	ErrInvalidSignature = errors.New("invalid request signature")
)

// Signer signs request bodies with a secp256k1 key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address interfaces.Address
}

func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{
		key:     key,
		address: interfaces.Address(crypto.PubkeyToAddress(key.PublicKey)),
	}
}

// NewSignerFromHex loads a hex-encoded private key, with or without 0x prefix.
func NewSignerFromHex(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewSigner(key), nil
}

// NewRandomSigner generates a fresh key.
func NewRandomSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewSigner(key), nil
}

// Address returns the address callers signed by this signer are identified as.
func (s *Signer) Address() interfaces.Address {
	return s.address
}

// PrivateKeyHex returns the 0x-prefixed private key.
func (s *Signer) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(s.key))
}

// Sign returns the header value for body.
func (s *Signer) Sign(body []byte) (string, error) {
	sig, err := crypto.Sign(messageHash(body), s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign body: %w", err)
	}
	return common.Address(s.address).Hex() + ":" + hexutil.Encode(sig), nil
}

// SignRequest sets the signature header of req for body.
func (s *Signer) SignRequest(req *http.Request, body []byte) error {
	header, err := s.Sign(body)
	if err != nil {
		return err
	}
	req.Header.Set(SignatureHeader, header)
	return nil
}

// Verify checks a header value against body and returns the signing address.
func Verify(header string, body []byte) (interfaces.Address, error) {
	if header == "" {
		return interfaces.Address{}, ErrMissingSignature
	}

	claimedHex, sigHex, found := strings.Cut(header, ":")
	if !found || !common.IsHexAddress(claimedHex) {
		return interfaces.Address{}, fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	sig, err := hexutil.Decode(sigHex)
	if err != nil || len(sig) != crypto.SignatureLength {
		return interfaces.Address{}, fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
	}
	// accept both 0/1 and 27/28 recovery ids
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(messageHash(body), sig)
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if recovered != common.HexToAddress(claimedHex) {
		return interfaces.Address{}, fmt.Errorf("%w: signer does not match %s", ErrInvalidSignature, claimedHex)
	}

	return interfaces.Address(recovered), nil
}

// CallerFromRequest verifies the signature header of r against body, which
// the caller must already have read from r.
func CallerFromRequest(r *http.Request, body []byte) (interfaces.Address, error) {
	return Verify(r.Header.Get(SignatureHeader), body)
}

func messageHash(body []byte) []byte {
	return accounts.TextHash([]byte(crypto.Keccak256Hash(body).Hex()))
}

// Package evm binds the signing boundary to an EVM key using go-ethereum.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// IsValidAddress reports whether s is a well-formed 0x-prefixed EVM address.
func IsValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// PrivateKeySigner signs EIP-712 typed data with an in-memory secp256k1 key.
// Intended for server-side owners and tests; browser and custodial wallets
// implement the same interface elsewhere.
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewPrivateKeySigner parses a hex-encoded private key (0x prefix optional).
func NewPrivateKeySigner(hexKey string) (*PrivateKeySigner, error) {
	if len(hexKey) >= 2 && hexKey[:2] == "0x" {
		hexKey = hexKey[2:]
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &PrivateKeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}, nil
}

// Address returns the checksummed address of the signing key.
func (s *PrivateKeySigner) Address(ctx context.Context) (string, error) {
	return s.address, nil
}

// SignTypedData hashes the typed data per EIP-712 and signs the digest.
// The EIP712Domain type entry is derived from the domain fields, so callers
// pass types without a self-declaration, matching wallet signer behavior.
func (s *PrivateKeySigner) SignTypedData(ctx context.Context, typedData apitypes.TypedData) (string, error) {
	if typedData.Types == nil {
		typedData.Types = make(apitypes.Types)
	}
	if _, exists := typedData.Types["EIP712Domain"]; !exists {
		typedData.Types["EIP712Domain"] = domainType(typedData.Domain)
	}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return "", fmt.Errorf("failed to hash typed data: %w", err)
	}

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign typed data: %w", err)
	}

	// Wallets return v as 27/28; crypto.Sign yields 0/1.
	if sig[64] < 27 {
		sig[64] += 27
	}

	return hexutil.Encode(sig), nil
}

// domainType builds the EIP712Domain field list from the populated domain
// fields, in canonical order.
func domainType(domain apitypes.TypedDataDomain) []apitypes.Type {
	var fields []apitypes.Type
	if domain.Name != "" {
		fields = append(fields, apitypes.Type{Name: "name", Type: "string"})
	}
	if domain.Version != "" {
		fields = append(fields, apitypes.Type{Name: "version", Type: "string"})
	}
	if domain.ChainId != nil {
		fields = append(fields, apitypes.Type{Name: "chainId", Type: "uint256"})
	}
	if domain.VerifyingContract != "" {
		fields = append(fields, apitypes.Type{Name: "verifyingContract", Type: "address"})
	}
	if domain.Salt != "" {
		fields = append(fields, apitypes.Type{Name: "salt", Type: "bytes32"})
	}
	return fields
}

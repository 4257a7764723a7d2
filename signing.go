package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer is the external signing boundary. The orchestrator never holds key
// material; it asks for an address and typed-data signatures on demand.
// Production binds this to a wallet provider or evm.PrivateKeySigner; tests
// bind a scripted fake.
type Signer interface {
	Address(ctx context.Context) (string, error)
	SignTypedData(ctx context.Context, typedData apitypes.TypedData) (string, error)
}

// ParseWithdrawAuthorization decodes the JSON typed-data descriptor returned
// by the withdraw endpoint into a signable form. The descriptor declares its
// own EIP712Domain type; signers infer that from the domain and reject a
// redundant declaration, so it is stripped here.
func ParseWithdrawAuthorization(raw string) (apitypes.TypedData, error) {
	var typedData apitypes.TypedData
	if err := json.Unmarshal([]byte(raw), &typedData); err != nil {
		return apitypes.TypedData{}, fmt.Errorf("failed to decode withdraw authorization: %w", err)
	}

	delete(typedData.Types, "EIP712Domain")

	if typedData.PrimaryType == "" {
		typedData.PrimaryType = inferPrimaryType(typedData.Types)
	}
	if typedData.PrimaryType == "" {
		return apitypes.TypedData{}, fmt.Errorf("withdraw authorization has no primary type")
	}

	return typedData, nil
}

// inferPrimaryType finds the one type no other type references. Returns ""
// when the structure is ambiguous.
func inferPrimaryType(types apitypes.Types) string {
	referenced := make(map[string]bool)
	for _, fields := range types {
		for _, field := range fields {
			referenced[field.Type] = true
		}
	}

	var primary string
	for name := range types {
		if referenced[name] {
			continue
		}
		if primary != "" {
			return ""
		}
		primary = name
	}
	return primary
}

package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"okinoko-higher_lower/sdk"
)

// maxIDLen bounds session ids and player addresses stored in state.
const maxIDLen = 64

// ---------- JSON Conversions ----------

func ToJSON[T any](v T, objectType string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", objectType, err)
	}
	return string(b), nil
}

// ---------- Validation ----------

func validateSessionID(id string) error {
	if id == "" || len(id) > maxIDLen {
		return fmt.Errorf("%w: session id must be 1..%d bytes", ErrInvalidInput, maxIDLen)
	}
	if strings.ContainsAny(id, "|\x00") {
		return fmt.Errorf("%w: session id contains a reserved character", ErrInvalidInput)
	}
	return nil
}

func validateAddress(a sdk.Address) error {
	if a == "" || len(a) > maxIDLen {
		return fmt.Errorf("%w: address must be 1..%d bytes", ErrInvalidInput, maxIDLen)
	}
	return nil
}

// ---------- Transfer Intent Helpers ----------

// TransferAllow is a parsed "transfer.allow" intent.
type TransferAllow struct {
	Limit sdk.Amount
	Token sdk.Asset
}

// GetFirstTransferAllow returns the first transfer.allow intent, nil if the
// caller attached none.
func GetFirstTransferAllow(intents []sdk.Intent) (*TransferAllow, error) {
	for _, intent := range intents {
		if intent.Type != "transfer.allow" {
			continue
		}
		limit, err := sdk.ParseAmount(intent.Args["limit"])
		if err != nil {
			return nil, fmt.Errorf("%w: intent limit: %v", ErrInvalidInput, err)
		}
		return &TransferAllow{
			Limit: limit,
			Token: sdk.Asset(strings.ToLower(intent.Args["token"])),
		}, nil
	}
	return nil, nil
}

package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"coinvault/internal/errors"
)

// decodeArgs round-trips the request arguments through JSON into a
// typed payload struct. Malformed arguments come back as an
// INVALID_REQUEST the handler can pass straight to errorResult.
func decodeArgs[T any](req mcp.CallToolRequest) (T, error) {
	var payload T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return payload, errors.NewInvalidRequest(fmt.Sprintf("unreadable arguments: %v", err))
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, errors.NewInvalidRequest(fmt.Sprintf("arguments do not match the tool schema: %v", err))
	}
	return payload, nil
}

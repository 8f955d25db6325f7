package shortener

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseCreateBody validates a create request body of the form {"url": "..."}.
// The URL itself is stored as given.
func ParseCreateBody(body []byte) (string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("%w: body must be a JSON object", ErrBadRequest)
	}

	field, ok := raw["url"]
	if !ok {
		return "", fmt.Errorf("%w: url is required", ErrBadRequest)
	}

	var url string
	if err := json.Unmarshal(field, &url); err != nil {
		return "", fmt.Errorf("%w: url must be a string", ErrBadRequest)
	}

	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("%w: url must not be empty", ErrBadRequest)
	}

	return url, nil
}

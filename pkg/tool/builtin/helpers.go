// Package toolbuiltin contains the closed tool set the architect loop may
// dispatch: file read/write, directory listing, and shell-backed build,
// test, and emulator commands. Every filesystem path is resolved through
// the workspace guard, absolute paths included.
package toolbuiltin

import (
	"errors"
	"fmt"
	"strings"
)

func coerceString(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("got %T", raw)
	}
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	if params == nil {
		return "", errors.New("params is nil")
	}
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	value, err := coerceString(raw)
	if err != nil {
		return "", fmt.Errorf("%s must be string: %w", key, err)
	}
	return value, nil
}

func requiredPath(params map[string]interface{}) (string, error) {
	value, err := stringParam(params, "path")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return "", errors.New("path cannot be empty")
	}
	return strings.TrimSpace(value), nil
}

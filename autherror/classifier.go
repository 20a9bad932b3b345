// Package autherror decides whether a failure means the caller's credential
// is no longer valid (authentication) as opposed to merely insufficient
// (authorization).
package autherror

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// CodeJWTInvalid is the backend's error code for an expired or invalid JWT.
const CodeJWTInvalid = "PGRST301"

var authMessageFragments = []string{
	"jwt expired",
	"invalid jwt",
	"refresh_token_not_found",
	"not authenticated",
}

type statusCoder interface {
	StatusCode() int
}

type errorCoder interface {
	ErrorCode() string
}

// IsAuthenticationError reports whether v describes an authentication failure.
//
// v may be an error (inspected through its wrap chain), a decoded JSON record
// (map[string]any or map[string]string with "status", "code" and "message"
// keys) or any value implementing StatusCode() int / ErrorCode() string.
// Status, code and message are checked independently. Anything else is false.
// A 403 status is an authorization failure and does not count on its own.
func IsAuthenticationError(v any) bool {
	switch rec := v.(type) {
	case nil:
		return false
	case error:
		return isAuthError(rec)
	case map[string]any:
		return isAuthRecord(rec)
	case map[string]string:
		generic := make(map[string]any, len(rec))
		for k, val := range rec {
			generic[k] = val
		}
		if status, ok := rec["status"]; ok {
			generic["status"] = json.Number(status)
		}
		return isAuthRecord(generic)
	}

	if sc, ok := v.(statusCoder); ok && sc.StatusCode() == http.StatusUnauthorized {
		return true
	}
	if ec, ok := v.(errorCoder); ok && ec.ErrorCode() == CodeJWTInvalid {
		return true
	}
	return false
}

func isAuthError(err error) bool {
	if errors.Is(err, jwt.ErrTokenExpired) ||
		errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return true
	}

	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() == http.StatusUnauthorized {
		return true
	}
	var ec errorCoder
	if errors.As(err, &ec) && ec.ErrorCode() == CodeJWTInvalid {
		return true
	}
	return hasAuthMessage(err.Error())
}

func isAuthRecord(rec map[string]any) bool {
	if status, ok := numeric(rec["status"]); ok && status == http.StatusUnauthorized {
		return true
	}
	if code, ok := rec["code"].(string); ok && code == CodeJWTInvalid {
		return true
	}
	if msg, ok := rec["message"].(string); ok {
		return hasAuthMessage(msg)
	}
	return false
}

func hasAuthMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, fragment := range authMessageFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// numeric accepts the number types a JSON decoder or a literal might produce.
func numeric(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

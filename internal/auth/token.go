// Package auth mints and checks bearer tokens for recognition sources
// connecting over the websocket ingest endpoint.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenFormat = errors.New("invalid token format")
	ErrTokenSig    = errors.New("invalid token signature")
	ErrTokenExp    = errors.New("token expired")
	ErrTokenSource = errors.New("source id mismatch")
)

// GenerateSourceToken builds a token for a named recognition source.
// Format: base64url(source_id + "." + exp_unix + "." + hex(hmac_sha256(secret, source_id+"."+exp)))
func GenerateSourceToken(secret, sourceID string, expUnix int64) string {
	msg := sourceID + "." + strconv.FormatInt(expUnix, 10)
	raw := msg + "." + sign(secret, msg)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ValidateSourceToken checks signature, source binding and expiry (with
// skewSeconds of tolerance past exp). Returns the embedded source id.
func ValidateSourceToken(secret, token, expectSourceID string, now time.Time, skewSeconds int) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrTokenFormat
	}
	parts := strings.Split(string(b), ".")
	if len(parts) != 3 {
		return "", ErrTokenFormat
	}
	sid, expStr, sigHex := parts[0], parts[1], parts[2]

	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", ErrTokenFormat
	}
	if expectSourceID != "" && sid != expectSourceID {
		return "", ErrTokenSource
	}

	got, err := hex.DecodeString(sigHex)
	if err != nil {
		return "", ErrTokenFormat
	}
	want := rawSign(secret, sid+"."+expStr)
	if !hmac.Equal(want, got) {
		return "", ErrTokenSig
	}

	if now.Unix() > exp+int64(skewSeconds) {
		return "", ErrTokenExp
	}
	return sid, nil
}

func sign(secret, msg string) string {
	return hex.EncodeToString(rawSign(secret, msg))
}

func rawSign(secret, msg string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}

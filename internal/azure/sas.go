// Package azure holds the Azure Relay pieces used by the hybrid connection
// transport: SAS and Entra ID token sources and hybrid connection
// provisioning.
package azure

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SASPrefix starts every Shared Access Signature token
const SASPrefix = "SharedAccessSignature "

// GenerateSASToken signs uri with the given shared access key.
// The token is valid until now+expiry.
func GenerateSASToken(uri, keyName, key string, expiry time.Duration) (string, error) {
	return generateSASToken(uri, keyName, key, time.Now().Add(expiry))
}

func generateSASToken(uri, keyName, key string, expiresAt time.Time) (string, error) {
	if keyName == "" {
		return "", errors.New("azure: key name is required")
	}
	uri = strings.TrimSuffix(uri, "/")
	expiry := expiresAt.Unix()

	decodedKey, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", fmt.Errorf("azure: decode key: %w", err)
	}

	// string to sign: <escaped uri>\n<expiry>
	h := hmac.New(sha256.New, decodedKey)
	h.Write([]byte(fmt.Sprintf("%s\n%d", url.QueryEscape(uri), expiry)))
	signature := base64.StdEncoding.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%ssr=%s&sig=%s&se=%d&skn=%s",
		SASPrefix,
		url.QueryEscape(uri),
		url.QueryEscape(signature),
		expiry,
		url.QueryEscape(keyName),
	), nil
}

// HybridConnectionURI returns the resource URI a hybrid connection token is scoped to
func HybridConnectionURI(namespace, hybridConnection string) string {
	return fmt.Sprintf("https://%s/%s", NamespaceHost(namespace), hybridConnection)
}

// NamespaceHost expands a bare namespace name to its service bus host
func NamespaceHost(namespace string) string {
	if strings.Contains(namespace, ".") {
		return namespace
	}
	return namespace + ".servicebus.windows.net"
}

// IsSASToken reports whether token is a Shared Access Signature
func IsSASToken(token string) bool {
	return strings.HasPrefix(token, SASPrefix)
}

// SASExpiry extracts the se (expiry) field of a SAS token
func SASExpiry(token string) (time.Time, error) {
	if !IsSASToken(token) {
		return time.Time{}, errors.New("azure: not a SAS token")
	}
	values, err := url.ParseQuery(strings.TrimPrefix(token, SASPrefix))
	if err != nil {
		return time.Time{}, fmt.Errorf("azure: parse SAS token: %w", err)
	}
	var se int64
	if _, err := fmt.Sscanf(values.Get("se"), "%d", &se); err != nil {
		return time.Time{}, fmt.Errorf("azure: parse SAS expiry: %w", err)
	}
	return time.Unix(se, 0), nil
}

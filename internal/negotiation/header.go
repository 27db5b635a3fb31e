// Package negotiation checks the storefront client's API version against the
// version this proxy serves. Clients announce themselves with an RFC 8941
// dictionary header:
//
//	Storefront-Client: version="1.2.0", name="shop-frontend"
//
// The header is optional. When present, the client's major version must match
// the server's and the client must not be newer than the server.
package negotiation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

// ClientHeader carries the client's declared API version.
const ClientHeader = "Storefront-Client"

// VersionHeader is set on every response with the server's API version.
const VersionHeader = "Cart-API-Version"

// ClientInfo is the parsed ClientHeader.
type ClientInfo struct {
	Version string
	Name    string // Optional, for logging
}

// ParseClientHeader extracts version and name from a Storefront-Client header.
//
// Examples:
//   - version="1.2.0"                → {1.2.0, ""}
//   - version="1.2.0", name="kiosk"  → {1.2.0, kiosk}
//   - version="1.2.0";beta           → {1.2.0, ""} (params ignored)
func ParseClientHeader(header string) (ClientInfo, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ClientInfo{}, errors.New("empty Storefront-Client header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return ClientInfo{}, fmt.Errorf("invalid Storefront-Client header: %w", err)
	}

	version, err := stringMember(dict, "version")
	if err != nil {
		return ClientInfo{}, err
	}
	if version == "" {
		return ClientInfo{}, errors.New("version key not found in Storefront-Client header")
	}

	name, err := stringMember(dict, "name")
	if err != nil {
		return ClientInfo{}, err
	}
	return ClientInfo{Version: version, Name: name}, nil
}

// stringMember returns the string value of key, "" when absent.
func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", nil
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}
	s, ok := item.Value.(string)
	if !ok {
		return "", fmt.Errorf("%s value must be a string", key)
	}
	return s, nil
}

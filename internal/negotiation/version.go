package negotiation

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ServerVersion is the cart API version served by this proxy.
const ServerVersion = "1.3.0"

// Error codes returned in the error envelope.
const (
	ClientHeaderInvalid      = "client_header_invalid"
	ClientVersionUnsupported = "client_version_unsupported"
)

// VersionError reports an incompatible client version.
type VersionError struct {
	Code    string
	Message string
}

func (e *VersionError) Error() string {
	return e.Message
}

// canonical adds the "v" prefix x/mod/semver expects.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// CheckCompatible returns a *VersionError unless client has the same major
// version as server and is not newer than it.
func CheckCompatible(server, client string) error {
	s, c := canonical(server), canonical(client)
	if !semver.IsValid(c) {
		return &VersionError{
			Code:    ClientHeaderInvalid,
			Message: fmt.Sprintf("client version %q is not a semantic version", client),
		}
	}
	if semver.Major(c) != semver.Major(s) {
		return &VersionError{
			Code:    ClientVersionUnsupported,
			Message: fmt.Sprintf("client API %s is incompatible with server API %s", semver.Major(c), semver.Major(s)),
		}
	}
	if semver.Compare(c, s) > 0 {
		return &VersionError{
			Code:    ClientVersionUnsupported,
			Message: fmt.Sprintf("client version %s is newer than server version %s", client, server),
		}
	}
	return nil
}

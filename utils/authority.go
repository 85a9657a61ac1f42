package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Authority is the authority component of a gateway URI. In a URI like
// azure://reports/2024/q1.pdf the authority names a storage container (or
// bucket), not a network host, so unlike a general RFC 3986 authority it
// carries no userinfo and no port.
type Authority struct {
	name string
}

// Name returns the container name.
func (a Authority) Name() string {
	return a.name
}

func (a Authority) String() string {
	return a.name
}

// containerNameRE covers the intersection of Azure container and S3 bucket
// naming: lowercase alphanumerics with interior hyphens or dots.
var containerNameRE = regexp.MustCompile(`^[a-z0-9]([a-z0-9.-]*[a-z0-9])?$`)

// NewAuthority parses the authority component of a gateway URI and validates
// it as a container name.
func NewAuthority(authority string) (Authority, error) {
	if authority == "" {
		return Authority{}, errors.New("authority string may not be empty")
	}
	if strings.Contains(authority, "@") {
		return Authority{}, fmt.Errorf("authority %q names a container, not a host: userinfo is not allowed", authority)
	}
	if strings.Contains(authority, ":") {
		return Authority{}, fmt.Errorf("authority %q names a container, not a host: port is not allowed", authority)
	}
	if !containerNameRE.MatchString(authority) {
		return Authority{}, fmt.Errorf("invalid container name %q", authority)
	}
	return Authority{name: authority}, nil
}

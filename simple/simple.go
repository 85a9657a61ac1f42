package simple

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/backend"
	"github.com/drivegate/drivegate/utils"
)

var (
	ErrMissingAuthority = errors.New("unable to determine uri authority (container) for scheme")
	ErrMissingScheme    = errors.New("unable to determine uri scheme")
	ErrRegGwNotFound    = errors.New("no matching registered gateway found")
	ErrBlankURI         = errors.New("uri is blank")
)

// Ref is a fully resolved item reference: the gateway to talk to, the
// container (or drive) within it, and the item path.
type Ref struct {
	Gateway   drivegate.Gateway
	Container string
	Path      string
}

// ParseURI resolves a uri like "azure://container/path/to/file.txt" against
// the registered gateways. Any registered gateway name is supported, though
// most require prior configuration. See the backend docs for specific
// requirements of each.
func ParseURI(uri string) (Ref, error) {
	gw, container, path, err := parseSupportedURI(uri)
	if err != nil {
		return Ref{}, fmt.Errorf("unable to resolve gateway for uri %q: %w", uri, err)
	}

	return Ref{
		Gateway:   gw,
		Container: container,
		Path:      utils.RemoveLeadingSlash(path),
	}, nil
}

// parseURI attempts to parse a URI and validate that it returns required results
func parseURI(uri string) (scheme, authority, path string, err error) {
	// return early if blank uri
	if uri == "" {
		err = ErrBlankURI
		return
	}

	// parse URI
	var u *url.URL
	u, err = url.Parse(uri)
	if err != nil {
		err = fmt.Errorf("unknown url.Parse error: %w", err)
		return
	}

	// validate scheme
	scheme = u.Scheme
	if u.Scheme == "" {
		err = ErrMissingScheme
		return
	}

	// the authority is the container or bucket; every gateway needs one
	if u.Host == "" {
		return "", "", "", ErrMissingAuthority
	}
	// url.Parse splits userinfo off the host; stitch it back so the
	// container validation sees the full authority component.
	host := u.Host
	if u.User != nil {
		host = u.User.String() + "@" + host
	}
	auth, err := utils.NewAuthority(host)
	if err != nil {
		err = fmt.Errorf("invalid uri authority: %w", err)
		return
	}

	authority = auth.Name()
	path = u.Path
	return
}

// parseSupportedURI checks if URI matches any registered gateway name as
// prefix, capturing the longest (most specific) match found. For instance,
// given registered gateways named:
//
//	's3'                    - registered for all buckets
//	's3://somebucket/'      - registered with credentials specific to the bucket
//	's3://somebucket/path/' - registered with credentials specific to the path
//
// a URI of 's3://somebucket/path/a.txt' resolves to the path-level gateway,
// 's3://somebucket/other.txt' to the bucket-level one, and 's3://other/x.txt'
// to the scheme-level one.
func parseSupportedURI(uri string) (drivegate.Gateway, string, string, error) {
	_, authority, path, err := parseURI(uri)
	if err != nil {
		return nil, "", "", err
	}

	var longest string
	backends := backend.RegisteredBackends()
	for _, backendName := range backends {
		if strings.HasPrefix(uri, backendName) {
			// The first match always becomes the longest
			if longest == "" {
				longest = backendName
				continue
			}

			// we found a longer (more specific) gateway prefix matching URI
			if len(backendName) > len(longest) {
				longest = backendName
			}
		}
	}

	if longest == "" {
		err = ErrRegGwNotFound
	}

	return backend.Backend(longest), authority, path, err
}

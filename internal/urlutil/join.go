package urlutil

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// JoinPath appends path segments to a base URL without doubling or losing
// slashes. The base must be absolute; the gateway config validation
// guarantees that for the one caller this package has.
func JoinPath(base string, paths ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base URL %q is not absolute", base)
	}

	segments := append([]string{u.Path}, paths...)
	joined := path.Join(segments...)

	// path.Join strips a trailing slash, which matters to some upstreams
	if len(paths) > 0 && strings.HasSuffix(paths[len(paths)-1], "/") {
		joined += "/"
	}
	u.Path = joined

	return u.String(), nil
}

// MustJoinPath is JoinPath for URLs known good at compile time
func MustJoinPath(base string, paths ...string) string {
	result, err := JoinPath(base, paths...)
	if err != nil {
		panic(err)
	}
	return result
}

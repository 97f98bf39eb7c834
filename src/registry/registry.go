// Package registry resolves registry hosts and credentials for image
// references and checks references before they reach the daemon.
package registry

import (
	"os"
	"strings"

	dockerregistry "github.com/docker/docker/api/types/registry"
)

// DefaultHost is the registry used for references without a host part.
const DefaultHost = "docker.io"

// Host returns the registry host of repo. The first path component is a host
// when it contains a "." or ":" or is "localhost"; otherwise the image lives
// on Docker Hub.
func Host(repo string) string {
	host, _ := split(repo)
	return host
}

// Path returns repo without its registry host.
func Path(repo string) string {
	_, path := split(repo)
	return path
}

func split(repo string) (host, path string) {
	i := strings.IndexByte(repo, '/')
	if i < 0 {
		return DefaultHost, repo
	}
	first := repo[:i]
	if strings.ContainsAny(first, ".:") || first == "localhost" {
		return first, repo[i+1:]
	}
	return DefaultHost, repo
}

// Credentials reads <PREFIX>_USER and <PREFIX>_PASS from the environment.
// Returns empty strings if no prefix is set or the vars are unset.
func Credentials(prefix string) (user, pass string) {
	if prefix == "" {
		return "", ""
	}
	p := strings.ToUpper(prefix)
	return os.Getenv(p + "_USER"), os.Getenv(p + "_PASS")
}

// Auth builds the auth config for pushing repo with credentials from prefix.
// Without credentials only the server address is set and the daemon falls
// back to its own login state.
func Auth(repo, prefix string) dockerregistry.AuthConfig {
	user, pass := Credentials(prefix)
	return dockerregistry.AuthConfig{
		Username:      user,
		Password:      pass,
		ServerAddress: Host(repo),
	}
}

// EncodedAuth returns Auth(repo, prefix) in the X-Registry-Auth header form.
func EncodedAuth(repo, prefix string) (string, error) {
	return dockerregistry.EncodeAuthConfig(Auth(repo, prefix))
}

package registry

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Validation regexes based on OCI Distribution Spec.
var (
	// OCI repository path: lowercase, digits, separators (-, _, ., /), max 256 chars.
	ociPathRe = regexp.MustCompile(`^[a-z0-9]+(?:[._-][a-z0-9]+)*(?:/[a-z0-9]+(?:[._-][a-z0-9]+)*)*$`)

	// OCI tag: alphanumeric, -, _, ., max 128 chars. Must start with alphanumeric.
	ociTagRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

	// Env var prefix: uppercase letters, digits, underscore. Must start with letter.
	envPrefixRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// ValidateRegistryURL checks that a registry URL is well-formed.
// Rejects strings with spaces, control characters, or invalid structure.
func ValidateRegistryURL(u string) error {
	if u == "" {
		return fmt.Errorf("registry URL is empty")
	}
	if containsControlChars(u) {
		return fmt.Errorf("registry URL %q contains control characters", u)
	}
	if strings.ContainsAny(u, " \t\n\r") {
		return fmt.Errorf("registry URL %q contains whitespace", u)
	}

	// Strip scheme for host validation
	host := u
	if idx := strings.Index(host, "://"); idx >= 0 {
		scheme := host[:idx]
		if scheme != "http" && scheme != "https" {
			return fmt.Errorf("registry URL %q has invalid scheme %q (expected http or https)", u, scheme)
		}
		host = host[idx+3:]
	}

	// Must have at least a host
	if idx := strings.IndexByte(host, '/'); idx >= 0 {
		host = host[:idx]
	}
	if host == "" {
		return fmt.Errorf("registry URL %q has empty host", u)
	}

	// Basic host validation: no spaces, has at least one dot or is localhost/IP
	if strings.ContainsAny(host, " \t{}[]<>\"'`") {
		return fmt.Errorf("registry URL %q has invalid host characters", u)
	}

	return nil
}

// ValidateImagePath checks that a repository/image path conforms to OCI spec.
func ValidateImagePath(path string) error {
	if path == "" {
		return fmt.Errorf("image path is empty")
	}
	if containsControlChars(path) {
		return fmt.Errorf("image path %q contains control characters", path)
	}
	if len(path) > 256 {
		return fmt.Errorf("image path %q exceeds 256 characters", path)
	}

	// Template blocks are checked after resolution; only literal parts here.
	literal := stripTemplates(path)
	if literal != "" && !ociPathRe.MatchString(literal) {
		return fmt.Errorf("image path %q contains invalid characters (OCI spec: lowercase, digits, -, _, ., /)", path)
	}

	return nil
}

// ValidateTag checks that a resolved tag conforms to OCI spec.
func ValidateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag is empty")
	}
	if containsControlChars(tag) {
		return fmt.Errorf("tag %q contains control characters", tag)
	}
	if len(tag) > 128 {
		return fmt.Errorf("tag %q exceeds 128 characters", tag)
	}
	if !ociTagRe.MatchString(tag) {
		return fmt.Errorf("tag %q contains invalid characters (OCI spec: alphanumeric, -, _, .)", tag)
	}
	return nil
}

// ValidateTagTemplate checks that an unresolved tag template is structurally valid.
// Allows {var} and {var:param} syntax. Rejects unclosed braces, spaces, control chars.
func ValidateTagTemplate(tmpl string) error {
	if tmpl == "" {
		return fmt.Errorf("tag template is empty")
	}
	if containsControlChars(tmpl) {
		return fmt.Errorf("tag template %q contains control characters", tmpl)
	}
	if strings.ContainsAny(tmpl, " \t\n\r") {
		return fmt.Errorf("tag template %q contains whitespace", tmpl)
	}

	// Check balanced braces
	depth := 0
	for i, c := range tmpl {
		switch c {
		case '{':
			depth++
			if depth > 1 {
				return fmt.Errorf("tag template %q has nested braces at position %d", tmpl, i)
			}
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("tag template %q has unmatched closing brace at position %d", tmpl, i)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("tag template %q has unclosed brace", tmpl)
	}

	return nil
}

// ValidateCredentials checks that a credential prefix is a valid env var name.
func ValidateCredentials(prefix string) error {
	if prefix == "" {
		return nil // empty = no credentials
	}
	upper := strings.ToUpper(prefix)
	if !envPrefixRe.MatchString(upper) {
		return fmt.Errorf("credentials prefix %q is not a valid env var name (expected: [A-Z][A-Z0-9_]*)", prefix)
	}
	return nil
}

// ValidateReference checks a repository and resolved tag before a build.
// Returns all errors found (not just the first).
func ValidateReference(repo, tag, credentials string) []error {
	var errs []error

	if err := ValidateRegistryURL(Host(repo)); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateImagePath(Path(repo)); err != nil {
		errs = append(errs, err)
	}
	if tag != "" {
		if err := ValidateTag(tag); err != nil {
			errs = append(errs, err)
		}
	}
	if err := ValidateCredentials(credentials); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// containsControlChars returns true if the string has any ASCII control characters.
func containsControlChars(s string) bool {
	for _, r := range s {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
		if r == unicode.ReplacementChar {
			return true
		}
	}
	return false
}

// stripTemplates removes all {…} blocks from a string, returning only literal parts.
// Used to validate the non-template portions of paths/tags.
func stripTemplates(s string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '{' {
			j := i + 1
			for j < len(s) && s[j] != '}' {
				j++
			}
			if j < len(s) {
				i = j + 1
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

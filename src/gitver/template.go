package gitver

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ResolveTemplate expands template variables in an image tag against version
// info and environment. The result is sanitized for use as a Docker tag.
//
// Supported templates:
//
//	{version}      → "1.2.3" or "1.2.3-alpha.1" (full version)
//	{base}         → "1.2.3" (semver base, no prerelease)
//	{major}        → "1"
//	{minor}        → "2"
//	{patch}        → "3"
//	{prerelease}   → "alpha.1" or "" (empty for stable)
//	{branch}       → "main", "feature-x"
//	{sha}          → "abc1234" (default 7)
//	{sha:12}       → "abc1234def01" (first 12 chars)
//	{env:VAR_NAME} → value of environment variable
//	{date}         → "2026-02-24" (ISO date, UTC)
//
// Strings without braces are returned unchanged.
func ResolveTemplate(tmpl string, v *VersionInfo) string {
	if v == nil || !strings.Contains(tmpl, "{") {
		return tmpl
	}

	s := tmpl

	// Parameterized templates first; their colons would collide with the
	// simple replacements below.
	s = resolveEnvVars(s)
	s = resolveSHA(s, v.SHA)

	s = strings.ReplaceAll(s, "{date}", time.Now().UTC().Format("2006-01-02"))
	s = strings.ReplaceAll(s, "{version}", v.Version)
	s = strings.ReplaceAll(s, "{base}", v.Base)
	s = strings.ReplaceAll(s, "{major}", v.Major)
	s = strings.ReplaceAll(s, "{minor}", v.Minor)
	s = strings.ReplaceAll(s, "{patch}", v.Patch)
	s = strings.ReplaceAll(s, "{prerelease}", v.Prerelease)
	s = strings.ReplaceAll(s, "{branch}", v.Branch)
	s = strings.ReplaceAll(s, "{sha}", truncate(v.SHA, 7))

	return sanitizeTag(s)
}

// NeedsVersion reports whether tmpl references any template variable.
func NeedsVersion(tmpl string) bool {
	return strings.Contains(tmpl, "{")
}

// resolveEnvVars replaces all {env:VAR_NAME} with the env var value.
func resolveEnvVars(s string) string {
	for {
		start := strings.Index(s, "{env:")
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "}")
		if end == -1 {
			return s
		}
		end += start
		varName := s[start+5 : end]
		val := os.Getenv(varName)
		s = s[:start] + val + s[end+1:]
	}
}

// resolveSHA replaces {sha:N} with the SHA truncated to N chars.
// Plain {sha} is handled separately by the simple replacement pass.
func resolveSHA(s string, sha string) string {
	for {
		start := strings.Index(s, "{sha:")
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "}")
		if end == -1 {
			return s
		}
		end += start
		widthStr := strings.TrimPrefix(s[start+5:end], ".")
		width, err := strconv.Atoi(widthStr)
		if err != nil || width <= 0 {
			width = 7
		}
		s = s[:start] + truncate(sha, width) + s[end+1:]
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// sanitizeTag replaces characters not allowed in Docker tags.
func sanitizeTag(s string) string {
	r := strings.NewReplacer(
		"/", "-",
		" ", "-",
		"+", "-",
	)
	return r.Replace(s)
}

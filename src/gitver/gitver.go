// Package gitver provides git-based version detection and tag template
// resolution for image tags.
package gitver

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// VersionInfo holds resolved version metadata from git.
type VersionInfo struct {
	Version      string // full version: "1.2.3", "1.2.3-alpha.1", "0.0.0-dev+abc1234"
	Base         string // semver base without prerelease: "1.2.3"
	Major        string
	Minor        string
	Patch        string
	Prerelease   string // "alpha.1", "rc.1", or "" for stable
	SHA          string // full commit hash
	Branch       string
	IsRelease    bool // true if HEAD is exactly at a tag
	IsPrerelease bool // true if that tag has a prerelease suffix
}

// Dev returns the placeholder used outside a git checkout.
func Dev() *VersionInfo {
	return &VersionInfo{
		Version: "dev",
		Base:    "0.0.0",
		Major:   "0",
		Minor:   "0",
		Patch:   "0",
		SHA:     "unknown",
		Branch:  "unknown",
	}
}

// DetectVersion resolves version info from the repository containing dir.
// The highest semver tag pointing at HEAD wins; a non-semver tag is used raw.
// Without a tag at HEAD the version is "0.0.0-dev+<sha7>".
func DetectVersion(dir string) (*VersionInfo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	v := &VersionInfo{SHA: head.Hash().String(), Branch: "HEAD"}
	if head.Name().IsBranch() {
		v.Branch = head.Name().Short()
	}

	best, raw, err := tagsAt(repo, head.Hash())
	if err != nil {
		return nil, err
	}

	switch {
	case best != nil:
		v.IsRelease = true
		v.Major = strconv.FormatUint(best.Major(), 10)
		v.Minor = strconv.FormatUint(best.Minor(), 10)
		v.Patch = strconv.FormatUint(best.Patch(), 10)
		v.Base = fmt.Sprintf("%s.%s.%s", v.Major, v.Minor, v.Patch)
		v.Prerelease = best.Prerelease()
		v.IsPrerelease = v.Prerelease != ""
		v.Version = v.Base
		if v.IsPrerelease {
			v.Version += "-" + v.Prerelease
		}
	case raw != "":
		v.IsRelease = true
		v.Version = raw
		v.Base = raw
	default:
		v.Base = "0.0.0"
		v.Major, v.Minor, v.Patch = "0", "0", "0"
		v.Version = "0.0.0-dev+" + truncate(v.SHA, 7)
	}
	return v, nil
}

// tagsAt returns the highest semver tag and the first non-semver tag that
// point at commit. Annotated tags are peeled to their commit.
func tagsAt(repo *git.Repository, commit plumbing.Hash) (*semver.Version, string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, "", fmt.Errorf("listing tags: %w", err)
	}

	var best *semver.Version
	var raw string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if obj, err := repo.TagObject(ref.Hash()); err == nil {
			c, err := obj.Commit()
			if err != nil {
				return nil
			}
			target = c.Hash
		} else if !errors.Is(err, plumbing.ErrObjectNotFound) {
			return err
		}
		if target != commit {
			return nil
		}

		name := ref.Name().Short()
		sv, err := semver.NewVersion(name)
		if err != nil {
			if raw == "" {
				raw = name
			}
			return nil
		}
		if best == nil || sv.GreaterThan(best) {
			best = sv
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("reading tags: %w", err)
	}
	return best, raw, nil
}

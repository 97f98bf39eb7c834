package build

import "path/filepath"

// DockerfileName is the file a build directory must contain.
const DockerfileName = "Dockerfile"

// Image describes a container image to be built from a directory.
type Image struct {
	Dir     string // directory holding the Dockerfile; the build context
	Repo    string // repository applied to the image on success
	Tag     string // optional tag applied alongside Repo
	NoCache bool   // do not use the layer cache
	Remove  bool   // remove intermediate containers after a successful build

	// ID is the short image id reported by the daemon. It stays empty until
	// Build succeeds.
	ID string
}

// NewImage returns an Image with the daemon's default of removing
// intermediate containers.
func NewImage(dir, repo, tag string) *Image {
	return &Image{Dir: dir, Repo: repo, Tag: tag, Remove: true}
}

// TaggedName returns "repo:tag", or just "repo" when no tag is set.
func (i *Image) TaggedName() string {
	if i.Tag == "" {
		return i.Repo
	}
	return i.Repo + ":" + i.Tag
}

// Dockerfile returns the path of the Dockerfile inside Dir.
func (i *Image) Dockerfile() string {
	return filepath.Join(i.Dir, DockerfileName)
}

// Built reports whether the image carries a daemon-assigned id.
func (i *Image) Built() bool {
	return i.ID != ""
}

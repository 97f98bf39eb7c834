package config

// DockerConfig holds daemon and image settings.
type DockerConfig struct {
	// Host is the daemon address. Empty uses DOCKER_HOST or the platform default.
	Host string `yaml:"host" toml:"host"`

	Repo    string `yaml:"repo" toml:"repo"`
	Tag     string `yaml:"tag" toml:"tag"` // may contain {version}-style templates
	NoCache bool   `yaml:"no_cache" toml:"no_cache"`
	Remove  bool   `yaml:"rm" toml:"rm"`

	// Credentials is the env var prefix for registry auth
	// (e.g., "GCR" → GCR_USER/GCR_PASS).
	Credentials string `yaml:"credentials" toml:"credentials"`
}

// DefaultDockerConfig returns sensible defaults for docker builds.
func DefaultDockerConfig() DockerConfig {
	return DockerConfig{Remove: true}
}

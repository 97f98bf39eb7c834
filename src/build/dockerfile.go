package build

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

var (
	// FROM [--platform=...] <image> [AS <name>]
	fromRe = regexp.MustCompile(`(?i)^FROM\s+(?:--platform=\S+\s+)?(\S+)(?:\s+AS\s+(\S+))?`)
	// ARG <name>[=<default>]
	argRe = regexp.MustCompile(`(?i)^ARG\s+(\S+?)(?:=.*)?$`)
)

// ErrNoDockerfile is returned when the build directory has no Dockerfile.
var ErrNoDockerfile = errors.New("no Dockerfile found")

// DockerfileInfo describes a parsed Dockerfile.
type DockerfileInfo struct {
	Path   string
	Stages []Stage
	Args   []string
}

// Stage describes a single FROM stage in a Dockerfile.
type Stage struct {
	Name      string // alias from "AS name", empty if unnamed
	BaseImage string // the FROM image reference
	Line      int    // line number of the FROM instruction
}

// Preflight checks that img.Dir holds a Dockerfile with at least one stage.
func Preflight(img *Image) (*DockerfileInfo, error) {
	path := img.Dockerfile()
	info, err := ParseDockerfile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoDockerfile, img.Dir)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(info.Stages) == 0 {
		return info, fmt.Errorf("%s: no FROM instruction", path)
	}
	return info, nil
}

// ParseDockerfile extracts stage and arg info from a Dockerfile.
// This is a regex-based parser, not a full AST. Sufficient for pre-flight.
func ParseDockerfile(path string) (*DockerfileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := &DockerfileInfo{Path: path}
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := fromRe.FindStringSubmatch(line); m != nil {
			info.Stages = append(info.Stages, Stage{
				Name:      m[2],
				BaseImage: m[1],
				Line:      lineNum,
			})
			continue
		}

		if m := argRe.FindStringSubmatch(line); m != nil {
			info.Args = append(info.Args, m[1])
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return info, nil
}

package frontmatter

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	frontmatterRegex = regexp.MustCompile(`^---\s*\r?\n([\s\S]*?)\r?\n---\s*\r?\n([\s\S]*)$`)
	validate         = validator.New()
)

// Metadata heads a gallery page. Viewer and Width are the defaults for every
// gallery on the page that does not set its own.
type Metadata struct {
	Title         string    `yaml:"title" validate:"required"`
	Description   string    `yaml:"description"`
	PublishedTime time.Time `yaml:"publishedTime"`
	Viewer        string    `yaml:"viewer" validate:"omitempty,oneof=overlay external"`
	Width         int       `yaml:"width" validate:"gte=0"`
	Tags          []string  `yaml:"tags"`
}

// ParseFrontmatter splits a page into its metadata and markdown body. A page
// without a frontmatter block yields nil metadata and the content untouched.
func ParseFrontmatter(content []byte) (metadata *Metadata, markdown []byte, err error) {
	matches := frontmatterRegex.FindSubmatch(content)
	if len(matches) != 3 {
		return nil, content, nil
	}

	yamlContent := matches[1]
	markdownContent := matches[2]

	metadata = &Metadata{}
	if err := yaml.Unmarshal(yamlContent, metadata); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML frontmatter: %w", err)
	}
	if err := validate.Struct(metadata); err != nil {
		return nil, nil, fmt.Errorf("invalid frontmatter: %w", err)
	}

	return metadata, markdownContent, nil
}

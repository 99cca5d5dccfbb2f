package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontmatter(t *testing.T) {
	content := []byte(`---
title: Lisbon
description: Trams and tiles
viewer: external
width: 4
tags: [portugal, city]
---
# Lisbon
`)

	metadata, markdown, err := ParseFrontmatter(content)
	require.NoError(t, err)
	require.NotNil(t, metadata)
	assert.Equal(t, "Lisbon", metadata.Title)
	assert.Equal(t, "external", metadata.Viewer)
	assert.Equal(t, 4, metadata.Width)
	assert.Equal(t, []string{"portugal", "city"}, metadata.Tags)
	assert.Equal(t, "# Lisbon\n", string(markdown))
}

func TestParseFrontmatter_NoBlock(t *testing.T) {
	content := []byte("# Just markdown\n")

	metadata, markdown, err := ParseFrontmatter(content)
	require.NoError(t, err)
	assert.Nil(t, metadata)
	assert.Equal(t, content, markdown)
}

func TestParseFrontmatter_Invalid(t *testing.T) {
	_, _, err := ParseFrontmatter([]byte("---\ntitle: x\nviewer: carousel\n---\nbody\n"))
	assert.Error(t, err)

	_, _, err = ParseFrontmatter([]byte("---\ntitle: [\n---\nbody\n"))
	assert.Error(t, err)
}

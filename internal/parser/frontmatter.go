// Package parser splits Markdown post files into front-matter metadata and body.
//
// The front-matter format is a flat list of "key: value" lines between two
// "---" delimiter lines. It is deliberately not YAML: values are taken
// verbatim after the first ": " separator, with one layer of quotes removed.
package parser

import (
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	delimiter = "---"
	bom       = "\ufeff"
)

// ErrMalformedFrontMatter is returned when a file has no delimited block.
var ErrMalformedFrontMatter = errors.New("malformed front-matter")

// Document holds the output of parsing a post file.
type Document struct {
	Metadata map[string]string
	Content  string
}

// Get returns the metadata value for key and whether it was present.
func (d *Document) Get(key string) (string, bool) {
	v, ok := d.Metadata[key]
	return v, ok
}

// Parse splits text into its front-matter metadata and trimmed body.
func Parse(text string) (*Document, error) {
	block, content, err := SplitBlock(text)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := ParseLine(line)
		if !ok {
			continue
		}
		meta[key] = value
	}

	return &Document{Metadata: meta, Content: content}, nil
}

// SplitBlock locates the first pair of "---" lines. It returns the text
// between them and the rest of the file with that block removed and
// surrounding whitespace trimmed. A leading UTF-8 byte order mark is ignored.
func SplitBlock(text string) (block, content string, err error) {
	lines := strings.Split(strings.TrimPrefix(text, bom), "\n")

	open := -1
	for i, line := range lines {
		if !isDelimiter(line) {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		block = strings.Join(lines[open+1:i], "\n")
		rest := strings.Join(lines[:open], "\n") + "\n" + strings.Join(lines[i+1:], "\n")
		return block, strings.TrimSpace(rest), nil
	}

	return "", "", ErrMalformedFrontMatter
}

func isDelimiter(line string) bool {
	return strings.TrimSpace(line) == delimiter
}

// ParseLine splits one front-matter line on the first ": ". Blank lines
// report ok=false. A line without a separator yields its text as the key and
// an empty value.
func ParseLine(line string) (key, value string, ok bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return "", "", false
	}

	k, v, found := strings.Cut(line, ": ")
	if !found {
		k = strings.TrimSuffix(strings.TrimSpace(line), ":")
	}
	key = strings.TrimSpace(k)
	if key == "" {
		return "", "", false
	}
	return key, Unquote(strings.TrimSpace(v)), true
}

// Unquote removes one layer of matching single or double quotes.
func Unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	if (first == '"' || first == '\'') && first == last {
		return value[1 : len(value)-1]
	}
	return value
}

// ParseList decodes a list-valued entry such as tags. Both a flow sequence
// ("[go, \"web\"]") and a comma separated list ("go, web") are accepted.
// Items are trimmed and unquoted; empty and repeated items are dropped.
func ParseList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}

	var items []string
	if strings.HasPrefix(value, "[") {
		if err := yaml.Unmarshal([]byte(value), &items); err != nil {
			items = strings.Split(strings.Trim(value, "[]"), ",")
		}
	} else {
		items = strings.Split(value, ",")
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = Unquote(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

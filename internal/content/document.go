package content

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the metadata header of a content file. Supported value
// types are strings, numbers, booleans and string arrays; anything else
// survives a round trip but is not guaranteed a canonical form.
type Frontmatter map[string]any

const delimiter = "---"

// Parse splits a content file into frontmatter and body. A file without a
// leading delimiter line parses to an empty mapping and the whole text as
// body. The body is returned byte-for-byte as it appears after the closing
// delimiter line.
func Parse(data []byte) (Frontmatter, string, error) {
	text := string(data)

	rest, ok := strings.CutPrefix(text, delimiter+"\n")
	if !ok {
		if rest, ok = strings.CutPrefix(text, delimiter+"\r\n"); !ok {
			return Frontmatter{}, text, nil
		}
	}

	head, body, ok := cutDelimiter(rest)
	if !ok {
		// Opening delimiter without a closing one: treat the whole file
		// as body to avoid eating content.
		return Frontmatter{}, text, nil
	}

	fm := Frontmatter{}
	if err := yaml.Unmarshal([]byte(head), &fm); err != nil {
		return nil, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	if fm == nil {
		fm = Frontmatter{}
	}
	canonicalize(fm)
	return fm, body, nil
}

// cutDelimiter finds the closing "---" line in rest and returns the YAML
// before it and the body after it.
func cutDelimiter(rest string) (head, body string, ok bool) {
	lines := strings.SplitAfter(rest, "\n")
	offset := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == delimiter {
			return rest[:offset], rest[offset+len(line):], true
		}
		offset += len(line)
	}
	return "", "", false
}

// Serialize joins frontmatter and body back into the persisted textual
// form. An empty frontmatter yields the bare body, so files that never had
// a header do not grow one.
func Serialize(fm Frontmatter, body string) ([]byte, error) {
	if len(fm) == 0 {
		return []byte(body), nil
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(fm)); err != nil {
		return nil, fmt.Errorf("serialize frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	buf.WriteString(delimiter + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// canonicalize rewrites all-string sequences as []string so callers (and
// the round-trip law) see one representation for string arrays.
func canonicalize(fm Frontmatter) {
	for k, v := range fm {
		seq, ok := v.([]any)
		if !ok {
			continue
		}
		strs := make([]string, 0, len(seq))
		allStrings := true
		for _, item := range seq {
			s, ok := item.(string)
			if !ok {
				allStrings = false
				break
			}
			strs = append(strs, s)
		}
		if allStrings {
			fm[k] = strs
		}
	}
}

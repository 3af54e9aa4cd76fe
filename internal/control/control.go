// Package control reads and writes Debian control-file paragraphs, the
// "Field: value" format shared by DEBIAN/control and Packages indexes.
package control

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Field is a single "Name: value" pair. Multi-line values keep their
// continuation lines, including the leading space.
type Field struct {
	Name  string
	Value string
}

// Paragraph is an ordered list of fields
type Paragraph []Field

// Get returns the value of the named field, case-insensitively
func (p Paragraph) Get(name string) string {
	for _, f := range p {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Set replaces the named field or appends it
func (p *Paragraph) Set(name, value string) {
	for i, f := range *p {
		if strings.EqualFold(f.Name, name) {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Field{Name: name, Value: value})
}

// WriteTo writes the paragraph without the trailing blank line
func (p Paragraph) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, f := range p {
		n, err := fmt.Fprintf(w, "%s: %s\n", f.Name, f.Value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (p Paragraph) String() string {
	var b strings.Builder
	p.WriteTo(&b)
	return b.String()
}

// Parse reads every paragraph of r. Paragraphs are separated by blank
// lines; lines starting with '#' are comments.
func Parse(r io.Reader) ([]Paragraph, error) {
	var paragraphs []Paragraph
	var current Paragraph

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNo++

		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, current)
				current = nil
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		// Continuation line
		if line[0] == ' ' || line[0] == '\t' {
			if len(current) == 0 {
				return nil, fmt.Errorf("line %d: continuation without field", lineNo)
			}
			current[len(current)-1].Value += "\n" + line
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected \"Field: value\"", lineNo)
		}
		current = append(current, Field{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(current) > 0 {
		paragraphs = append(paragraphs, current)
	}
	return paragraphs, nil
}

// ParseOne reads a file that must hold exactly one paragraph
func ParseOne(r io.Reader) (Paragraph, error) {
	paragraphs, err := Parse(r)
	if err != nil {
		return nil, err
	}
	if len(paragraphs) != 1 {
		return nil, fmt.Errorf("expected one paragraph, found %d", len(paragraphs))
	}
	return paragraphs[0], nil
}

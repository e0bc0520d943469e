package directive

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// ExtractText removes accepted prefix directives from schema text and reports them.
//
// Two positions are recognized:
//
//	@rest(baseUrl: "http://example.com") type Query { ... }
//	type Query { @rest(url: "/foo") foo: String }
//
// Several directives may be stacked in front of the same declaration. Each round removes the
// leftmost extractable directive and the text is scanned again until nothing changes, so the
// occurrences come out in source order. Directives that don't precede a `type` declaration or
// a field name, directives on arguments, and directives inside `extend type`, `interface` or
// `input` bodies are left in place.
func ExtractText(src string, accept func(tag string) bool) (string, []*Occurrence, error) {
	var occs []*Occurrence
	for {
		occ, next, err := extractFirst(src, accept)
		if err != nil {
			return "", nil, err
		}
		if occ == nil {
			return src, occs, nil
		}
		occs = append(occs, occ)
		src = next
	}
}

type textScanner struct {
	src string
}

func (s *textScanner) eof(i int) bool {
	return i >= len(s.src)
}

// skipIgnored skips white space, commas and comments.
func (s *textScanner) skipIgnored(i int) int {
	for !s.eof(i) {
		switch s.src[i] {
		case ' ', '\t', '\n', '\r', ',':
			i++
		case '#':
			i = s.skipComment(i)
		default:
			return i
		}
	}
	return i
}

func (s *textScanner) skipSpaces(i int) int {
	for !s.eof(i) {
		switch s.src[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

func (s *textScanner) skipComment(i int) int {
	end := strings.IndexByte(s.src[i:], '\n')
	if end < 0 {
		return len(s.src)
	}
	return i + end + 1
}

// skipString returns the index just after the string starting at i.
// Unterminated strings run to the end of the text; the schema parser reports them later.
func (s *textScanner) skipString(i int) int {
	if strings.HasPrefix(s.src[i:], `"""`) {
		j := i + 3
		for !s.eof(j) {
			switch {
			case strings.HasPrefix(s.src[j:], `\"""`):
				j += 4
			case strings.HasPrefix(s.src[j:], `"""`):
				return j + 3
			default:
				j++
			}
		}
		return len(s.src)
	}

	j := i + 1
	for !s.eof(j) {
		switch s.src[j] {
		case '\\':
			j += 2
		case '"':
			return j + 1
		case '\n':
			return j
		default:
			j++
		}
	}
	return len(s.src)
}

// skipParens returns the index just after the parenthesis group starting at i, or -1.
func (s *textScanner) skipParens(i int) int {
	depth := 0
	j := i
	for !s.eof(j) {
		switch s.src[j] {
		case '"':
			j = s.skipString(j)
			continue
		case '#':
			j = s.skipComment(j)
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j + 1
			}
		}
		j++
	}
	return -1
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameContinue(c byte) bool {
	return isNameStart(c) || ('0' <= c && c <= '9')
}

func (s *textScanner) readName(i int) (string, int) {
	if s.eof(i) || !isNameStart(s.src[i]) {
		return "", i
	}
	j := i + 1
	for !s.eof(j) && isNameContinue(s.src[j]) {
		j++
	}
	return s.src[i:j], j
}

// scanDirective reads `@name` and an optional argument group starting at i.
// It returns the name, the argument group bounds (-1 when absent) and the end index.
func (s *textScanner) scanDirective(i int) (name string, argsStart, argsEnd, end int, ok bool) {
	name, end = s.readName(i + 1)
	if name == "" {
		return "", -1, -1, i + 1, false
	}
	argsStart, argsEnd = -1, -1
	k := s.skipIgnored(end)
	if !s.eof(k) && s.src[k] == '(' {
		closing := s.skipParens(k)
		if closing < 0 {
			return "", -1, -1, len(s.src), false
		}
		argsStart, argsEnd = k, closing
		end = closing
	}
	return name, argsStart, argsEnd, end, true
}

// declarationAfter skips stacked directives and descriptions following a directive and
// returns the next name together with the index just after it.
func (s *textScanner) declarationAfter(i int) (string, int) {
	k := s.skipIgnored(i)
	for !s.eof(k) {
		switch s.src[k] {
		case '@':
			_, _, _, end, ok := s.scanDirective(k)
			if !ok {
				return "", k
			}
			k = s.skipIgnored(end)
		case '"':
			k = s.skipIgnored(s.skipString(k))
		default:
			return s.readName(k)
		}
	}
	return "", k
}

func (s *textScanner) position(i int) *ast.Position {
	line := 1 + strings.Count(s.src[:i], "\n")
	column := i + 1
	if nl := strings.LastIndexByte(s.src[:i], '\n'); nl >= 0 {
		column = i - nl
	}
	return &ast.Position{
		Start:  i,
		Line:   line,
		Column: column,
	}
}

func isDefinitionKeyword(name string) bool {
	switch name {
	case "type", "interface", "input", "enum", "union", "scalar", "schema", "directive", "extend":
		return true
	default:
		return false
	}
}

func extractFirst(src string, accept func(tag string) bool) (*Occurrence, string, error) {
	s := &textScanner{src: src}

	var (
		braceDepth int
		parenDepth int

		// header of the definition being read at the top level
		keyword     string
		extension   bool
		pendingType string
		bodyType    string
	)

	i := 0
	for !s.eof(i) {
		c := s.src[i]
		switch {
		case c == '"':
			i = s.skipString(i)
			continue
		case c == '#':
			i = s.skipComment(i)
			continue
		case c == '{':
			if braceDepth == 0 {
				bodyType = pendingType
				keyword, extension, pendingType = "", false, ""
			}
			braceDepth++
		case c == '}':
			if braceDepth > 0 {
				braceDepth--
			}
			if braceDepth == 0 {
				bodyType = ""
			}
		case c == '(':
			parenDepth++
		case c == ')':
			if parenDepth > 0 {
				parenDepth--
			}
		case c == '@':
			tag, argsStart, argsEnd, end, ok := s.scanDirective(i)
			if !ok {
				i = end
				continue
			}
			if parenDepth != 0 || !accept(tag) {
				i = end
				continue
			}

			var target Target
			name, nameEnd := s.declarationAfter(end)
			switch {
			case braceDepth == 0 && name == "type":
				typeName, _ := s.readName(s.skipIgnored(nameEnd))
				if typeName == "" {
					i = end
					continue
				}
				target = Target{TypeName: typeName}
			case braceDepth == 1 && bodyType != "" && name != "":
				target = Target{TypeName: bodyType, FieldName: name}
			default:
				i = end
				continue
			}

			var args ast.ArgumentList
			if argsStart >= 0 {
				var err error
				args, err = ParseRawArguments(s.src[argsStart+1 : argsEnd-1])
				if err != nil {
					return nil, "", fmt.Errorf("@%s on %s: %w", tag, target, err)
				}
			}

			occ := &Occurrence{
				Directive: &ast.Directive{
					Name:      tag,
					Arguments: args,
					Position:  s.position(i),
				},
				Target: target,
			}
			return occ, s.src[:i] + s.src[s.skipSpaces(end):], nil
		case isNameStart(c):
			name, end := s.readName(i)
			if braceDepth == 0 && parenDepth == 0 {
				switch {
				case keyword == "type" && pendingType == "" && !isDefinitionKeyword(name):
					if !extension {
						pendingType = name
					}
					keyword = "type:" + name
				case name == "extend":
					keyword, extension, pendingType = name, true, ""
				case isDefinitionKeyword(name):
					if name != "type" {
						extension = false
					}
					keyword, pendingType = name, ""
				}
			}
			i = end
			continue
		}
		i++
	}

	return nil, src, nil
}

package annotation

import (
	"context"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vvakame/annogql/directive"
	"github.com/vvakame/annogql/internal/log"
)

type Mode int

const (
	// ModeAST reads standard postfix directives from the parsed schema.
	// The directives stay in the schema text.
	ModeAST Mode = iota
	// ModeText extracts prefix directives from the raw text and returns the stripped text.
	ModeText
)

func (m Mode) String() string {
	switch m {
	case ModeAST:
		return "ast"
	case ModeText:
		return "text"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "ast":
		return ModeAST, nil
	case "text":
		return ModeText, nil
	default:
		return 0, fmt.Errorf("unknown parse mode: %q", s)
	}
}

type Result struct {
	SchemaText  string
	Annotations List
}

type Parser struct {
	registry *Registry
	mode     Mode
}

func NewParser(registry *Registry, mode Mode) *Parser {
	return &Parser{
		registry: registry,
		mode:     mode,
	}
}

func (p *Parser) Parse(ctx context.Context, schemaText string) (*Result, error) {
	_, logger := log.WithName(ctx, "parser")

	var (
		cleaned string
		occs    []*directive.Occurrence
	)
	switch p.mode {
	case ModeAST:
		doc, gErr := parser.ParseSchema(&ast.Source{
			Name:  "schema.graphqls",
			Input: schemaText,
		})
		if gErr != nil {
			return nil, gErr
		}
		cleaned = schemaText
		occs = directive.LocateDocument(doc)
	case ModeText:
		var err error
		cleaned, occs, err = directive.ExtractText(schemaText, p.registry.Has)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown parse mode: %s", p.mode)
	}

	annotations := make(List, 0, len(occs))
	for _, occ := range occs {
		factory, ok := p.registry.Lookup(occ.Tag())
		if !ok {
			continue
		}

		info, err := occ.Info()
		if err != nil {
			return nil, fmt.Errorf("@%s on %s: %w", occ.Tag(), occ.Target, err)
		}

		a, err := factory(info, occ.Target)
		if err != nil {
			return nil, fmt.Errorf("@%s on %s: %w", occ.Tag(), occ.Target, err)
		}
		if a == nil {
			logger.V(1).Info("directive skipped by factory", "tag", occ.Tag(), "target", occ.Target.String())
			continue
		}

		annotations = append(annotations, a)
	}

	logger.V(1).Info("schema parsed", "mode", p.mode.String(), "annotations", len(annotations))

	return &Result{
		SchemaText:  cleaned,
		Annotations: annotations,
	}, nil
}

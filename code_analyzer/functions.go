package code_analyzer

import (
	"context"
	"regexp"

	"github.com/studyboard/studyverify/code_analyzer/models"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

const (
	ParserRegex      = "regex"
	ParserTreeSitter = "treesitter"
)

// FunctionExtractor splits a source file into top-level function spans.
type FunctionExtractor interface {
	Extract(content []byte) []models.FunctionSpan
}

// NewFunctionExtractor returns the extractor registered under name, defaulting to regex.
func NewFunctionExtractor(name string) FunctionExtractor {
	switch name {
	case ParserTreeSitter:
		return NewTreeSitterExtractor()
	default:
		return NewRegexExtractor()
	}
}

// RegexExtractor finds function headers that start at column zero.
type RegexExtractor struct {
	header *regexp.Regexp
}

func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{
		header: regexp.MustCompile(`(?m)^(?:async[ \t]+)?def[ \t]+([A-Za-z_]\w*)[ \t]*\(`),
	}
}

func (e *RegexExtractor) Extract(content []byte) []models.FunctionSpan {
	matches := e.header.FindAllSubmatchIndex(content, -1)

	starts := make([]int, 0, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		starts = append(starts, m[0])
		names = append(names, string(content[m[2]:m[3]]))
	}

	return buildSpans(content, starts, names)
}

// TreeSitterExtractor walks the top level of a Python syntax tree.
type TreeSitterExtractor struct {
	fallback *RegexExtractor
}

func NewTreeSitterExtractor() *TreeSitterExtractor {
	return &TreeSitterExtractor{fallback: NewRegexExtractor()}
}

func (e *TreeSitterExtractor) Extract(content []byte) []models.FunctionSpan {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return e.fallback.Extract(content)
	}
	defer tree.Close()

	root := tree.RootNode()
	// Half-written files parse into ERROR nodes that swallow later definitions
	if root.HasError() {
		return e.fallback.Extract(content)
	}

	var starts []int
	var names []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)

		var def *sitter.Node
		switch child.Type() {
		case "function_definition":
			def = child
		case "decorated_definition":
			// Decorators belong to the function they wrap
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if inner := child.NamedChild(j); inner.Type() == "function_definition" {
					def = inner
				}
			}
		}
		if def == nil {
			continue
		}

		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		starts = append(starts, int(child.StartByte()))
		names = append(names, nameNode.Content(content))
	}

	return buildSpans(content, starts, names)
}

// buildSpans cuts content from each start offset to the next one (or EOF).
func buildSpans(content []byte, starts []int, names []string) []models.FunctionSpan {
	spans := make([]models.FunctionSpan, 0, len(starts))
	for i, start := range starts {
		end := len(content)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		spans = append(spans, models.FunctionSpan{
			Name:     names[i],
			BodyText: string(content[start:end]),
		})
	}
	return spans
}

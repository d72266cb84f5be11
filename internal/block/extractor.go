// Package block decomposes a source file into semantic blocks: named,
// kinded, line-ranged spans suitable as the atomic unit of embedding and
// retrieval.
package block

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
)

// Extractor splits file content into Blocks using tree-sitter where a
// grammar is registered, falling back to a single whole-file block
// otherwise.
type Extractor struct {
	parser   *Parser
	registry *LanguageRegistry
}

// NewExtractor creates an Extractor using the default language registry.
func NewExtractor() *Extractor {
	return &Extractor{parser: NewParser(), registry: DefaultRegistry()}
}

// Close releases the underlying tree-sitter parser.
func (e *Extractor) Close() {
	e.parser.Close()
}

// LanguageForExtension resolves a file extension (including the leading
// dot) to a registered language name, or "" if none is registered.
func LanguageForExtension(ext string) string {
	config, ok := DefaultRegistry().GetByExtension(ext)
	if !ok {
		return ""
	}
	return config.Name
}

// Extract decomposes content into blocks. path is recorded on each block and
// used as the fallback block's name when the file can't be parsed.
func (e *Extractor) Extract(path string, content []byte, language string) ([]Block, error) {
	if len(content) == 0 {
		return nil, nil
	}

	config, ok := e.registry.GetByName(language)
	if !ok {
		return []Block{wholeFileBlock(path, content)}, nil
	}

	tree, err := e.parser.Parse(context.Background(), content, language)
	if err != nil {
		return []Block{wholeFileBlock(path, content)}, nil
	}

	lines := strings.Split(string(content), "\n")
	table := kindTable(config)

	var blocks []Block
	var walk func(n *Node, ancestors []string)
	walk = func(n *Node, ancestors []string) {
		if baseKind, matched := table[n.Type]; matched {
			kind, name := resolveKindAndName(n, tree.Source, language, baseKind, ancestors)
			blocks = append(blocks, buildBlock(n, lines, path, language, kind, name))
		}
		ancestors = append(ancestors, n.Type)
		for _, child := range n.Children {
			walk(child, ancestors)
		}
	}
	walk(tree.Root, nil)

	if len(blocks) == 0 {
		return []Block{wholeFileBlock(path, content)}, nil
	}

	sortBlocks(blocks)
	return blocks, nil
}

// kindTable flattens a LanguageConfig's node-type lists into a single
// type -> Kind lookup used during the tree walk.
func kindTable(config *LanguageConfig) map[string]Kind {
	table := make(map[string]Kind)
	add := func(types []string, kind Kind) {
		for _, t := range types {
			table[t] = kind
		}
	}
	add(config.FunctionTypes, KindFunction)
	add(config.MethodTypes, KindMethod)
	add(config.ClassTypes, KindClass)
	add(config.StructTypes, KindStruct)
	add(config.InterfaceTypes, KindInterface)
	add(config.TraitTypes, KindTrait)
	add(config.EnumTypes, KindEnum)
	add(config.ImplTypes, KindImpl)
	add(config.TypeDefTypes, KindType)
	return table
}

// resolveKindAndName refines the coarse table-assigned kind and extracts the
// declared name from a matched node. Go's type_declaration and Rust's
// impl_item need a look at their children to pick the right Kind or name;
// Python's function_definition needs a look at its ancestors, since the
// grammar has no separate method node type; everything else is a generic
// "find the identifier child" lookup.
func resolveKindAndName(n *Node, source []byte, language string, baseKind Kind, ancestors []string) (Kind, string) {
	switch language {
	case "go":
		if n.Type == "type_declaration" {
			return resolveGoTypeDecl(n, source)
		}
	case "rust":
		if n.Type == "impl_item" {
			return KindImpl, resolveRustImplName(n, source)
		}
	case "python":
		if n.Type == "function_definition" && nearestEnclosingIsClass(ancestors) {
			return KindMethod, extractIdentifierName(n, source)
		}
	}
	return baseKind, extractIdentifierName(n, source)
}

// nearestEnclosingIsClass reports whether the innermost ancestor that is
// itself a function or class body belongs to a class, meaning n is a method
// rather than a nested function.
func nearestEnclosingIsClass(ancestors []string) bool {
	for i := len(ancestors) - 1; i >= 0; i-- {
		switch ancestors[i] {
		case "class_definition":
			return true
		case "function_definition":
			return false
		}
	}
	return false
}

// extractIdentifierName looks for the first direct child that carries a
// declared name, covering the identifier node types tree-sitter grammars
// commonly use for that role.
func extractIdentifierName(n *Node, source []byte) string {
	for _, child := range n.Children {
		switch child.Type {
		case "identifier", "field_identifier", "type_identifier", "property_identifier":
			return child.GetContent(source)
		}
	}
	return ""
}

// resolveGoTypeDecl distinguishes struct/interface/alias type declarations,
// since Go's grammar wraps all three in a single type_declaration node.
func resolveGoTypeDecl(n *Node, source []byte) (Kind, string) {
	spec := n.FindChildByType("type_spec")
	if spec == nil {
		return KindType, ""
	}

	kind := KindType
	name := ""
	for _, c := range spec.Children {
		switch c.Type {
		case "type_identifier":
			if name == "" {
				name = c.GetContent(source)
			}
		case "struct_type":
			kind = KindStruct
		case "interface_type":
			kind = KindInterface
		}
	}
	return kind, name
}

// resolveRustImplName names an impl block "Trait for Type" when it
// implements a trait, or just "Type" for an inherent impl.
func resolveRustImplName(n *Node, source []byte) string {
	var types []string
	for _, c := range n.Children {
		switch c.Type {
		case "type_identifier", "generic_type", "scoped_type_identifier":
			types = append(types, c.GetContent(source))
		}
	}
	switch len(types) {
	case 0:
		return ""
	case 1:
		return types[0]
	default:
		return types[0] + " for " + types[1]
	}
}

// buildBlock materialises a Block from a matched node, widening its start
// line to absorb an immediately preceding comment run.
func buildBlock(n *Node, lines []string, path, language string, kind Kind, name string) Block {
	startRow := expandLeadingComment(lines, int(n.StartPoint.Row), language)
	endRow := int(n.EndPoint.Row)
	if endRow >= len(lines) {
		endRow = len(lines) - 1
	}

	content := strings.Join(lines[startRow:endRow+1], "\n") + "\n"
	content, truncated := truncate(content)

	return Block{
		File:      path,
		Kind:      kind,
		Name:      name,
		StartLine: startRow + 1,
		EndLine:   endRow + 1,
		Content:   content,
		Truncated: truncated,
	}
}

// expandLeadingComment walks backward from startRow over contiguous comment
// lines, stopping at the first blank line or non-comment line.
func expandLeadingComment(lines []string, startRow int, language string) int {
	row := startRow - 1
	for row >= 0 {
		line := strings.TrimSpace(lines[row])
		if line == "" || !isCommentLine(line, language) {
			break
		}
		startRow = row
		row--
	}
	return startRow
}

func isCommentLine(line, language string) bool {
	if language == "python" {
		return strings.HasPrefix(line, "#")
	}
	return strings.HasPrefix(line, "//") || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "/*")
}

// wholeFileBlock is the fallback for unrecognised languages or files that
// fail to parse: the entire file becomes a single "other" block.
func wholeFileBlock(path string, content []byte) Block {
	text := string(content)
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	endLine := strings.Count(text, "\n")
	text, truncated := truncate(text)

	return Block{
		File:      path,
		Kind:      KindOther,
		Name:      filepath.Base(path),
		StartLine: 1,
		EndLine:   endLine,
		Content:   text,
		Truncated: truncated,
	}
}

// sortBlocks orders blocks in source order by StartLine, breaking ties by
// EndLine descending so an outer (containing) block sorts before the inner
// blocks nested within it.
func sortBlocks(blocks []Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].StartLine != blocks[j].StartLine {
			return blocks[i].StartLine < blocks[j].StartLine
		}
		return blocks[i].EndLine > blocks[j].EndLine
	})
}

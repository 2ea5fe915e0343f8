package symbols

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/standardbeagle/lri/internal/debug"
	lrierrors "github.com/standardbeagle/lri/internal/errors"
)

// buildMarkers identify the root directory of a build module.
var buildMarkers = []string{"pom.xml", "build.gradle", "build.gradle.kts"}

// JavaProviderOptions configures workspace traversal.
type JavaProviderOptions struct {
	ProjectName string
	MaxFileSize int64
	Include     []string
	Exclude     []string
}

// JavaProvider implements Provider on top of tree-sitter's Java grammar.
//
// Parsed files are cached by (size, mtime) so that scanning for several
// annotation names, or re-scanning an unchanged file, does not re-parse.
type JavaProvider struct {
	root     string
	opts     JavaProviderOptions
	language *tree_sitter.Language

	mu    sync.Mutex
	cache map[string]*parsedFile // keyed by root-relative path
}

type parsedFile struct {
	size    int64
	modTime time.Time
	types   []*javaType
}

// NewJavaProvider creates a provider rooted at the given workspace directory.
func NewJavaProvider(root string, opts JavaProviderOptions) *JavaProvider {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 10 * 1024 * 1024
	}
	if opts.ProjectName == "" {
		opts.ProjectName = filepath.Base(root)
	}

	return &JavaProvider{
		root:     root,
		opts:     opts,
		language: tree_sitter.NewLanguage(tree_sitter_java.Language()),
		cache:    make(map[string]*parsedFile),
	}
}

// FindAnnotatedTypes walks the workspace and returns every type carrying the
// given annotation. Files that fail to parse are skipped.
func (p *JavaProvider) FindAnnotatedTypes(ctx context.Context, qualifiedName string) ([]Type, error) {
	var out []Type

	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p.excludedDir(path) {
				return filepath.SkipDir
			}
			return nil
		}

		rel := p.relPath(path)
		if !p.shouldParse(rel) {
			return nil
		}

		pf, perr := p.parsedFor(rel)
		if perr != nil {
			debug.LogScan("skipping %s: %v\n", rel, perr)
			return nil
		}
		for _, t := range pf.types {
			if t.annotationFor(qualifiedName) != nil {
				out = append(out, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// FindAnnotatedTypesInFile restricts the lookup to one file. A missing file
// yields an empty result, not an error: the caller treats it as "no routes
// declared here anymore".
func (p *JavaProvider) FindAnnotatedTypesInFile(ctx context.Context, qualifiedName, filePath string) ([]Type, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pf, err := p.parsedFor(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Type
	for _, t := range pf.types {
		if t.annotationFor(qualifiedName) != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

// FindType locates a type by simple name within a file.
func (p *JavaProvider) FindType(ctx context.Context, filePath, typeName string) (Type, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	pf, err := p.parsedFor(filePath)
	if err != nil {
		return nil, false
	}
	for _, t := range pf.types {
		if t.name == typeName {
			return t, true
		}
	}
	return nil, false
}

// Invalidate drops the parse cache entry for a file. Called when the watcher
// reports a deletion so the next lookup hits the disk.
func (p *JavaProvider) Invalidate(filePath string) {
	p.mu.Lock()
	delete(p.cache, filePath)
	p.mu.Unlock()
}

// parsedFor returns the cached parse of a file, re-parsing when the file on
// disk no longer matches the cached size/mtime.
func (p *JavaProvider) parsedFor(rel string) (*parsedFile, error) {
	abs := filepath.Join(p.root, rel)
	info, err := os.Stat(abs)
	if err != nil {
		p.Invalidate(rel)
		return nil, err
	}
	if info.Size() > p.opts.MaxFileSize {
		return nil, lrierrors.NewParseError(rel, os.ErrInvalid)
	}

	p.mu.Lock()
	cached, ok := p.cache[rel]
	p.mu.Unlock()
	if ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached, nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	types, err := p.parse(rel, content)
	if err != nil {
		return nil, err
	}

	pf := &parsedFile{size: info.Size(), modTime: info.ModTime(), types: types}
	p.mu.Lock()
	p.cache[rel] = pf
	p.mu.Unlock()

	return pf, nil
}

// parse extracts type declarations from one compilation unit. A fresh parser
// is created per call; tree-sitter parsers are not safe for concurrent use.
func (p *JavaProvider) parse(rel string, content []byte) ([]*javaType, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(p.language); err != nil {
		return nil, lrierrors.NewParseError(rel, err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, lrierrors.NewParseError(rel, os.ErrInvalid)
	}
	defer tree.Close()

	root := tree.RootNode()
	imports := collectImports(root, content)
	moduleID := p.moduleID(rel)

	var out []*javaType
	collectTypes(root, content, func(node *tree_sitter.Node) {
		jt := p.extractType(node, content, rel, imports, moduleID)
		if jt != nil {
			out = append(out, jt)
		}
	})

	return out, nil
}

// collectImports gathers the import paths of a compilation unit, keeping the
// trailing ".*" of on-demand imports.
func collectImports(root *tree_sitter.Node, content []byte) []string {
	var imports []string
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil || child.Kind() != "import_declaration" {
			continue
		}
		text := nodeText(child, content)
		text = strings.TrimPrefix(text, "import")
		text = strings.TrimSuffix(strings.TrimSpace(text), ";")
		text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "static"))
		text = strings.ReplaceAll(text, " ", "")
		if text != "" {
			imports = append(imports, text)
		}
	}
	return imports
}

// collectTypes visits class and interface declarations, including nested ones.
func collectTypes(node *tree_sitter.Node, content []byte, visit func(*tree_sitter.Node)) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "class_declaration", "interface_declaration":
			visit(child)
			if body := child.ChildByFieldName("body"); body != nil {
				collectTypes(body, content, visit)
			}
		case "class_body", "interface_body":
			collectTypes(child, content, visit)
		}
	}
}

// extractType builds a javaType from a class/interface declaration node.
func (p *JavaProvider) extractType(node *tree_sitter.Node, content []byte, rel string, imports []string, moduleID string) *javaType {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	jt := &javaType{
		name:        nodeText(nameNode, content),
		filePath:    rel,
		moduleID:    moduleID,
		annotations: extractAnnotations(node, content, imports),
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return jt
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child == nil || child.Kind() != "method_declaration" {
			continue
		}
		if m := extractMember(child, content, rel, imports); m != nil {
			jt.members = append(jt.members, m)
		}
	}

	return jt
}

// extractMember builds a javaMember from a method declaration node.
func extractMember(node *tree_sitter.Node, content []byte, rel string, imports []string) *javaMember {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	m := &javaMember{
		name:        nodeText(nameNode, content),
		filePath:    rel,
		offset:      int(nameNode.StartByte()),
		annotations: extractAnnotations(node, content, imports),
	}

	params := node.ChildByFieldName("parameters")
	if params != nil {
		for i := uint(0); i < params.ChildCount(); i++ {
			child := params.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "formal_parameter":
				if typeNode := child.ChildByFieldName("type"); typeNode != nil {
					m.paramTypes = append(m.paramTypes, nodeText(typeNode, content))
				}
			case "spread_parameter":
				// The type is the first child that is neither punctuation nor
				// the declarator; the parameter itself is varargs.
				for j := uint(0); j < child.ChildCount(); j++ {
					sub := child.Child(j)
					if sub == nil {
						continue
					}
					switch sub.Kind() {
					case "...", "variable_declarator", "modifiers":
						continue
					}
					m.paramTypes = append(m.paramTypes, nodeText(sub, content)+"...")
					break
				}
			}
		}
	}

	return m
}

// extractAnnotations reads the annotations off a declaration's modifiers node.
func extractAnnotations(decl *tree_sitter.Node, content []byte, imports []string) []*javaAnnotation {
	var out []*javaAnnotation
	for i := uint(0); i < decl.ChildCount(); i++ {
		child := decl.Child(i)
		if child == nil || child.Kind() != "modifiers" {
			continue
		}
		for j := uint(0); j < child.ChildCount(); j++ {
			ann := child.Child(j)
			if ann == nil {
				continue
			}
			switch ann.Kind() {
			case "marker_annotation", "annotation":
				if ja := extractAnnotation(ann, content, imports); ja != nil {
					out = append(out, ja)
				}
			}
		}
	}
	return out
}

// extractAnnotation reads one annotation node: its written name and the raw
// literal text of each argument.
func extractAnnotation(node *tree_sitter.Node, content []byte, imports []string) *javaAnnotation {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	ja := &javaAnnotation{
		written: nodeText(nameNode, content),
		imports: imports,
		attrs:   map[string]string{},
	}

	args := node.ChildByFieldName("arguments")
	if args == nil {
		return ja
	}
	for i := uint(0); i < args.ChildCount(); i++ {
		child := args.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "element_value_pair":
			key := child.ChildByFieldName("key")
			value := child.ChildByFieldName("value")
			if key != nil && value != nil {
				ja.attrs[nodeText(key, content)] = nodeText(value, content)
			}
		case "(", ")", ",":
			// punctuation
		default:
			// A bare argument is the implicit "value" attribute.
			if _, exists := ja.attrs["value"]; !exists {
				ja.attrs["value"] = nodeText(child, content)
			}
		}
	}

	return ja
}

// moduleID derives "<project>.<module>.<sourceSet>" from the nearest build
// marker above the file. Empty when no build module can be determined.
func (p *JavaProvider) moduleID(rel string) string {
	sourceSet := "main"
	slashed := filepath.ToSlash(rel)
	if strings.Contains(slashed, "/src/test/") || strings.HasPrefix(slashed, "src/test/") {
		sourceSet = "test"
	}

	dir := filepath.Dir(filepath.Join(p.root, rel))
	for {
		for _, marker := range buildMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return p.opts.ProjectName + "." + filepath.Base(dir) + "." + sourceSet
			}
		}
		if dir == p.root || dir == filepath.Dir(dir) {
			break
		}
		dir = filepath.Dir(dir)
	}

	return ""
}

// shouldParse applies the extension check and include/exclude globs to a
// root-relative path.
func (p *JavaProvider) shouldParse(rel string) bool {
	if !strings.HasSuffix(rel, ".java") {
		return false
	}
	slashed := filepath.ToSlash(rel)

	for _, pattern := range p.opts.Exclude {
		if matched, _ := doublestar.Match(pattern, slashed); matched {
			return false
		}
	}
	if len(p.opts.Include) == 0 {
		return true
	}
	for _, pattern := range p.opts.Include {
		if matched, _ := doublestar.Match(pattern, slashed); matched {
			return true
		}
	}
	return false
}

// excludedDir checks a directory against the exclude globs so whole subtrees
// (build output, .git) are skipped during the walk.
func (p *JavaProvider) excludedDir(abs string) bool {
	rel := p.relPath(abs)
	if rel == "." {
		return false
	}
	slashed := filepath.ToSlash(rel)
	for _, pattern := range p.opts.Exclude {
		if matched, _ := doublestar.Match(pattern, slashed); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, slashed+"/"); matched {
			return true
		}
	}
	return false
}

func (p *JavaProvider) relPath(abs string) string {
	rel, err := filepath.Rel(p.root, abs)
	if err != nil {
		return abs
	}
	return rel
}

func nodeText(node *tree_sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if int(end) > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}

// javaType implements Type.
type javaType struct {
	name        string
	filePath    string
	moduleID    string
	annotations []*javaAnnotation
	members     []*javaMember
}

func (t *javaType) Name() string     { return t.name }
func (t *javaType) FilePath() string { return t.filePath }
func (t *javaType) ModuleID() string { return t.moduleID }

func (t *javaType) Members() []Member {
	out := make([]Member, len(t.members))
	for i, m := range t.members {
		out[i] = m
	}
	return out
}

func (t *javaType) Annotation(qualifiedName string) Annotation {
	return t.annotationFor(qualifiedName)
}

func (t *javaType) annotationFor(qualifiedName string) Annotation {
	for _, a := range t.annotations {
		if a.matches(qualifiedName) {
			return a
		}
	}
	return nil
}

// javaMember implements Member.
type javaMember struct {
	name        string
	filePath    string
	offset      int
	paramTypes  []string
	annotations []*javaAnnotation
}

func (m *javaMember) Name() string             { return m.name }
func (m *javaMember) ParameterTypes() []string { return m.paramTypes }

func (m *javaMember) Annotation(qualifiedName string) Annotation {
	for _, a := range m.annotations {
		if a.matches(qualifiedName) {
			return a
		}
	}
	return nil
}

func (m *javaMember) Navigate() (string, int) {
	return m.filePath, m.offset
}

// javaAnnotation implements Annotation. The written name is resolved against
// the compilation unit's imports lazily, at match time.
type javaAnnotation struct {
	written string
	imports []string
	attrs   map[string]string
}

func (a *javaAnnotation) QualifiedName() string {
	if strings.Contains(a.written, ".") {
		return a.written
	}
	for _, imp := range a.imports {
		if strings.HasSuffix(imp, "."+a.written) {
			return imp
		}
	}
	return a.written
}

func (a *javaAnnotation) Attribute(name string) (string, bool) {
	v, ok := a.attrs[name]
	return v, ok
}

// matches resolves the written annotation name against the file's imports:
// an exact qualified spelling, an explicit import, or an on-demand import of
// the annotation's package all count.
func (a *javaAnnotation) matches(qualifiedName string) bool {
	if a.written == qualifiedName {
		return true
	}

	dot := strings.LastIndex(qualifiedName, ".")
	if dot < 0 {
		return a.written == qualifiedName
	}
	pkg, simple := qualifiedName[:dot], qualifiedName[dot+1:]
	if a.written != simple {
		return false
	}

	for _, imp := range a.imports {
		if imp == qualifiedName || imp == pkg+".*" {
			return true
		}
	}
	return false
}

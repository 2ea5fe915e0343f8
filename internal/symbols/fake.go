package symbols

import "context"

// FakeProvider is an in-memory Provider for tests: a symbol table built by
// hand instead of parsed from disk.
type FakeProvider struct {
	Types []*FakeType

	// Missing lists file paths that should behave as deleted from disk.
	Missing map[string]bool
}

// NewFakeProvider creates an empty fake.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{Missing: map[string]bool{}}
}

// AddType registers a type and returns it for further population.
func (p *FakeProvider) AddType(t *FakeType) *FakeType {
	p.Types = append(p.Types, t)
	return t
}

func (p *FakeProvider) FindAnnotatedTypes(ctx context.Context, qualifiedName string) ([]Type, error) {
	var out []Type
	for _, t := range p.Types {
		if p.Missing[t.File] {
			continue
		}
		if t.Annotation(qualifiedName) != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (p *FakeProvider) FindAnnotatedTypesInFile(ctx context.Context, qualifiedName, filePath string) ([]Type, error) {
	if p.Missing[filePath] {
		return nil, nil
	}
	var out []Type
	for _, t := range p.Types {
		if t.File == filePath && t.Annotation(qualifiedName) != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (p *FakeProvider) FindType(ctx context.Context, filePath, typeName string) (Type, bool) {
	if p.Missing[filePath] {
		return nil, false
	}
	for _, t := range p.Types {
		if t.File == filePath && t.TypeName == typeName {
			return t, true
		}
	}
	return nil, false
}

// FakeType implements Type.
type FakeType struct {
	TypeName    string
	File        string
	Module      string
	Annotations map[string]map[string]string // qualified name -> attr -> raw literal
	Methods     []*FakeMember
}

func (t *FakeType) Name() string     { return t.TypeName }
func (t *FakeType) FilePath() string { return t.File }
func (t *FakeType) ModuleID() string { return t.Module }

func (t *FakeType) Members() []Member {
	out := make([]Member, len(t.Methods))
	for i, m := range t.Methods {
		out[i] = m
	}
	return out
}

func (t *FakeType) Annotation(qualifiedName string) Annotation {
	attrs, ok := t.Annotations[qualifiedName]
	if !ok {
		return nil
	}
	return fakeAnnotation{name: qualifiedName, attrs: attrs}
}

// FakeMember implements Member.
type FakeMember struct {
	MemberName  string
	File        string
	Offset      int
	Params      []string
	Annotations map[string]map[string]string
}

func (m *FakeMember) Name() string             { return m.MemberName }
func (m *FakeMember) ParameterTypes() []string { return m.Params }

func (m *FakeMember) Annotation(qualifiedName string) Annotation {
	attrs, ok := m.Annotations[qualifiedName]
	if !ok {
		return nil
	}
	return fakeAnnotation{name: qualifiedName, attrs: attrs}
}

func (m *FakeMember) Navigate() (string, int) {
	return m.File, m.Offset
}

type fakeAnnotation struct {
	name  string
	attrs map[string]string
}

func (a fakeAnnotation) QualifiedName() string { return a.name }

func (a fakeAnnotation) Attribute(name string) (string, bool) {
	v, ok := a.attrs[name]
	return v, ok
}

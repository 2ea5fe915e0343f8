// Package symbols abstracts the symbol graph the scanner reads. The engine
// never touches an AST directly; it sees annotated type handles with attribute
// queries, so it runs unchanged against the tree-sitter provider in production
// and an in-memory fake in tests.
package symbols

import "context"

// Annotation is one annotation occurrence on a type or member.
type Annotation interface {
	// QualifiedName is the resolved qualified name of the annotation type.
	QualifiedName() string

	// Attribute returns the raw literal text of the named attribute exactly
	// as written in source (quotes, braces and enum references included).
	// The second result is false when the attribute is absent.
	Attribute(name string) (string, bool)
}

// Member is a method-like declaration inside a type.
type Member interface {
	// Name is the declared member name.
	Name() string

	// ParameterTypes returns the raw parameter type names in declaration order.
	ParameterTypes() []string

	// Annotation returns the member's annotation with the given qualified
	// name, or nil when the member does not carry it.
	Annotation(qualifiedName string) Annotation

	// Navigate returns the declaring file and the byte offset of the member
	// name, for callers that jump to source.
	Navigate() (filePath string, offset int)
}

// Type is a class-like declaration.
type Type interface {
	// Name is the simple type name.
	Name() string

	// Members returns the type's method-like members in declaration order.
	Members() []Member

	// Annotation returns the type-level annotation with the given qualified
	// name, or nil when absent.
	Annotation(qualifiedName string) Annotation

	// ModuleID identifies the enclosing build module as
	// "<project>.<module>.<sourceSet>". Empty when no module can be
	// determined.
	ModuleID() string

	// FilePath is the declaring file, relative to the project root.
	FilePath() string
}

// Provider supplies annotated declarations from the workspace.
//
// A lookup that finds nothing returns an empty slice and a nil error: an
// annotation type being absent from the workspace (framework not on the
// classpath) is a normal condition, never a failure.
type Provider interface {
	// FindAnnotatedTypes returns every type in the workspace carrying the
	// given annotation.
	FindAnnotatedTypes(ctx context.Context, qualifiedName string) ([]Type, error)

	// FindAnnotatedTypesInFile restricts the lookup to types declared
	// directly in one file.
	FindAnnotatedTypesInFile(ctx context.Context, qualifiedName, filePath string) ([]Type, error)

	// FindType locates a type by simple name within a file. Used when
	// restoring persisted routes. The bool result is false when the file or
	// the type no longer exists.
	FindType(ctx context.Context, filePath, typeName string) (Type, bool)
}

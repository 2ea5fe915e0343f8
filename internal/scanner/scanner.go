// Package scanner turns controller-like type handles into route records.
// Scan is a pure function over the symbol handles it is given; collecting
// those handles from a provider lives in CollectControllers.
package scanner

import (
	"context"
	"strings"

	"github.com/standardbeagle/lri/internal/symbols"
	"github.com/standardbeagle/lri/internal/types"
)

// UnknownModule is the sentinel module label when no build module can be
// determined for a declaration.
const UnknownModule = "Unknown"

// CollectControllers returns every controller-like type in the workspace,
// de-duplicated across marker annotations (a type carrying both markers is
// returned once).
func CollectControllers(ctx context.Context, provider symbols.Provider) ([]symbols.Type, error) {
	return collect(func(annotation string) ([]symbols.Type, error) {
		return provider.FindAnnotatedTypes(ctx, annotation)
	})
}

// CollectControllersInFile restricts collection to types declared directly in
// one file.
func CollectControllersInFile(ctx context.Context, provider symbols.Provider, filePath string) ([]symbols.Type, error) {
	return collect(func(annotation string) ([]symbols.Type, error) {
		return provider.FindAnnotatedTypesInFile(ctx, annotation, filePath)
	})
}

func collect(find func(annotation string) ([]symbols.Type, error)) ([]symbols.Type, error) {
	var out []symbols.Type
	seen := make(map[string]bool)

	for _, annotation := range ControllerAnnotations {
		found, err := find(annotation)
		if err != nil {
			return nil, err
		}
		for _, t := range found {
			key := t.FilePath() + "#" + t.Name()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
		}
	}

	return out, nil
}

// Scan maps controller-like types to route records: one Route per
// (member, mapping annotation, resolved verb). Paths come out normalized.
func Scan(controllers []symbols.Type) []types.Route {
	var routes []types.Route

	for _, controller := range controllers {
		classPrefix := classLevelPath(controller)
		moduleName := ModuleNameFromID(controller.ModuleID())

		for _, member := range controller.Members() {
			for _, mapping := range MappingAnnotations {
				ann := member.Annotation(mapping.QualifiedName)
				if ann == nil {
					continue
				}

				path := NormalizePath(classPrefix + "/" + pathAttribute(ann))
				for _, verb := range resolveVerbs(mapping, ann) {
					routes = append(routes, types.Route{
						Method:     verb,
						Path:       path,
						Owner:      member,
						TypeName:   controller.Name(),
						MemberName: member.Name(),
						ModuleName: moduleName,
					})
				}
			}
		}
	}

	return routes
}

// classLevelPath extracts the type-level path prefix from the type's own
// mapping annotation, empty when absent.
func classLevelPath(t symbols.Type) string {
	for _, mapping := range MappingAnnotations {
		if ann := t.Annotation(mapping.QualifiedName); ann != nil {
			return pathAttribute(ann)
		}
	}
	return ""
}

// pathAttribute reads the value/path attribute of a mapping annotation and
// reduces it to one path string: a quoted literal loses its quotes, an array
// literal contributes its first string element, anything else is empty.
func pathAttribute(ann symbols.Annotation) string {
	raw, ok := ann.Attribute("value")
	if !ok {
		raw, ok = ann.Attribute("path")
	}
	if !ok {
		return ""
	}
	return firstStringLiteral(raw)
}

// firstStringLiteral extracts the first double-quoted literal from a raw
// annotation attribute value. A bare literal returns its content; an array
// or list literal returns its first string element; no literal means empty.
func firstStringLiteral(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.IndexByte(raw, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(raw[start+1:], '"')
	if end < 0 {
		return ""
	}
	return raw[start+1 : start+1+end]
}

// resolveVerbs returns the verb set for one mapping annotation occurrence.
// Only RequestMapping supports narrowing through an explicit method
// attribute; every other annotation, and a RequestMapping without usable verb
// enumerators, uses the table defaults.
func resolveVerbs(mapping mappingAnnotation, ann symbols.Annotation) []types.HTTPMethod {
	if mapping.QualifiedName != requestMapping {
		return mapping.Verbs
	}

	raw, ok := ann.Attribute("method")
	if !ok {
		return mapping.Verbs
	}

	var verbs []types.HTTPMethod
	for _, token := range splitEnumerators(raw) {
		// Enumerators appear as RequestMethod.GET or, with a static
		// import, as a bare GET.
		if i := strings.LastIndexByte(token, '.'); i >= 0 {
			token = token[i+1:]
		}
		if verb, ok := types.ParseMethod(token); ok {
			verbs = append(verbs, verb)
		}
	}
	if len(verbs) == 0 {
		return mapping.Verbs
	}
	return verbs
}

// splitEnumerators tokenizes a method attribute literal such as
// "{RequestMethod.GET, RequestMethod.POST}" or "RequestMethod.GET".
func splitEnumerators(raw string) []string {
	raw = strings.Trim(strings.TrimSpace(raw), "{}")
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizePath collapses repeated slashes, forces a single leading slash,
// and strips the trailing slash unless the result is the root path. It is
// idempotent: normalizing a normalized path is a no-op.
func NormalizePath(path string) string {
	var b strings.Builder
	b.Grow(len(path) + 1)
	b.WriteByte('/')

	prevSlash := true
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '/' {
			if !prevSlash {
				b.WriteByte('/')
			}
			prevSlash = true
			continue
		}
		prevSlash = false
		b.WriteByte(c)
	}

	out := b.String()
	if len(out) > 1 && strings.HasSuffix(out, "/") {
		out = out[:len(out)-1]
	}
	return out
}

// ModuleNameFromID reduces a build-module identifier of the form
// "<project>.<module>.<sourceSet>" to the logical module label: the
// second-to-last dot-separated segment (the trailing segment is an
// environment qualifier such as main/test). Identifiers with fewer than two
// segments are used verbatim; an empty identifier maps to UnknownModule.
func ModuleNameFromID(id string) string {
	if id == "" {
		return UnknownModule
	}
	segments := strings.Split(id, ".")
	if len(segments) < 2 {
		return id
	}
	return segments[len(segments)-2]
}

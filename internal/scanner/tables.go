package scanner

import "github.com/standardbeagle/lri/internal/types"

// The annotation sets are data, not code branches: adding a verb or marker
// annotation is a table change.

// ControllerAnnotations are the type-level markers that make a type
// controller-like.
var ControllerAnnotations = []string{
	"org.springframework.stereotype.Controller",
	"org.springframework.web.bind.annotation.RestController",
}

// requestMapping is the one mapping annotation whose verb set can be
// narrowed by an explicit method attribute.
const requestMapping = "org.springframework.web.bind.annotation.RequestMapping"

// mappingAnnotation pairs a mapping annotation with its default verb set.
type mappingAnnotation struct {
	QualifiedName string
	Verbs         []types.HTTPMethod
}

// MappingAnnotations maps each member-level mapping annotation to the verbs
// it implies when no explicit method attribute narrows them.
var MappingAnnotations = []mappingAnnotation{
	{requestMapping, []types.HTTPMethod{types.MethodGet, types.MethodPost, types.MethodPut, types.MethodDelete}},
	{"org.springframework.web.bind.annotation.GetMapping", []types.HTTPMethod{types.MethodGet}},
	{"org.springframework.web.bind.annotation.PostMapping", []types.HTTPMethod{types.MethodPost}},
	{"org.springframework.web.bind.annotation.PutMapping", []types.HTTPMethod{types.MethodPut}},
	{"org.springframework.web.bind.annotation.DeleteMapping", []types.HTTPMethod{types.MethodDelete}},
	{"org.springframework.web.bind.annotation.PatchMapping", []types.HTTPMethod{types.MethodPatch}},
}

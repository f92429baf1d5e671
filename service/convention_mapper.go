package service

import (
	"strings"

	"apigateway/domain"
)

// conventionPrefixes is the ordered set of recognised gRPC method-name prefixes
// (component C5). Order matters only in that every prefix is tried and the method
// name must match exactly one; there is no overlap in practice since none of these
// prefixes is itself a prefix of another.
var conventionPrefixes = []string{
	"Get", "List", "Create", "Update", "Delete", "Add", "Remove", "Publish", "Unpublish",
}

const defaultAPIPrefix = "/api"

// MapMethod maps a gRPC method name to an HTTP route by naming convention, pure and
// stateless (component C5). methodName is the bare RPC name (e.g. "GetUser"); fullMethod
// is "package.Service/Method" and is copied verbatim into the returned Route.
//
// Returns (route, true) when methodName starts with a recognised prefix and the
// remaining resource name is non-empty; (zero, false) otherwise — such methods are
// silently skipped by discovery per §4.5.
func MapMethod(methodName, fullMethod string) (domain.Route, bool) {
	prefix, resource, ok := splitPrefix(methodName)
	if !ok || resource == "" {
		return domain.Route{}, false
	}
	parent, child := extractResources(prefix, resource)
	httpMethod := httpMethodFor(prefix)
	path := generatePath(parent, child, prefix)
	return domain.Route{
		HTTPMethod:  httpMethod,
		PathPattern: path,
		GRPCMethod:  fullMethod,
	}, true
}

func splitPrefix(methodName string) (prefix, resource string, ok bool) {
	for _, p := range conventionPrefixes {
		if strings.HasPrefix(methodName, p) {
			return p, methodName[len(p):], true
		}
	}
	return "", "", false
}

// splitCompoundResource splits a CamelCase resource name at the last
// lowercase→uppercase boundary: "GroupMember" -> ("Group", "Member").
func splitCompoundResource(resource string) (parent, child string, ok bool) {
	runes := []rune(resource)
	if len(runes) < 2 {
		return "", "", false
	}
	for i := len(runes) - 1; i >= 1; i-- {
		if isUpper(runes[i]) && isLower(runes[i-1]) {
			return string(runes[:i]), string(runes[i:]), true
		}
	}
	return "", "", false
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

func extractResources(prefix, resource string) (parent string, child string) {
	switch prefix {
	case "Add", "Remove":
		// Always nested: Add/Remove{Parent}{Child}; fallback treats the whole suffix as parent.
		if p, c, ok := splitCompoundResource(resource); ok {
			return strings.ToLower(p), strings.ToLower(c)
		}
		return strings.ToLower(resource), ""
	case "Get", "List":
		// Split only when a lowercase→uppercase boundary exists.
		if p, c, ok := splitCompoundResource(resource); ok {
			return strings.ToLower(p), strings.ToLower(c)
		}
		return strings.ToLower(resource), ""
	case "Publish", "Unpublish":
		return strings.ToLower(resource), ""
	default: // Create, Update, Delete
		if p, c, ok := splitCompoundResource(resource); ok {
			return strings.ToLower(p), strings.ToLower(c)
		}
		return strings.ToLower(resource), ""
	}
}

func httpMethodFor(prefix string) string {
	switch prefix {
	case "Get", "List":
		return "GET"
	case "Create":
		return "POST"
	case "Update":
		return "PUT"
	case "Delete":
		return "DELETE"
	case "Add":
		return "POST"
	case "Remove":
		return "DELETE"
	case "Publish", "Unpublish":
		return "POST"
	}
	return "GET"
}

func generatePath(parent, child, prefix string) string {
	if child == "" {
		return generateSimplePath(parent, prefix)
	}
	return generateNestedPath(parent, child, prefix)
}

func generateSimplePath(resource, prefix string) string {
	plural := pluralize(resource)
	switch prefix {
	case "Get", "Update", "Delete", "Add", "Remove":
		return defaultAPIPrefix + "/" + plural + "/:id"
	case "List":
		// resource is already plural (e.g. from "ListUsers").
		return defaultAPIPrefix + "/" + resource
	case "Create":
		return defaultAPIPrefix + "/" + plural
	case "Publish":
		return defaultAPIPrefix + "/" + plural + "/:id/publish"
	case "Unpublish":
		return defaultAPIPrefix + "/" + plural + "/:id/unpublish"
	}
	return defaultAPIPrefix + "/" + plural
}

func generateNestedPath(parent, child, prefix string) string {
	parentPlural := pluralize(parent)
	childPlural := pluralize(child)
	childIDParam := ":" + child + "_id"
	switch prefix {
	case "Add", "Create":
		return defaultAPIPrefix + "/" + parentPlural + "/:id/" + childPlural
	case "Remove", "Update", "Delete":
		return defaultAPIPrefix + "/" + parentPlural + "/:id/" + childPlural + "/" + childIDParam
	case "List":
		// child already plural, e.g. from "ListGroupMembers".
		return defaultAPIPrefix + "/" + parentPlural + "/:id/" + child
	case "Get":
		if strings.HasSuffix(child, "s") || child == childPlural {
			return defaultAPIPrefix + "/" + parentPlural + "/:id/" + child
		}
		return defaultAPIPrefix + "/" + parentPlural + "/:id/" + childPlural + "/" + childIDParam
	}
	return defaultAPIPrefix + "/" + parentPlural + "/:id/" + childPlural
}

// pluralize applies simple English pluralization rules (component C5).
func pluralize(word string) string {
	if word == "" {
		return word
	}
	if strings.HasSuffix(word, "ch") || strings.HasSuffix(word, "sh") || strings.HasSuffix(word, "ss") ||
		strings.HasSuffix(word, "x") || strings.HasSuffix(word, "z") {
		return word + "es"
	}
	if strings.HasSuffix(word, "s") {
		return word
	}
	if strings.HasSuffix(word, "y") && len(word) > 1 {
		before := rune(word[len(word)-2])
		switch before {
		case 'a', 'e', 'i', 'o', 'u':
		default:
			return word[:len(word)-1] + "ies"
		}
	}
	return word + "s"
}

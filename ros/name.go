package ros

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const (
	Sep       = "/"
	GlobalNS  = "/"
	PrivateNS = "~"
	//Remap separates the two sides of a command line remapping
	Remap = ":="
)

var (
	validName      = regexp.MustCompile(`^[~/]?([a-zA-Z]\w*/)*[a-zA-Z]\w*/?$`)
	validNamespace = regexp.MustCompile(`^/([a-zA-Z]\w*/)*$`)
)

type NameMap map[string]string

// getNamespace returns the parent namespace of name, always ending with '/'.
func getNamespace(name string) string {
	if len(name) == 0 {
		return GlobalNS
	}
	name = strings.TrimSuffix(name, Sep)
	result := name[:strings.LastIndex(name, Sep)+1]
	if len(result) == 0 {
		return GlobalNS
	}
	return result
}

// qualifyNodeName splits a node name into its namespace and base name.
func qualifyNodeName(nodeName string) (string, string, error) {
	if nodeName == "" {
		return "", "", errors.New("empty node name")
	}
	if strings.HasPrefix(nodeName, PrivateNS) {
		return "", "", errors.Errorf("node name %q should not start with '~'", nodeName)
	}
	if !isValidName(nodeName) {
		return "", "", errors.Errorf("invalid node name %q", nodeName)
	}
	components := strings.FieldsFunc(nodeName, func(r rune) bool { return r == '/' })
	last := len(components) - 1
	if last == 0 {
		return GlobalNS, components[0], nil
	}
	return GlobalNS + strings.Join(components[:last], Sep) + Sep, components[last], nil
}

func isValidName(name string) bool {
	if len(name) == 0 || name == GlobalNS || name == PrivateNS {
		return true
	}
	return validName.MatchString(name)
}

func isValidNamespace(name string) bool {
	return validNamespace.MatchString(name)
}

func isGlobalName(name string) bool {
	return strings.HasPrefix(name, GlobalNS)
}

func isPrivateName(name string) bool {
	return strings.HasPrefix(name, PrivateNS)
}

// canonicalizeName removes repeated and trailing separators.
func canonicalizeName(name string) string {
	if name == GlobalNS || name == "" {
		return name
	}
	components := strings.FieldsFunc(name, func(r rune) bool { return r == '/' })
	if isGlobalName(name) {
		return GlobalNS + strings.Join(components, Sep)
	}
	return strings.Join(components, Sep)
}

// resolveName resolves name relative to the node name nodeName, which must
// be fully qualified. Private names resolve under the node itself.
func resolveName(name string, nodeName string, mappings NameMap) string {
	var resolved string
	switch {
	case len(name) == 0:
		resolved = getNamespace(nodeName)
	case isGlobalName(name):
		resolved = canonicalizeName(name)
	case isPrivateName(name):
		resolved = canonicalizeName(nodeName + Sep + name[1:])
	default:
		resolved = canonicalizeName(getNamespace(nodeName) + name)
	}
	if remapped, ok := mappings[resolved]; ok {
		return remapped
	}
	return resolved
}

// processArguments splits command line arguments into remappings,
// private parameters (_key:=value), specials (__key:=value) and the rest.
func processArguments(args []string) (NameMap, NameMap, NameMap, []string) {
	mapping := make(NameMap)
	params := make(NameMap)
	specials := make(NameMap)
	rest := make([]string, 0)
	for _, arg := range args {
		components := strings.Split(arg, Remap)
		if len(components) != 2 {
			rest = append(rest, arg)
			continue
		}
		key, value := components[0], components[1]
		switch {
		case strings.HasPrefix(key, "__"):
			specials[key] = value
		case strings.HasPrefix(key, "_"):
			params[key[1:]] = value
		default:
			mapping[key] = value
		}
	}
	return mapping, params, specials, rest
}

// NameResolver resolves graph names for one node, applying remappings.
type NameResolver struct {
	nodeName        string
	resolvedMapping NameMap
}

func newNameResolver(nodeName string, remapping NameMap) *NameResolver {
	n := &NameResolver{
		nodeName:        nodeName,
		resolvedMapping: make(NameMap),
	}
	for k, v := range remapping {
		n.resolvedMapping[resolveName(k, nodeName, nil)] = resolveName(v, nodeName, nil)
	}
	return n
}

// remap resolves name and applies the command line remappings.
func (n *NameResolver) remap(name string) string {
	return resolveName(name, n.nodeName, n.resolvedMapping)
}

// resolve resolves name without remapping.
func (n *NameResolver) resolve(name string) string {
	return resolveName(name, n.nodeName, nil)
}

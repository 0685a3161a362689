// Package msgspec parses ROS .msg and .srv definitions and computes the
// md5sums peers compare in the TCPROS connection header.
package msgspec

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	HeaderType     = "Header"
	HeaderFullName = "std_msgs/Header"
	srvSeparator   = "---"
	constChar      = "="
	commentChar    = "#"
)

var builtinTypes = map[string]bool{
	"bool": true, "byte": true, "char": true,
	"int8": true, "uint8": true, "int16": true, "uint16": true,
	"int32": true, "uint32": true, "int64": true, "uint64": true,
	"float32": true, "float64": true, "string": true,
	"time": true, "duration": true,
}

var (
	fieldNamePattern = regexp.MustCompile(`^[A-Za-z][\w]*$`)
	typeNamePattern  = regexp.MustCompile(`^[A-Za-z][\w]*(/[A-Za-z][\w]*)?$`)
)

// SyntaxError points at the offending line of a definition.
type SyntaxError struct {
	FullName string
	Line     int
	Message  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FullName, e.Line, e.Message)
}

type Constant struct {
	Type      string
	Name      string
	ValueText string
}

type Field struct {
	// Package is empty for builtin types.
	Package  string
	Type     string
	Name     string
	IsArray  bool
	ArrayLen int
}

func (f Field) FullType() string {
	if f.Package == "" {
		return f.Type
	}
	return f.Package + "/" + f.Type
}

func (f Field) String() string {
	switch {
	case f.IsArray && f.ArrayLen >= 0:
		return fmt.Sprintf("%s[%d] %s", f.FullType(), f.ArrayLen, f.Name)
	case f.IsArray:
		return fmt.Sprintf("%s[] %s", f.FullType(), f.Name)
	default:
		return fmt.Sprintf("%s %s", f.FullType(), f.Name)
	}
}

type MsgSpec struct {
	Package   string
	ShortName string
	FullName  string
	Text      string
	Constants []Constant
	Fields    []Field
	MD5Sum    string
	md5Text   string
}

type SrvSpec struct {
	Package   string
	ShortName string
	FullName  string
	Text      string
	Request   *MsgSpec
	Response  *MsgSpec
	MD5Sum    string
}

// Registry holds loaded message specs. Nested types must be loaded before
// the messages that use them.
type Registry struct {
	mu   sync.RWMutex
	msgs map[string]*MsgSpec
}

func NewRegistry() *Registry {
	return &Registry{msgs: make(map[string]*MsgSpec)}
}

func (r *Registry) Lookup(fullName string) (*MsgSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.msgs[fullName]
	return spec, ok
}

func splitResourceName(fullName string) (string, string, error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("invalid resource name %q", fullName)
	}
	return parts[0], parts[1], nil
}

func stripComment(line string) string {
	if i := strings.Index(line, commentChar); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// parseType splits "pkg/Type[N]" into its parts, qualifying bare message
// names with pkg.
func parseType(pkg string, t string) (Field, error) {
	var f Field
	f.ArrayLen = -1
	if i := strings.Index(t, "["); i >= 0 {
		if !strings.HasSuffix(t, "]") {
			return f, errors.Errorf("bad array type %q", t)
		}
		f.IsArray = true
		if n := t[i+1 : len(t)-1]; n != "" {
			size, err := strconv.Atoi(n)
			if err != nil || size < 0 {
				return f, errors.Errorf("bad array length in %q", t)
			}
			f.ArrayLen = size
		}
		t = t[:i]
	}
	if !typeNamePattern.MatchString(t) {
		return f, errors.Errorf("invalid type %q", t)
	}
	switch {
	case builtinTypes[t]:
		f.Type = t
	case t == HeaderType:
		f.Package, f.Type = splitResourceNameMust(HeaderFullName)
	case strings.Contains(t, "/"):
		f.Package, f.Type = splitResourceNameMust(t)
	default:
		f.Package, f.Type = pkg, t
	}
	return f, nil
}

func splitResourceNameMust(fullName string) (string, string) {
	i := strings.Index(fullName, "/")
	return fullName[:i], fullName[i+1:]
}

func parseConstant(line string) (Constant, error) {
	var c Constant
	eq := strings.Index(line, constChar)
	decl := strings.Fields(line[:eq])
	if len(decl) != 2 {
		return c, errors.New("constant needs a type and a name")
	}
	c.Type, c.Name = decl[0], decl[1]
	if !builtinTypes[c.Type] || c.Type == "time" || c.Type == "duration" {
		return c, errors.Errorf("invalid constant type %q", c.Type)
	}
	if c.Type == "string" {
		// String constants run to the end of the line, comment chars included.
		c.ValueText = strings.TrimSpace(line[eq+1:])
	} else {
		c.ValueText = stripComment(line[eq+1:])
	}
	return c, nil
}

// LoadMsg parses text as the definition of fullName, computes its md5sum
// and registers it.
func (r *Registry) LoadMsg(fullName string, text string) (*MsgSpec, error) {
	pkg, shortName, err := splitResourceName(fullName)
	if err != nil {
		return nil, err
	}
	spec := &MsgSpec{Package: pkg, ShortName: shortName, FullName: fullName, Text: text}
	for i, raw := range strings.Split(text, "\n") {
		line := stripComment(raw)
		if line == "" {
			continue
		}
		if strings.Contains(line, constChar) {
			c, err := parseConstant(raw)
			if err != nil {
				return nil, &SyntaxError{fullName, i + 1, err.Error()}
			}
			spec.Constants = append(spec.Constants, c)
			continue
		}
		decl := strings.Fields(line)
		if len(decl) != 2 {
			return nil, &SyntaxError{fullName, i + 1, "field needs a type and a name"}
		}
		f, err := parseType(pkg, decl[0])
		if err != nil {
			return nil, &SyntaxError{fullName, i + 1, err.Error()}
		}
		if !fieldNamePattern.MatchString(decl[1]) {
			return nil, &SyntaxError{fullName, i + 1, fmt.Sprintf("invalid field name %q", decl[1])}
		}
		f.Name = decl[1]
		spec.Fields = append(spec.Fields, f)
	}
	if spec.md5Text, err = r.md5Text(spec); err != nil {
		return nil, err
	}
	spec.MD5Sum = md5Hex(spec.md5Text)

	r.mu.Lock()
	r.msgs[fullName] = spec
	r.mu.Unlock()
	return spec, nil
}

// LoadSrv parses a request/response pair separated by "---".
func (r *Registry) LoadSrv(fullName string, text string) (*SrvSpec, error) {
	pkg, shortName, err := splitResourceName(fullName)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(text, "\n"+srvSeparator)
	if strings.HasPrefix(text, srvSeparator) {
		parts = []string{"", strings.TrimPrefix(text, srvSeparator)}
	}
	if len(parts) != 2 {
		return nil, errors.Errorf("%s: expected exactly one %q separator", fullName, srvSeparator)
	}
	req, err := r.LoadMsg(fullName+"Request", parts[0])
	if err != nil {
		return nil, err
	}
	res, err := r.LoadMsg(fullName+"Response", parts[1])
	if err != nil {
		return nil, err
	}
	return &SrvSpec{
		Package:   pkg,
		ShortName: shortName,
		FullName:  fullName,
		Text:      text,
		Request:   req,
		Response:  res,
		MD5Sum:    md5Hex(req.md5Text + res.md5Text),
	}, nil
}

// md5Text builds the canonical text: constants, then builtin fields as
// declared and nested messages replaced by their md5sum.
func (r *Registry) md5Text(spec *MsgSpec) (string, error) {
	var buf bytes.Buffer
	for _, c := range spec.Constants {
		fmt.Fprintf(&buf, "%s %s=%s\n", c.Type, c.Name, c.ValueText)
	}
	for _, f := range spec.Fields {
		if f.Package == "" {
			buf.WriteString(f.String() + "\n")
			continue
		}
		sub, ok := r.Lookup(f.FullType())
		if !ok {
			return "", errors.Errorf("%s: message %s is not loaded", spec.FullName, f.FullType())
		}
		fmt.Fprintf(&buf, "%s %s\n", sub.MD5Sum, f.Name)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func md5Hex(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

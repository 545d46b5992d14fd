package requirement

import (
	"strings"

	"github.com/pkgforge/pkgforge/version"
)

// MarkerOperator is a PEP 508 marker comparison operator.
type MarkerOperator uint8

const (
	MarkerEqual MarkerOperator = iota
	MarkerNotEqual
	MarkerLessThan
	MarkerLessThanEqual
	MarkerGreaterThan
	MarkerGreaterThanEqual
	MarkerIn
	MarkerNotIn
	MarkerTilde
)

func (op MarkerOperator) String() string {
	switch op {
	case MarkerEqual:
		return "=="
	case MarkerNotEqual:
		return "!="
	case MarkerLessThan:
		return "<"
	case MarkerLessThanEqual:
		return "<="
	case MarkerGreaterThan:
		return ">"
	case MarkerGreaterThanEqual:
		return ">="
	case MarkerIn:
		return "in"
	case MarkerNotIn:
		return "not in"
	case MarkerTilde:
		return "~="
	default:
		return "?"
	}
}

// markerKeys lists the well-known PEP 508 marker environment keys this
// module understands; "extra" is handled specially against the caller's
// active-extras set rather than the MarkerEnvironment.
var markerKeys = map[string]bool{
	"python_version":                 true,
	"python_full_version":            true,
	"os_name":                        true,
	"sys_platform":                   true,
	"platform_machine":               true,
	"platform_python_implementation": true,
	"platform_release":               true,
	"platform_system":                true,
	"platform_version":               true,
	"implementation_name":            true,
	"implementation_version":         true,
	"extra":                          true,
}

// MarkerEnvironment holds the values of every well-known marker variable
// except "extra", which is evaluated against a caller-supplied active-extras
// set instead. This module never probes the running interpreter for these
// values; that is the excluded CLI layer's responsibility.
type MarkerEnvironment struct {
	PythonVersion                string
	PythonFullVersion            string
	OSName                       string
	SysPlatform                  string
	PlatformMachine              string
	PlatformPythonImplementation string
	PlatformRelease              string
	PlatformSystem               string
	PlatformVersion              string
	ImplementationName           string
	ImplementationVersion        string
}

// Lookup returns the environment's value for the given well-known key.
func (e MarkerEnvironment) Lookup(key string) (string, bool) {
	switch key {
	case "python_version":
		return e.PythonVersion, true
	case "python_full_version":
		return e.PythonFullVersion, true
	case "os_name":
		return e.OSName, true
	case "sys_platform":
		return e.SysPlatform, true
	case "platform_machine":
		return e.PlatformMachine, true
	case "platform_python_implementation":
		return e.PlatformPythonImplementation, true
	case "platform_release":
		return e.PlatformRelease, true
	case "platform_system":
		return e.PlatformSystem, true
	case "platform_version":
		return e.PlatformVersion, true
	case "implementation_name":
		return e.ImplementationName, true
	case "implementation_version":
		return e.ImplementationVersion, true
	default:
		return "", false
	}
}

// MarkerExpression compares a well-known environment key against a literal
// value using a marker operator. Either side of the comparison may be the
// variable; Swapped records whether the literal appeared on the left
// (e.g. "'3.7' <= python_version") so evaluation reverses the operator.
type MarkerExpression struct {
	Key     string
	Op      MarkerOperator
	Value   string
	Swapped bool
}

// markerKind discriminates the MarkerTree sum type.
type markerKind uint8

const (
	markerExpr markerKind = iota
	markerAnd
	markerOr
)

// MarkerTree is a PEP 508 marker expression tree: a leaf MarkerExpression,
// or an And/Or combination of sub-trees.
type MarkerTree struct {
	kind     markerKind
	expr     MarkerExpression
	children []MarkerTree
}

// Expression constructs a leaf marker tree node.
func Expression(e MarkerExpression) MarkerTree {
	return MarkerTree{kind: markerExpr, expr: e}
}

// And constructs a conjunction of marker trees.
func And(children ...MarkerTree) MarkerTree {
	return MarkerTree{kind: markerAnd, children: children}
}

// Or constructs a disjunction of marker trees.
func Or(children ...MarkerTree) MarkerTree {
	return MarkerTree{kind: markerOr, children: children}
}

// Evaluate evaluates the marker tree against env and the caller's set of
// active extras (requested extras considered "on" for this resolution).
func (t MarkerTree) Evaluate(env MarkerEnvironment, activeExtras map[string]bool) bool {
	switch t.kind {
	case markerExpr:
		return t.expr.evaluate(env, activeExtras)
	case markerAnd:
		for _, c := range t.children {
			if !c.Evaluate(env, activeExtras) {
				return false
			}
		}
		return true
	case markerOr:
		for _, c := range t.children {
			if c.Evaluate(env, activeExtras) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (e MarkerExpression) evaluate(env MarkerEnvironment, activeExtras map[string]bool) bool {
	var left string
	if e.Key == "extra" {
		left = ""
		if activeExtras != nil && activeExtras[e.Value] {
			left = e.Value
		}
	} else {
		left, _ = env.Lookup(e.Key)
	}

	op, value := e.Op, e.Value
	a, b := left, value
	if e.Swapped {
		a, b = value, left
	}

	switch op {
	case MarkerEqual:
		return compareMarker(a, b) == 0
	case MarkerNotEqual:
		return compareMarker(a, b) != 0
	case MarkerLessThan:
		return compareMarker(a, b) < 0
	case MarkerLessThanEqual:
		return compareMarker(a, b) <= 0
	case MarkerGreaterThan:
		return compareMarker(a, b) > 0
	case MarkerGreaterThanEqual:
		return compareMarker(a, b) >= 0
	case MarkerIn:
		return strings.Contains(b, a)
	case MarkerNotIn:
		return !strings.Contains(b, a)
	case MarkerTilde:
		va, erra := version.Parse(a)
		vb, errb := version.Parse(b)
		if erra != nil || errb != nil {
			return false
		}
		spec, err := version.NewSpecifier(version.OpCompatible, version.NewPattern(vb))
		if err != nil {
			return false
		}
		return spec.Contains(va)
	default:
		return false
	}
}

// compareMarker compares two marker operand strings using PEP 440 version
// comparison when both parse as versions, falling back to lexicographic
// string comparison otherwise.
func compareMarker(a, b string) int {
	va, erra := version.Parse(a)
	vb, errb := version.Parse(b)
	if erra == nil && errb == nil {
		return version.Compare(va, vb)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

package version

import "strings"

// Operator is a PEP 440 version comparison operator.
type Operator uint8

const (
	OpEqual          Operator = iota // ==
	OpNotEqual                       // !=
	OpLessThanEqual                  // <=
	OpGreaterEqual                   // >=
	OpLessThan                       // <
	OpGreaterThan                    // >
	OpCompatible                     // ~=
	OpArbitraryEqual                 // ===
)

func (op Operator) String() string {
	switch op {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpLessThanEqual:
		return "<="
	case OpGreaterEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpGreaterThan:
		return ">"
	case OpCompatible:
		return "~="
	case OpArbitraryEqual:
		return "==="
	default:
		return "?"
	}
}

// AllowsStar reports whether this operator may be paired with a wildcard
// version pattern (PEP 440 restricts `.*` trailing patterns to `==` and
// `!=`).
func (op Operator) AllowsStar() bool {
	return op == OpEqual || op == OpNotEqual
}

// LocalCompatible reports whether this operator may be paired with a
// version carrying a local label. PEP 440 permits local labels only in
// strict-equality comparisons; the ordered operators and `~=` must reject
// them at construction time.
func (op Operator) LocalCompatible() bool {
	return op == OpEqual || op == OpNotEqual || op == OpArbitraryEqual
}

// parseOperator reads the operator token at the start of s, returning the
// operator and the remaining unconsumed string.
func parseOperator(s string) (Operator, string, bool) {
	switch {
	case strings.HasPrefix(s, "==="):
		return OpArbitraryEqual, s[3:], true
	case strings.HasPrefix(s, "=="):
		return OpEqual, s[2:], true
	case strings.HasPrefix(s, "!="):
		return OpNotEqual, s[2:], true
	case strings.HasPrefix(s, "<="):
		return OpLessThanEqual, s[2:], true
	case strings.HasPrefix(s, ">="):
		return OpGreaterEqual, s[2:], true
	case strings.HasPrefix(s, "~="):
		return OpCompatible, s[2:], true
	case strings.HasPrefix(s, "<"):
		return OpLessThan, s[1:], true
	case strings.HasPrefix(s, ">"):
		return OpGreaterThan, s[1:], true
	default:
		return 0, s, false
	}
}

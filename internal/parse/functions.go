package parse

import "github.com/dataq-io/dataq/internal/expr"

// functionEntry binds a recognized function name to its mapped info and
// accepted argument counts.
type functionEntry struct {
	info    *expr.FunctionInfo
	arities []int
}

// maxReplaceLiteral bounds the replacement literal of replace() so a single
// request cannot force a large intermediate string allocation server-side.
const maxReplaceLiteral = 100

// functionTable resolves function-call syntax across the string, date, and
// math namespaces. Unknown names are a parse error; known names are
// arity-checked against the listed counts.
var functionTable = map[string]functionEntry{
	// String functions. These are instance methods on the subject string:
	// the parser moves the subject argument into the call's Instance slot.
	"substringof": {
		info: &expr.FunctionInfo{
			Namespace: expr.NamespaceString,
			Name:      "substringof",
			Method:    true,
			// substringof(needle, haystack) targets a contains-style match on
			// the haystack, so the argument order flips before the subject is
			// lifted out.
			ReorderArgs: func(args []expr.Expr) []expr.Expr {
				return []expr.Expr{args[1], args[0]}
			},
		},
		arities: []int{2},
	},
	"startswith": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceString, Name: "startswith", Method: true},
		arities: []int{2},
	},
	"endswith": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceString, Name: "endswith", Method: true},
		arities: []int{2},
	},
	"concat": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceString, Name: "concat", Static: true},
		arities: []int{2},
	},
	"substring": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceString, Name: "substring", Method: true},
		arities: []int{2, 3},
	},
	"replace": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceString, Name: "replace", Method: true},
		arities: []int{3},
	},
	"tolower": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceString, Name: "tolower", Method: true},
		arities: []int{1},
	},
	"toupper": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceString, Name: "toupper", Method: true},
		arities: []int{1},
	},
	"trim": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceString, Name: "trim", Method: true},
		arities: []int{1},
	},
	"indexof": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceString, Name: "indexof", Method: true},
		arities: []int{2},
	},
	// length maps to a property of the subject rather than a method; the
	// distinction only matters to consumers inspecting the mapped info.
	"length": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceString, Name: "length"},
		arities: []int{1},
	},

	// Date-part extraction.
	"day": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceDate, Name: "day", Method: true},
		arities: []int{1},
	},
	"month": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceDate, Name: "month", Method: true},
		arities: []int{1},
	},
	"year": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceDate, Name: "year", Method: true},
		arities: []int{1},
	},
	"hour": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceDate, Name: "hour", Method: true},
		arities: []int{1},
	},
	"minute": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceDate, Name: "minute", Method: true},
		arities: []int{1},
	},
	"second": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceDate, Name: "second", Method: true},
		arities: []int{1},
	},

	// Math rounding.
	"floor": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceMath, Name: "floor", Static: true},
		arities: []int{1},
	},
	"ceiling": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceMath, Name: "ceiling", Static: true},
		arities: []int{1},
	},
	"round": {
		info:    &expr.FunctionInfo{Namespace: expr.NamespaceMath, Name: "round", Static: true},
		arities: []int{1},
	},
}

func arityAllowed(entry functionEntry, n int) bool {
	for _, a := range entry.arities {
		if a == n {
			return true
		}
	}
	return false
}

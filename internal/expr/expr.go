package expr

// Expr is the interface implemented by every expression node.
// The concrete variants form a closed set; consumers dispatch with a type
// switch and treat an unknown variant as a programming error.
type Expr interface {
	isExpr()
}

// BinaryOp identifies a binary operator. The values match the grammar
// keywords so diagnostics can echo operator names verbatim.
type BinaryOp string

const (
	OpOr  BinaryOp = "or"
	OpAnd BinaryOp = "and"
	OpEq  BinaryOp = "eq"
	OpNe  BinaryOp = "ne"
	OpGt  BinaryOp = "gt"
	OpGe  BinaryOp = "ge"
	OpLt  BinaryOp = "lt"
	OpLe  BinaryOp = "le"
	OpAdd BinaryOp = "add"
	OpSub BinaryOp = "sub"
	OpMul BinaryOp = "mul"
	OpDiv BinaryOp = "div"
	OpMod BinaryOp = "mod"
)

// IsComparison reports whether the operator compares two values.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
		return true
	}
	return false
}

// IsLogical reports whether the operator is a logical connective.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// UnaryOp identifies a unary operator.
type UnaryOp string

const (
	OpNot    UnaryOp = "not"
	OpNegate UnaryOp = "-"
)

// ConvertType names a target type for an explicit conversion node.
type ConvertType string

const (
	// ConvertString casts the operand to NVARCHAR(MAX), used when a concat
	// operand is not already string-typed.
	ConvertString ConvertType = "string"

	// ConvertNumeric casts the operand to a fixed-point NUMERIC, used on the
	// left operand of mod because the engine's default float representation
	// is incompatible with native modulo.
	ConvertNumeric ConvertType = "numeric"
)

// Namespace identifies the owning namespace of a recognized function.
type Namespace string

const (
	NamespaceString Namespace = "string"
	NamespaceDate   Namespace = "date"
	NamespaceMath   Namespace = "math"
)

// FunctionInfo describes a recognized function: its owning namespace, name,
// whether it is static (free-standing) or an instance method, and an optional
// hook that reorders arguments for the call target. The hook is used once,
// for substringof, whose (needle, haystack) argument order must be flipped
// before emitting a contains-style pattern match.
type FunctionInfo struct {
	Namespace Namespace
	Name      string
	Static    bool
	Method    bool

	// ReorderArgs, when non-nil, returns the arguments in call-target order.
	// It must not mutate its input.
	ReorderArgs func(args []Expr) []Expr
}

// Constant is a literal value: string, float64, bool, time.Time, []byte,
// or nil for the null literal.
type Constant struct {
	Value any
}

// Binary applies Op to Left and Right.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Unary applies Op to Operand.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

// Member is a member access: a named property of Instance. In filter text
// the instance is the implicit query row, so a well-formed column reference
// is a Member whose Instance is Parameter.
type Member struct {
	Instance Expr
	Name     string
}

// Parameter is the implicit root of member access: the row being filtered.
type Parameter struct{}

// Call is an invocation of a recognized function. Instance is non-nil for
// instance methods and nil for static functions.
type Call struct {
	Instance Expr
	Fn       *FunctionInfo
	Args     []Expr
}

// Convert wraps Operand in an explicit conversion to Type.
type Convert struct {
	Type    ConvertType
	Operand Expr
}

func (*Constant) isExpr()  {}
func (*Binary) isExpr()    {}
func (*Unary) isExpr()     {}
func (*Member) isExpr()    {}
func (*Parameter) isExpr() {}
func (*Call) isExpr()      {}
func (*Convert) isExpr()   {}

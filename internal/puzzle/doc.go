// Package puzzle implements the Hectoc puzzle engine: six ordered digits that
// must be combined with operators and parentheses to reach 100.
//
// # Overview
//
// The package is split into four layers, leaves first:
//
//   - Evaluator (Parse, Evaluate): tokenizes and parses a candidate expression
//     into an AST with standard precedence and computes its value.
//   - Checker (Verify, Check): enforces that the candidate keeps the puzzle's
//     digits in their original order before evaluating it against the target.
//   - Solver: a bounded interval search proving that a digit sequence admits
//     at least one solution, returning a witness expression.
//   - Generator: draws tier-specific digit sequences and only releases those
//     the Solver proves solvable, falling back to a curated pool.
//
// # Candidate grammar
//
//	expr    = term  { ("+" | "-") term }
//	term    = power { ("×" | "÷") power }
//	power   = primary [ "^" power ]
//	primary = number | "(" expr ")"
//
// A number is a run of adjacent digits, so "4×25" uses the digits 4, 2 and 5.
// The ASCII aliases "*" and "/" are accepted, whitespace is ignored and input
// is NFKC-normalized first. There are no unary operators.
//
// # Errors
//
// Verify distinguishes the recoverable failure kinds with sentinel errors:
// ErrDigitOrderViolation, ErrParse (*ParseError) and ErrArithmetic
// (*ArithmeticError). A well-formed expression that evaluates to something
// other than 100 is not an error; it is simply incorrect.
package puzzle

// Package local provides tools that act on the host: arithmetic, shell
// commands and the local file system.
package local

import (
	"context"
	"math"
	"math/big"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/tools/result"
)

// MaxFactorial bounds calculator_factorial.
const MaxFactorial = 5000

// BinaryInput is the argument of the two-operand calculator tools.
type BinaryInput struct {
	A float64 `json:"a" jsonschema:"description=First operand"`
	B float64 `json:"b" jsonschema:"description=Second operand"`
}

// UnaryInput is the argument of the single-operand calculator tools.
type UnaryInput struct {
	N float64 `json:"n" jsonschema:"description=Operand"`
}

// IntegerInput is the argument of the integer calculator tools.
type IntegerInput struct {
	N int64 `json:"n" jsonschema:"description=Integer operand"`
}

// IntegerPairInput is the argument of calculator_greatest_common_divisor.
type IntegerPairInput struct {
	A int64 `json:"a" jsonschema:"description=First integer"`
	B int64 `json:"b" jsonschema:"description=Second integer"`
}

// LogarithmInput is the argument of calculator_logarithm.
type LogarithmInput struct {
	N    float64 `json:"n" jsonschema:"description=Positive number"`
	Base float64 `json:"base,omitempty" jsonschema:"description=Logarithm base; 0 means natural log,default=0"`
}

// Calculator serves the calculator_* tools.
type Calculator struct {
	logger *common.Logger
}

// NewCalculator creates the calculator tools.
func NewCalculator(logger *common.Logger) *Calculator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Calculator{logger: logger}
}

// Register adds the calculator tools to r.
func (c *Calculator) Register(r registry.Registrar) error {
	return registry.RegisterAll(r,
		named(registry.Typed(c.add), "calculator_add", "Add two numbers and return the result."),
		named(registry.Typed(c.subtract), "calculator_subtract", "Subtract the second number from the first."),
		named(registry.Typed(c.multiply), "calculator_multiply", "Multiply two numbers."),
		named(registry.Typed(c.divide), "calculator_divide", "Divide the first number by the second."),
		named(registry.Typed(c.modulo), "calculator_modulo", "Remainder of dividing the first number by the second."),
		named(registry.Typed(c.exponentiate), "calculator_exponentiate", "Raise a to the power of b."),
		named(registry.Typed(c.squareRoot), "calculator_square_root", "Square root of a non-negative number."),
		named(registry.Typed(c.factorial), "calculator_factorial", "Factorial of a non-negative integer."),
		named(registry.Typed(c.absoluteValue), "calculator_absolute_value", "Absolute value of a number."),
		named(registry.Typed(c.logarithm), "calculator_logarithm", "Logarithm of a positive number with an optional base."),
		named(registry.Typed(c.isPrime), "calculator_is_prime", "Check whether an integer is prime."),
		named(registry.Typed(c.gcd), "calculator_greatest_common_divisor", "Greatest common divisor of two integers."),
	)
}

func named(t registry.Tool, name, description string) registry.Tool {
	t.Name = name
	t.Description = description
	return t
}

func (c *Calculator) binary(op string, in BinaryInput, v float64) result.Result {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return result.Fail("Result of %s is not a finite number", op)
	}
	c.logger.Info().Str("operation", op).Float64("a", in.A).Float64("b", in.B).Msg("calculator")
	return result.OK(map[string]any{"operation": op, "a": in.A, "b": in.B, "result": v})
}

func (c *Calculator) add(_ context.Context, in BinaryInput) (result.Result, error) {
	return c.binary("addition", in, in.A+in.B), nil
}

func (c *Calculator) subtract(_ context.Context, in BinaryInput) (result.Result, error) {
	return c.binary("subtraction", in, in.A-in.B), nil
}

func (c *Calculator) multiply(_ context.Context, in BinaryInput) (result.Result, error) {
	return c.binary("multiplication", in, in.A*in.B), nil
}

func (c *Calculator) divide(_ context.Context, in BinaryInput) (result.Result, error) {
	if in.B == 0 {
		return result.Fail("Division by zero is undefined"), nil
	}
	return c.binary("division", in, in.A/in.B), nil
}

func (c *Calculator) modulo(_ context.Context, in BinaryInput) (result.Result, error) {
	if in.B == 0 {
		return result.Fail("Modulo by zero is undefined"), nil
	}
	// Floored modulo: the result takes the sign of the divisor.
	m := math.Mod(in.A, in.B)
	if m != 0 && (m < 0) != (in.B < 0) {
		m += in.B
	}
	return c.binary("modulo", in, m), nil
}

func (c *Calculator) exponentiate(_ context.Context, in BinaryInput) (result.Result, error) {
	return c.binary("exponentiation", in, math.Pow(in.A, in.B)), nil
}

func (c *Calculator) squareRoot(_ context.Context, in UnaryInput) (result.Result, error) {
	if in.N < 0 {
		return result.Fail("Square root of a negative number is undefined (use complex numbers)"), nil
	}
	return result.OK(map[string]any{"operation": "square_root", "n": in.N, "result": math.Sqrt(in.N)}), nil
}

func (c *Calculator) absoluteValue(_ context.Context, in UnaryInput) (result.Result, error) {
	return result.OK(map[string]any{"operation": "absolute_value", "n": in.N, "result": math.Abs(in.N)}), nil
}

func (c *Calculator) logarithm(_ context.Context, in LogarithmInput) (result.Result, error) {
	if in.N <= 0 {
		return result.Fail("Logarithm is only defined for positive numbers"), nil
	}
	if in.Base == 0 {
		return result.OK(map[string]any{
			"operation": "logarithm",
			"n":         in.N,
			"base":      "e (natural logarithm)",
			"result":    math.Log(in.N),
		}), nil
	}
	if in.Base < 0 || in.Base == 1 {
		return result.Fail("Logarithm base must be positive and not equal to 1"), nil
	}
	return result.OK(map[string]any{
		"operation": "logarithm",
		"n":         in.N,
		"base":      in.Base,
		"result":    math.Log(in.N) / math.Log(in.Base),
	}), nil
}

func (c *Calculator) factorial(_ context.Context, in IntegerInput) (result.Result, error) {
	if in.N < 0 {
		return result.Fail("Factorial of a negative number is undefined"), nil
	}
	if in.N > MaxFactorial {
		return result.Fail("Factorial input must not exceed %d", MaxFactorial), nil
	}
	c.logger.Info().Int64("n", in.N).Msg("calculator_factorial")
	// big.Int marshals as a JSON number of any size.
	f := new(big.Int).MulRange(1, in.N)
	return result.OK(map[string]any{"operation": "factorial", "n": in.N, "result": f}), nil
}

func (c *Calculator) isPrime(_ context.Context, in IntegerInput) (result.Result, error) {
	data := map[string]any{"operation": "prime_check", "n": in.N}
	if in.N <= 1 {
		data["is_prime"] = false
		data["reason"] = "Numbers less than or equal to 1 are not prime"
		return result.OK(data), nil
	}
	for i := int64(2); i*i <= in.N; i++ {
		if in.N%i == 0 {
			data["is_prime"] = false
			data["divisible_by"] = i
			return result.OK(data), nil
		}
	}
	data["is_prime"] = true
	return result.OK(data), nil
}

func (c *Calculator) gcd(_ context.Context, in IntegerPairInput) (result.Result, error) {
	a, b := abs64(in.A), abs64(in.B)
	for b != 0 {
		a, b = b, a%b
	}
	return result.OK(map[string]any{"operation": "gcd", "a": in.A, "b": in.B, "result": a}), nil
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

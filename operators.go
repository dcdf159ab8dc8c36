package wscript

import "math"

func applyOperator(op string, a, b Value) (Value, error) {
	switch op {
	case "+", "-", "*", "/", "%", "<", ">", "<=", ">=":
		x, err := num(op, a)
		if err != nil {
			return nil, err
		}
		y, err := num(op, b)
		if err != nil {
			return nil, err
		}
		return numericOperator(op, x, y)
	case "&&":
		if !IsTruthy(a) {
			return FALSE, nil
		}
		return b, nil
	case "||":
		if IsTruthy(a) {
			return a, nil
		}
		return b, nil
	case "==":
		return nativeBool(Equal(a, b)), nil
	case "!=":
		return nativeBool(!Equal(a, b)), nil
	}
	return nil, newError(ErrCodeUnknownOp, Pos{}, "can't apply operator %s", op)
}

func numericOperator(op string, x, y float64) (Value, error) {
	switch op {
	case "+":
		return &Number{Value: x + y}, nil
	case "-":
		return &Number{Value: x - y}, nil
	case "*":
		return &Number{Value: x * y}, nil
	case "/":
		if y == 0 {
			return nil, newError(ErrCodeDivideByZero, Pos{}, "divide by zero")
		}
		return &Number{Value: x / y}, nil
	case "%":
		if y == 0 {
			return nil, newError(ErrCodeDivideByZero, Pos{}, "divide by zero")
		}
		return &Number{Value: math.Mod(x, y)}, nil
	case "<":
		return nativeBool(x < y), nil
	case ">":
		return nativeBool(x > y), nil
	case "<=":
		return nativeBool(x <= y), nil
	default:
		return nativeBool(x >= y), nil
	}
}

func num(op string, v Value) (float64, error) {
	n, ok := v.(*Number)
	if !ok {
		return 0, newError(ErrCodeType, Pos{}, "operator %s expected number but got %s %s", op, v.Type(), v.Inspect())
	}
	return n.Value, nil
}

package gemini

import (
	"fmt"
	"math"
)

// toolDeclarations lists the arithmetic functions the model may call.
func toolDeclarations() []tool {
	numberPair := func(a, b string) map[string]any {
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				a: map[string]any{"type": "number"},
				b: map[string]any{"type": "number"},
			},
			"required": []string{a, b},
		}
	}

	return []tool{{
		FunctionDeclarations: []functionDeclaration{
			{
				Name:        "sum",
				Description: "Adds two numbers and returns the result",
				Parameters:  numberPair("a", "b"),
			},
			{
				Name:        "multiply",
				Description: "Multiplies two numbers and returns the result",
				Parameters:  numberPair("a", "b"),
			},
			{
				Name:        "power",
				Description: "Raises base to the given exponent and returns the result",
				Parameters:  numberPair("base", "exponent"),
			},
		},
	}}
}

func callTool(name string, args map[string]any) (float64, error) {
	switch name {
	case "sum":
		a, b, err := numberArgs(args, "a", "b")
		if err != nil {
			return 0, err
		}

		return a + b, nil
	case "multiply":
		a, b, err := numberArgs(args, "a", "b")
		if err != nil {
			return 0, err
		}

		return a * b, nil
	case "power":
		base, exponent, err := numberArgs(args, "base", "exponent")
		if err != nil {
			return 0, err
		}

		return math.Pow(base, exponent), nil
	default:
		return 0, fmt.Errorf("unknown tool %q", name)
	}
}

func numberArgs(args map[string]any, first, second string) (float64, float64, error) {
	a, ok := args[first].(float64)
	if !ok {
		return 0, 0, fmt.Errorf("argument %q must be a number", first)
	}

	b, ok := args[second].(float64)
	if !ok {
		return 0, 0, fmt.Errorf("argument %q must be a number", second)
	}

	return a, b, nil
}

// Package template resolves workflow parameter placeholders against the
// live execution context.
//
// Two token grammars are recognized:
//
//	{{ $json.body.<field> }}  trigger payload fields
//	{{ $node.<id>.<field> }}  results of previously executed nodes
//
// A token whose path does not resolve is left in place unchanged. Workflow
// authors rely on that leniency for partially configured nodes, so missing
// paths are never an error here.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/weftlabs/weft/pkg/models"
)

var (
	jsonBodyPattern = regexp.MustCompile(`\{\{\s*\$json\.body\.(\w+)\s*\}\}`)
	nodePattern     = regexp.MustCompile(`\{\{\s*\$node\.(\w+)\.(\w+)\s*\}\}`)
)

// Resolve substitutes every recognized token in input using the execution
// context. Exactly one pass, no recursive resolution. Safe for concurrent
// use; the context is only read.
func Resolve(input string, executionCtx *models.ExecutionContext) string {
	if input == "" || executionCtx == nil {
		return input
	}

	resolved := jsonBodyPattern.ReplaceAllStringFunc(input, func(token string) string {
		field := jsonBodyPattern.FindStringSubmatch(token)[1]

		value, ok := executionCtx.Trigger[field]
		if !ok {
			return token
		}

		return stringify(value)
	})

	return nodePattern.ReplaceAllStringFunc(resolved, func(token string) string {
		groups := nodePattern.FindStringSubmatch(token)
		nodeID, field := groups[1], groups[2]

		result, ok := executionCtx.Nodes[nodeID]
		if !ok {
			return token
		}

		value, ok := result[field]
		if !ok {
			return token
		}

		return stringify(value)
	})
}

// HasTokens reports whether input contains at least one recognized token.
func HasTokens(input string) bool {
	return jsonBodyPattern.MatchString(input) || nodePattern.MatchString(input)
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	}
}

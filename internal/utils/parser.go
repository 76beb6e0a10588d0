package utils

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"

	"gorm.io/datatypes"
)

var variablePattern = regexp.MustCompile(`{{\s*(\w+)\s*}}`)

// input is html text with variables in the form of {{variable}}
// output is the set of variable names it references
func ParseVariables(input string) map[string]struct{} {
	variables := make(map[string]struct{})
	for _, match := range variablePattern.FindAllStringSubmatch(input, -1) {
		variables[match[1]] = struct{}{}
	}
	return variables
}

// ReplaceVariables substitutes {{variable}} and {{ variable }} with values
// from variables. Unknown variables are left untouched.
func ReplaceVariables(input string, variables map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(m string) string {
		name := variablePattern.FindStringSubmatch(m)[1]
		if value, ok := variables[name]; ok {
			return value
		}
		return m
	})
}

// EscapeVariables returns a copy of variables safe to place in HTML.
func EscapeVariables(variables map[string]string) map[string]string {
	escaped := make(map[string]string, len(variables))
	for k, v := range variables {
		escaped[k] = html.EscapeString(v)
	}
	return escaped
}

// JSONToMap flattens a JSON object column into string values. Non-string
// values are rendered with their JSON text.
func JSONToMap(jsonData datatypes.JSON) (map[string]string, error) {
	result := make(map[string]string)
	if len(jsonData) == 0 {
		return result, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		return nil, err
	}

	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			result[k] = s
			continue
		}
		result[k] = fmt.Sprintf("%s", v)
	}
	return result, nil
}

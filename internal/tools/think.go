package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const ThinkDescription = "Tool for strategic reflection on research progress and decision-making. " +
	`Arguments: {"reflection": string}. Use it after each search to analyze results and plan next steps.`

// ThinkTool records a reflection so it becomes part of the agent's history.
type ThinkTool struct{}

func (ThinkTool) Invoke(_ context.Context, args map[string]interface{}) (string, error) {
	reflection, _ := args[ReflectionArg].(string)
	if strings.TrimSpace(reflection) == "" {
		return "", errors.New("missing required argument \"reflection\"")
	}
	return Reflect(reflection), nil
}

// Reflect formats an acknowledged reflection.
func Reflect(reflection string) string {
	return fmt.Sprintf("Reflection recorded: %s", reflection)
}

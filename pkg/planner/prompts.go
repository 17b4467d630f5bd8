package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ajitpratap0/mcp-gateway/pkg/client"
	"github.com/ajitpratap0/mcp-gateway/pkg/oracle"
)

const dateLayout = "2006-01-02 15:04:05"

// planSchema constrains the planning answer to an ordered array of steps
var planSchema = map[string]interface{}{
	"title":       "Order of functions and functions for resolving the user's prompt.",
	"description": "Suggest the suitable order of the functions and the functions to resolve the user's prompt.",
	"type":        "array",
	"items": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"description": "Function name.", "type": "string"},
			"task": map[string]interface{}{
				"description": "For actionable tasks that the functions can do, select a suitable one of the given functions to accurately resolve requests of the user's prompt in the suitable order.",
				"type":        "string",
			},
		},
	},
}

func dateLine(now time.Time, loc *time.Location) string {
	return fmt.Sprintf(`- If you are required to know the current date time, it's "%s". And, timezone is %s.`,
		now.In(loc).Format(dateLayout), loc.String())
}

// planInstruction lists every callable with its declaration
func planInstruction(decls []oracle.FunctionDeclaration, now time.Time, loc *time.Location) string {
	functions := make([]string, 0, len(decls))
	for _, d := range decls {
		details, err := json.Marshal(struct {
			Description string                 `json:"description,omitempty"`
			Parameters  map[string]interface{} `json:"parameters,omitempty"`
		}{d.Description, d.Parameters})
		if err != nil {
			details = []byte("{}")
		}
		functions = append(functions, fmt.Sprintf(`- Name: "%s", Details: %s`, d.Name, details))
	}
	if len(functions) == 0 {
		functions = []string{"No functions."}
	}

	lines := []string{
		"You are an expert delegator capable of assigning user requests to appropriate Model Context Protocol (MCP) servers. You create the suitable order for processing functions.",
		"<Functions>",
		"The following functions are the available functions list. The JSON schema of the value of 'Details' is the same as the schema for the function calling. From 'Details', understand the functions.",
	}
	lines = append(lines, functions...)
	lines = append(lines,
		"</Functions>",
		"<Mission>",
		"- Understand the functions and the tasks that the functions can do.",
		"- Understand requests of the user's prompt.",
		"- For actionable tasks that the functions can do, select a suitable one of the given functions for accurately resolving requests of the user's prompt in the suitable order. Always include the function name when responding to the user.",
		"If multiple processes can be run with a single function, create a suitable prompt including those processes in it.",
		"- If the suitable functions cannot be found, directly answer without using them.",
		fmt.Sprintf(`- Use "%[1]s", if all other functions except for "%[1]s" can not resolve the tasks.`, client.FuncWithoutFunction),
		fmt.Sprintf(`- In the case that you are required to confirm whether the process is required to be stopped or continued between each process, use the function "%s" just after each process.`, client.FuncCheckProcess),
		"</Mission>",
		"<Important>",
		"- Do not fabricate responses.",
		"- If you are unsure, ask the user for more details.",
		"- Suggest the suitable order of the functions to resolve the user's prompt.",
		"- When the requests include both the function that can be resolved and the function that cannot be resolved, suggest the order by including the functions.",
		`- Don't include some code in the response value like "tool_code".`,
		`- Don't suggest some code in the response value like "tool_code".`,
		dateLine(now, loc),
		"</Important>",
	)
	return strings.Join(lines, "\n")
}

// executeInstruction guides the forced function call of one step
func executeInstruction(servers []string, now time.Time, loc *time.Location) string {
	lines := []string{
		"You are an expert delegator capable of assigning user requests to appropriate functions with function calling.",
		"<Mission>",
		"- Understand the functions and the tasks that the functions can do.",
		"- Understand requests of the user's prompt.",
		"- If the function is required to provide the arguments, create the suitable arguments using the prompt and the history, and provide them to the function.",
		fmt.Sprintf(`- Use "%[1]s", if all other functions except for "%[1]s" can not resolve the tasks.`, client.FuncWithoutFunction),
		fmt.Sprintf(`- When you use the function "%s", check carefully the previous history and decide whether the process is required to be stopped or continued.`, client.FuncCheckProcess),
		"</Mission>",
		"<Important>",
		"- Do not fabricate responses.",
		dateLine(now, loc),
		"- Available MCP servers are as follows. If the information of the MCP servers is required, use this.",
		"<MCPServers>",
		"The name and version of the available MCP server are as follows.",
	}
	lines = append(lines, servers...)
	lines = append(lines, "</MCPServers>", "</Important>")
	return strings.Join(lines, "\n")
}

func goalQuery(goal string) []oracle.Part {
	return []oracle.Part{oracle.TextPart(strings.Join([]string{
		"User's prompt is as follows.",
		fmt.Sprintf("<UserPrompt>%s</UserPrompt>", goal),
	}, "\n"))}
}

func taskQuery(task string) []oracle.Part {
	return []oracle.Part{oracle.TextPart(strings.Join([]string{
		"Your task is as follows.",
		fmt.Sprintf("<Task>%s</Task>", task),
	}, "\n"))}
}

func summaryQuery(goal string, answers []string) []oracle.Part {
	return []oracle.Part{
		oracle.TextPart("Summarize answers by considering the question."),
		oracle.TextPart(fmt.Sprintf("<Question>%s</Question>", goal)),
		oracle.TextPart(fmt.Sprintf("<Answers>%s</Answers>", strings.Join(answers, "\n"))),
	}
}

package client

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/ajitpratap0/mcp-gateway/pkg/oracle"
)

// Names of the callables that are always present
const (
	FuncWithoutFunction = "without_function"
	FuncCheckProcess    = "check_process"
)

// Where a callable came from
const (
	SourceBuiltin = "builtin"
	SourceRemote  = "remote"
	SourceStatic  = "static"
	SourceUser    = "user"
)

// Invoker runs a callable with the arguments chosen by the model.
//
// Remote and static callables return the JSON-RPC response text as a
// string. Built-ins return a TaskResult.
type Invoker func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Function is a callable offered to the planner
type Function struct {
	Name        string
	Description string
	// Parameters is a JSON schema object, nil for callables without arguments
	Parameters map[string]interface{}
	Invoke     Invoker
	Source     string
	// Endpoint is the URL a remote callable talks to
	Endpoint string
}

// Declaration describes the function to the model
func (f *Function) Declaration() oracle.FunctionDeclaration {
	return oracle.FunctionDeclaration{
		Name:        f.Name,
		Description: f.Description,
		Parameters:  f.Parameters,
	}
}

// TaskResult is what a step reports back: the task it worked on and its
// result. Built-ins return one directly; map results decode into it.
type TaskResult struct {
	Task   string      `mapstructure:"task" json:"task"`
	Result interface{} `mapstructure:"result" json:"result"`
}

// ProcessCheck is the result of check_process
type ProcessCheck struct {
	StopProcess bool   `mapstructure:"stopProcess" json:"stopProcess"`
	Reason      string `mapstructure:"reason" json:"reason"`
}

// FunctionTable is an ordered set of callables keyed by name. Setting an
// existing name replaces the callable in place.
type FunctionTable struct {
	order []string
	funcs map[string]*Function
}

// NewFunctionTable creates a table holding fns in order
func NewFunctionTable(fns ...*Function) *FunctionTable {
	t := &FunctionTable{funcs: make(map[string]*Function)}
	for _, fn := range fns {
		t.Set(fn)
	}
	return t
}

// Set adds fn, replacing any callable with the same name. It reports
// whether a callable was replaced.
func (t *FunctionTable) Set(fn *Function) bool {
	if fn == nil || fn.Name == "" {
		return false
	}
	if t.funcs == nil {
		t.funcs = make(map[string]*Function)
	}
	_, replaced := t.funcs[fn.Name]
	if !replaced {
		t.order = append(t.order, fn.Name)
	}
	t.funcs[fn.Name] = fn
	return replaced
}

// Merge copies every callable of other into t. other wins on collisions.
func (t *FunctionTable) Merge(other *FunctionTable) *FunctionTable {
	if other == nil {
		return t
	}
	for _, name := range other.order {
		t.Set(other.funcs[name])
	}
	return t
}

// Get returns the callable registered under name
func (t *FunctionTable) Get(name string) (*Function, bool) {
	if t == nil {
		return nil, false
	}
	fn, ok := t.funcs[name]
	return fn, ok
}

// Names returns the callable names in insertion order
func (t *FunctionTable) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Len returns the number of callables
func (t *FunctionTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Declarations returns the model-facing description of every callable in
// insertion order
func (t *FunctionTable) Declarations() []oracle.FunctionDeclaration {
	if t == nil {
		return nil
	}
	decls := make([]oracle.FunctionDeclaration, 0, len(t.order))
	for _, name := range t.order {
		decls = append(decls, t.funcs[name].Declaration())
	}
	return decls
}

// BySource returns the sorted names of callables from the given source
func (t *FunctionTable) BySource(source string) []string {
	if t == nil {
		return nil
	}
	var names []string
	for name, fn := range t.funcs {
		if fn.Source == source {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Builtins returns the two local callables: without_function, used when no
// other callable fits, and check_process, which lets the model halt a plan.
func Builtins() *FunctionTable {
	return NewFunctionTable(
		&Function{
			Name:        FuncWithoutFunction,
			Description: `Use this if all other functions except for "without_function" can not resolve the tasks. At that time, think of a solution to the task using the knowledge you have.`,
			Parameters: objectSchema([]string{"task", "response"}, map[string]interface{}{
				"task":     stringProperty("Details of task."),
				"response": stringProperty("Response to the task."),
			}),
			Invoke: withoutFunction,
			Source: SourceBuiltin,
		},
		&Function{
			Name:        FuncCheckProcess,
			Description: `When you use the function "check_process", check carefully the previous history and decide whether the process is required to be stopped or continued. Confirm the previous history. Use this to determine whether it is necessary to stop or continue the process.`,
			Parameters: objectSchema([]string{"stopProcess", "task", "reason"}, map[string]interface{}{
				"stopProcess": map[string]interface{}{
					"type":        "boolean",
					"description": `When it is required to stop the process, set this to true. When it is not required to stop the process, set this to false. It is required to return true or false.`,
				},
				"task":   stringProperty("Details of task."),
				"reason": stringProperty("Reason for stopping the process."),
			}),
			Invoke: checkProcess,
			Source: SourceBuiltin,
		},
	)
}

func withoutFunction(_ context.Context, args map[string]interface{}) (interface{}, error) {
	var in struct {
		Task     string      `mapstructure:"task"`
		Response interface{} `mapstructure:"response"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return nil, fmt.Errorf("%s: %w", FuncWithoutFunction, err)
	}
	return TaskResult{Task: in.Task, Result: in.Response}, nil
}

func checkProcess(_ context.Context, args map[string]interface{}) (interface{}, error) {
	var in struct {
		ProcessCheck `mapstructure:",squash"`
		Task         string `mapstructure:"task"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return nil, fmt.Errorf("%s: %w", FuncCheckProcess, err)
	}
	return TaskResult{Task: in.Task, Result: in.ProcessCheck}, nil
}

// DecodeArgs decodes model arguments into out. Models sometimes send
// booleans and numbers as strings, so input is weakly typed.
func DecodeArgs(in interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// NormalizeName makes a descriptor name usable as a function name
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

func objectSchema(required []string, properties map[string]interface{}) map[string]interface{} {
	req := make([]interface{}, len(required))
	for i, r := range required {
		req[i] = r
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   req,
	}
}

func stringProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

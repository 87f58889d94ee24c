package engine

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/fabricops/fabricctl/pkg/client"
	"github.com/fabricops/fabricctl/pkg/static"
	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage/inmem"
	"github.com/open-policy-agent/opa/v1/topdown/print"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const QueryDeny = "data.fabricctl.deny"

var ErrDenied = errors.New("denied by policy")

// A request blocked by the guard policy
type DeniedError struct {
	Method  string
	Path    string
	Reasons []string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s %s %s: %s", e.Method, e.Path, ErrDenied, strings.Join(e.Reasons, "; "))
}

func (e *DeniedError) Unwrap() error {
	return ErrDenied
}

// Guard policy evaluated before every mutating request
type Engine struct {
	// Rego rules in package fabricctl
	Policy string
	// Values given with --param
	Params map[string]any
	// Claims of the caller's token
	Identity map[string]any
	// Compiled deny query
	Query *rego.PreparedEvalQuery
}

type Input struct {
	Method   string            `json:"method"`
	Path     string            `json:"path"`
	Resource map[string]string `json:"resource"`
	Body     any               `json:"body,omitempty"`
	Params   map[string]any    `json:"params"`
	Identity map[string]any    `json:"identity"`
}

type callKey struct{}

func NewEngine(policy string) *Engine {
	return &Engine{
		Policy:   policy,
		Params:   map[string]any{},
		Identity: map[string]any{},
	}
}

//go:embed fabricctl.rego
var fabricctlRego string

// Prepare the policy for evaluation. An empty policy allows everything.
func (e *Engine) Compile(ctx context.Context) error {
	if strings.TrimSpace(e.Policy) == "" {
		e.Query = nil
		return nil
	}

	c, err := ast.CompileModulesWithOpt(map[string]string{
		"fabricctl.rego": fabricctlRego,
		"policy.rego":    "package fabricctl\n" + e.Policy,
	}, ast.CompileOpts{
		EnablePrintStatements: true,
		ParserOptions: ast.ParserOptions{
			RegoVersion: ast.RegoV1,
		}},
	)
	if err != nil {
		return err
	}

	store := inmem.NewFromObject(map[string]any{
		"version": static.Version,
	})
	query, err := rego.New(
		rego.Query(QueryDeny),
		rego.Compiler(c),
		rego.Store(store),
	).PrepareForEval(ctx)
	if err != nil {
		return err
	}

	e.Query = &query
	return nil
}

// Deny messages for the input, sorted
func (e *Engine) Deny(ctx context.Context, input *Input) ([]string, error) {
	if e.Query == nil {
		return nil, nil
	}

	rs, err := e.Query.Eval(ctx,
		rego.EvalInput(input),
		rego.EvalPrintHook(e),
	)
	if err != nil {
		return nil, err
	}
	// deny is undefined when the policy has no deny rules
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(rs[0].Expressions[0].Value)
	if err != nil {
		return nil, err
	}
	var reasons []string
	if err := json.Unmarshal(data, &reasons); err != nil {
		return nil, fmt.Errorf("deny must be a set of strings: %w", err)
	}
	slices.Sort(reasons)
	return reasons, nil
}

// Authorize implements client.Authorizer
func (e *Engine) Authorize(ctx context.Context, call client.Call) error {
	if e.Query == nil {
		return nil
	}

	input := &Input{
		Method:   call.Method,
		Path:     call.Path,
		Resource: Resource(call.Path),
		Body:     call.Body,
		Params:   e.Params,
		Identity: e.Identity,
	}
	reasons, err := e.Deny(context.WithValue(ctx, callKey{}, call), input)
	if err != nil {
		return fmt.Errorf("evaluate policy: %w", err)
	}
	if len(reasons) > 0 {
		log.Debug().Str("method", call.Method).Str("path", call.Path).Strs("reasons", reasons).Msg("request denied")
		return &DeniedError{Method: call.Method, Path: call.Path, Reasons: reasons}
	}
	return nil
}

var collections = map[string]string{
	"capacities":      "capacity",
	"workspaces":      "workspace",
	"roleAssignments": "roleAssignment",
	"items":           "item",
	"environments":    "environment",
	"lakehouses":      "lakehouse",
	"tables":          "table",
	"instances":       "jobInstance",
	"schedules":       "schedule",
	"operations":      "operation",
}

// Break an API path into its resource ids, e.g.
// /workspaces/1/items/2/getDefinition is
// {kind: item, workspace: 1, item: 2, action: getDefinition}
func Resource(path string) map[string]string {
	res := map[string]string{}
	path, _, _ = strings.Cut(path, "?")
	segments := strings.Split(strings.Trim(path, "/"), "/")

	for i := 0; i < len(segments); i++ {
		seg := segments[i]
		name, isCollection := collections[seg]
		switch {
		case seg == "jobs" && i+1 < len(segments) && segments[i+1] != "instances":
			i++
			res["jobType"] = unescape(segments[i])
		case isCollection:
			res["kind"] = name
			if i+1 < len(segments) {
				i++
				res[name] = unescape(segments[i])
			}
		case seg == "jobs" || seg == "staging" || seg == "":
		default:
			res["action"] = seg
		}
	}
	return res
}

func unescape(s string) string {
	if v, err := url.PathUnescape(s); err == nil {
		return v
	}
	return s
}

// Handle print calls from Rego
func (e *Engine) Print(ctx print.Context, msg string) error {
	var line *zerolog.Event
	before, after, found := strings.Cut(msg, ": ")
	if found {
		level, err := zerolog.ParseLevel(before)
		if err != nil || level == zerolog.NoLevel {
			level = zerolog.DebugLevel
		} else {
			msg = after
		}
		line = log.WithLevel(level)
	} else {
		line = log.Debug()
	}

	if call, ok := ctx.Context.Value(callKey{}).(client.Call); ok {
		line = line.Str("call", call.Method+" "+call.Path)
	}
	line.Str("location", ctx.Location.String()).Msg(msg)
	return nil
}

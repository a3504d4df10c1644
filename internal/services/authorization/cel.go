package authorization

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// ConditionEngine evaluates stored condition predicates against the request
// context. Predicates are CEL expressions over two variables:
//
//	request — the caller-provided context map (e.g. request.owner_id)
//	subject — identifiers of the user being authorized (subject.id, subject.tenant_id)
//
// An empty expression is the unconditional predicate and always matches.
type ConditionEngine struct {
	env *cel.Env
}

// ConditionContext contains the data a predicate may reference.
type ConditionContext struct {
	Request map[string]interface{} // Caller context (e.g. request.owner_id, request.amount)
	Subject map[string]interface{} // Subject attributes (subject.id, subject.tenant_id)
}

// NewConditionEngine creates a CEL environment with the condition variables
// declared.
func NewConditionEngine() (*ConditionEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("request", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("subject", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &ConditionEngine{env: env}, nil
}

// Evaluate evaluates a condition expression with the given context.
// Returns an error for expressions that fail to compile, fail to evaluate,
// or do not produce a boolean; the resolver treats those as non-matches.
func (e *ConditionEngine) Evaluate(expression string, condCtx *ConditionContext) (bool, error) {
	if expression == "" {
		return true, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("failed to compile condition: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("failed to create condition program: %w", err)
	}

	vars := map[string]interface{}{
		"request": map[string]interface{}{},
		"subject": map[string]interface{}{},
	}
	if condCtx != nil {
		if condCtx.Request != nil {
			vars["request"] = condCtx.Request
		}
		if condCtx.Subject != nil {
			vars["subject"] = condCtx.Subject
		}
	}

	result, _, err := program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition: %w", err)
	}

	boolResult, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to boolean, got: %T", result.Value())
	}

	return boolResult, nil
}

// ValidateExpression validates a condition expression without evaluating it.
// Used at write time when a predicate is stored on an assignment or grant.
func (e *ConditionEngine) ValidateExpression(expression string) error {
	if expression == "" {
		return nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("invalid condition expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("condition expression must return boolean, got: %s", ast.OutputType())
	}

	return nil
}

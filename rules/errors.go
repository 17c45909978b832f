package rules

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyExpression   = errors.New("rules: expression must not be empty")
	ErrEngineUnavailable = errors.New("rules: engine not available in this build")
)

// EvaluationError reports a failed compile or run.
type EvaluationError struct {
	Engine string
	Expr   string
	NodeID string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	expr := "expr=<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("expr=%q", e.Expr)
	}
	if e.NodeID == "" {
		return fmt.Sprintf("rules: %s engine %s: %v", e.Engine, expr, e.Err)
	}
	return fmt.Sprintf("rules: %s engine %s node=%s: %v", e.Engine, expr, e.NodeID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapEvaluationError attaches metadata, filling only blank fields of an
// existing EvaluationError.
func wrapEvaluationError(engine, expr, nodeID string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.NodeID == "" {
			evalErr.NodeID = nodeID
		}
		return evalErr
	}
	return &EvaluationError{Engine: engine, Expr: expr, NodeID: nodeID, Err: err}
}

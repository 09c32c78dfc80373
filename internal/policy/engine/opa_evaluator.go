package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/sirupsen/logrus"

	"poolfi/backend/internal/logging"
	"poolfi/backend/internal/pool/domain"
)

const nextStatusQuery = "data.poolfi.withdrawal.next_status"

// DefaultRegoPolicy is the withdrawal state machine. An empty next_status rejects the transition.
const DefaultRegoPolicy = `package poolfi.withdrawal

default next_status := ""

next_status := "APPROVED" if {
	input.status == "PENDING"
	input.decision == "APPROVE"
	input.approvals >= input.required_approvals
}

next_status := "PENDING" if {
	input.status == "PENDING"
	input.decision == "APPROVE"
	input.approvals < input.required_approvals
}

next_status := "REJECTED" if {
	input.status == "PENDING"
	input.decision == "REJECT"
}

next_status := "RELEASED" if {
	input.status == "APPROVED"
	input.decision == "RELEASE"
}
`

// OPAEvaluator evaluates withdrawal transitions with OPA Rego.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
	log   logrus.FieldLogger
}

// NewOPAEvaluator compiles policy (DefaultRegoPolicy when empty) and prepares the next_status query.
func NewOPAEvaluator(ctx context.Context, policy string, log logrus.FieldLogger) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"withdrawal.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile withdrawal policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(nextStatusQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare withdrawal policy: %w", err)
	}
	return &OPAEvaluator{query: pq, log: logging.OrDiscard(log).WithField("component", "policy")}, nil
}

// HealthCheck compiles and evaluates the default policy in-process. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := ast.CompileModules(map[string]string{"withdrawal.rego": DefaultRegoPolicy})
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	q := rego.New(
		rego.Query(nextStatusQuery),
		rego.Compiler(compiler),
		rego.Input(buildInput(TransitionInput{
			Status:            domain.WithdrawalPending,
			Decision:          domain.DecisionReject,
			RequiredApprovals: domain.RequiredApprovals,
		})),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return errors.New("policy query returned no result")
	}
	return nil
}

// NextStatus evaluates the policy. Evaluation errors are logged and answered by BuiltinNextStatus.
func (e *OPAEvaluator) NextStatus(ctx context.Context, in TransitionInput) (domain.WithdrawalStatus, bool) {
	next, err := e.eval(ctx, in)
	if err != nil {
		e.log.WithError(err).Warn("withdrawal policy evaluation failed, using built-in rule")
		return BuiltinNextStatus(in)
	}
	if next == "" {
		return "", false
	}
	return next, true
}

func (e *OPAEvaluator) eval(ctx context.Context, in TransitionInput) (domain.WithdrawalStatus, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		return "", err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return "", errors.New("policy query returned no result")
	}
	s, ok := rs[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("next_status is %T, want string", rs[0].Expressions[0].Value)
	}
	switch next := domain.WithdrawalStatus(s); next {
	case "", domain.WithdrawalPending, domain.WithdrawalApproved, domain.WithdrawalRejected, domain.WithdrawalReleased:
		return next, nil
	default:
		return "", fmt.Errorf("unknown next_status %q", s)
	}
}

func buildInput(in TransitionInput) map[string]interface{} {
	return map[string]interface{}{
		"status":             string(in.Status),
		"decision":           string(in.Decision),
		"approvals":          in.Approvals,
		"required_approvals": in.RequiredApprovals,
	}
}

// Package policy evaluates workflow authorization through OPA. The
// default module maps actor roles to the actions they may perform;
// deployments can swap in their own module via POLICY_PATH.
package policy

import (
	"context"
	"errors"

	"avenant/internal/domain"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.avenant.authz.allow"

// defaultModule encodes the workflow roles. Promoters drive the whole
// process, architects and clients act on their approval stage, and
// contractors submit offers and sign.
const defaultModule = `package avenant.authz

default allow = false

role_actions := {
	"promoter": {
		"offer.create", "offer.read", "offer.submit",
		"offer.approve_client", "offer.approve_architect",
		"offer.reject", "offer.resubmit", "offer.comment",
		"avenant.generate", "avenant.read", "avenant.sign",
		"trail.read"
	},
	"architect": {
		"offer.read", "offer.approve_architect", "offer.reject",
		"offer.comment", "avenant.read", "avenant.sign", "trail.read"
	},
	"client": {
		"offer.read", "offer.approve_client", "offer.reject",
		"offer.comment", "avenant.read", "avenant.sign", "trail.read"
	},
	"contractor": {
		"offer.create", "offer.read", "offer.submit", "offer.resubmit",
		"offer.comment", "avenant.read", "avenant.sign", "trail.read"
	}
}

allow {
	role_actions[input.role][input.action]
}
`

type Engine struct {
	query rego.PreparedEvalQuery
}

type authzInput struct {
	Subject   string `json:"subject"`
	Role      string `json:"role"`
	ProjectID string `json:"project_id"`
	Action    string `json:"action"`
}

// NewEngine compiles the authorization policy. An empty modulePath
// uses the built-in module.
func NewEngine(ctx context.Context, modulePath string) (*Engine, error) {
	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)
	compiler := ast.NewCompiler().WithCapabilities(capabilities)

	opts := []func(*rego.Rego){
		rego.Query(defaultQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
	}
	if modulePath != "" {
		opts = append(opts, rego.Load([]string{modulePath}, nil))
	} else {
		opts = append(opts, rego.Module("authz.rego", defaultModule))
	}

	prepared, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{query: prepared}, nil
}

func (e *Engine) Allow(ctx context.Context, principal domain.Principal, action string) (bool, error) {
	if e == nil {
		return false, errors.New("policy engine is nil")
	}
	input := authzInput{
		Subject:   principal.Subject,
		Role:      string(principal.Role),
		ProjectID: principal.ProjectID,
		Action:    action,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, errors.New("policy did not return a boolean")
	}
	return allowed, nil
}

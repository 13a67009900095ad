package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/narrow/internal/decl"
)

// Policy hides members for which a Risor script evaluates truthy. The
// script runs once per member with two globals:
//
//	member: {name, kind, visibility, static, readonly, optional, tags}
//	decl:   {name, kind}
//
// tags maps each documentation tag name to its payload. A script that
// fails to evaluate fails the prune run.
type Policy struct {
	rt     *Runtime
	ctx    context.Context
	label  string
	source string
}

var _ decl.MemberPolicy = (*Policy)(nil)

// NewPolicy loads the policy script at path. ctx bounds every evaluation.
func NewPolicy(ctx context.Context, rt *Runtime, path string) (*Policy, error) {
	src, err := rt.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return &Policy{rt: rt, ctx: ctx, label: path, source: src}, nil
}

// NewPolicySource wraps inline script source.
func NewPolicySource(ctx context.Context, rt *Runtime, source string) *Policy {
	return &Policy{rt: rt, ctx: ctx, label: "<inline>", source: source}
}

// Source returns the script text, for cache keys.
func (p *Policy) Source() string {
	return p.source
}

// Hidden evaluates the script for member m of owner.
func (p *Policy) Hidden(owner *decl.Node, m *decl.Member) (bool, error) {
	globals := map[string]any{
		"member": memberObject(m),
		"decl":   declObject(owner),
	}
	result, err := p.rt.Eval(p.ctx, p.source, p.label, globals)
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, fmt.Errorf("runtime: script %s produced no value", p.label)
	}
	return result.IsTruthy(), nil
}

func memberObject(m *decl.Member) object.Object {
	tags := make(map[string]object.Object, len(m.Doc.Tags))
	for _, t := range m.Doc.Tags {
		if _, ok := tags[t.Name]; !ok {
			tags[t.Name] = object.NewString(t.Payload)
		}
	}
	visibility := string(m.Visibility)
	if visibility == "" {
		visibility = string(decl.VisibilityPublic)
	}
	return object.NewMap(map[string]object.Object{
		"name":       object.NewString(m.Name),
		"kind":       object.NewString(m.Kind.String()),
		"visibility": object.NewString(visibility),
		"static":     object.NewBool(m.Static),
		"readonly":   object.NewBool(m.Readonly),
		"optional":   object.NewBool(m.Optional),
		"tags":       object.NewMap(tags),
	})
}

func declObject(n *decl.Node) object.Object {
	return object.NewMap(map[string]object.Object{
		"name": object.NewString(n.Name),
		"kind": object.NewString(n.Kind.String()),
	})
}

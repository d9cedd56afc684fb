// Package fetchrt attaches fetch-and-reshape resolvers to schema fields
// annotated with a directive, and executes them as an executor.Runtime.
package fetchrt

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/hanpama/fetchgraph/internal/schema"
)

// Factory builds resolvers for the fields annotated with one directive.
// It is immutable once created and safe for concurrent use.
type Factory struct {
	opts *Options
}

// New creates a Factory with the given options applied over the defaults.
func New(opts ...Option) *Factory {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Factory{opts: o}
}

// Name is the directive name handled by the factory.
func (f *Factory) Name() string { return f.opts.Name }

// API is the downstream API kind.
func (f *Factory) API() API { return f.opts.API }

// Transform returns a copy of sch in which every field annotated with the
// factory's directive resolves through a downstream call. sch is not
// modified. All directive problems are reported together as a
// ConfigurationError.
func (f *Factory) Transform(sch *schema.Schema) (*schema.Schema, error) {
	if f.opts.Transport == nil {
		return nil, errors.New("fetchrt: transport not configured")
	}
	if f.opts.API != APIRest && f.opts.API != APIGraph {
		return nil, fmt.Errorf("fetchrt: unknown api %q", f.opts.API)
	}

	out := *sch
	out.Types = make(map[string]*schema.Type, len(sch.Types))
	var violations ConfigurationError
	attached := 0
	for name, t := range sch.Types {
		out.Types[name] = t
		if t.Kind != schema.TypeKindObject {
			continue
		}
		var copied *schema.Type
		for i, field := range t.Fields {
			d := field.Directive(f.opts.Name)
			if d == nil {
				continue
			}
			r, vs := f.build(t, field, d)
			if len(vs) > 0 {
				violations = append(violations, vs...)
				continue
			}
			if copied == nil {
				c := *t
				c.Fields = slices.Clone(t.Fields)
				copied = &c
				out.Types[name] = copied
			}
			nf := *field
			nf.SetResolver(r)
			copied.Fields[i] = &nf
			attached++
			f.opts.Logger.Debug("resolver attached",
				zap.String("directive", f.opts.Name),
				zap.String("field", name+"."+field.Name),
				zap.String("api", string(f.opts.API)),
			)
		}
	}
	if len(violations) > 0 {
		violations.sort()
		return nil, violations
	}
	f.opts.Logger.Info("directive applied", zap.String("directive", f.opts.Name), zap.Int("fields", attached))
	return &out, nil
}

func (f *Factory) build(t *schema.Type, field *schema.Field, d *schema.AppliedDirective) (schema.Resolver, ConfigurationError) {
	a := &directiveArgs{d: d, coord: t.Name + "." + field.Name}
	var r schema.Resolver
	if f.opts.API == APIGraph {
		r = f.newGraphResolver(a, field)
	} else {
		r = f.newRestResolver(a, field)
	}
	if len(a.violations) > 0 {
		return nil, a.violations
	}
	return r, nil
}

// Compose applies the transforms of several factories in order.
func Compose(sch *schema.Schema, factories ...*Factory) (*schema.Schema, error) {
	var err error
	for _, f := range factories {
		if sch, err = f.Transform(sch); err != nil {
			return nil, err
		}
	}
	return sch, nil
}

func mergeArgs(args, inherited map[string]any) map[string]any {
	out := make(map[string]any, len(args)+len(inherited))
	for k, v := range args {
		out[k] = v
	}
	for k, v := range inherited {
		out[k] = v
	}
	return out
}

package fetchrt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hanpama/fetchgraph/internal/argtmpl"
	"github.com/hanpama/fetchgraph/internal/argwrap"
	"github.com/hanpama/fetchgraph/internal/callctx"
	"github.com/hanpama/fetchgraph/internal/headers"
	"github.com/hanpama/fetchgraph/internal/language"
	"github.com/hanpama/fetchgraph/internal/reshape"
	"github.com/hanpama/fetchgraph/internal/schema"
	"github.com/hanpama/fetchgraph/internal/upstream"
)

type graphResolver struct {
	opts      *Options
	coord     string
	wrapper   *argwrap.Wrapper
	variables *argtmpl.Body
	keyMap    map[string]string
	policy    *headers.Policy
	plan      *reshape.Plan
	errors    *upstream.Mapper
}

type graphRequest struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName,omitempty"`
	Variables     any    `json:"variables"`
}

func (f *Factory) newGraphResolver(a *directiveArgs, field *schema.Field) *graphResolver {
	o := f.opts
	r := &graphResolver{opts: o, coord: a.coord}

	if a.has("argwrapper") {
		cfg, ok := a.raw("argwrapper").(map[string]any)
		if !ok {
			a.fail("argument %q must be an object", "argwrapper")
		} else {
			name, _ := cfg["name"].(string)
			typ, _ := cfg["type"].(string)
			w, err := argwrap.New(name, typ)
			if err != nil {
				a.fail("%v", err)
			}
			r.wrapper = w
		}
	}
	r.variables = a.body("gqlvariables")

	var err error
	if r.keyMap, err = reshape.ParseKeyMap(a.raw("responsekeyformat")); err != nil {
		a.fail("%v", err)
	}
	contentType := a.str("contenttype", o.ContentType)
	if contentType == "" {
		contentType = "application/json"
	}
	r.policy = headers.NewPolicy(contentType, o.Headers, a.headerMap("headers"), o.ForwardHeaders, a.strList("forwardheaders"))

	roots := o.ResultRoot
	if a.has("resultroot") {
		if roots, err = reshape.ParseRoots(a.raw("resultroot")); err != nil {
			a.fail("%v", err)
		}
	}
	if r.plan, err = reshape.NewPlan(roots, nil, nil); err != nil {
		a.fail("%v", err)
	}
	if len(roots) == 0 {
		r.plan = nil
	}
	if r.errors, err = upstream.NewMapper(o.ErrorFactory, a.str("errorroot", o.ErrorRoot)); err != nil {
		a.fail("%v", err)
	}
	if o.BaseURL == "" {
		a.fail("graph directives require a base URL")
	}
	return r
}

func (r *graphResolver) Resolve(ctx context.Context, p schema.ResolveParams) (schema.Resolved, error) {
	if p.Operation == nil {
		return schema.Resolved{}, fmt.Errorf("%s: no operation to forward", r.coord)
	}
	args := mergeArgs(p.Args, p.Inherited)

	op := p.Operation
	if r.wrapper != nil {
		rewritten, err := r.wrapper.Rewrite(op, p.Field.Name, p.ResponseName)
		if err != nil {
			return schema.Resolved{}, ConfigurationError{{Message: r.coord + ": " + err.Error()}}
		}
		op = rewritten
	}

	var variables any = p.Variables
	if r.variables != nil {
		rendered, err := r.variables.Render(args)
		if err != nil {
			return schema.Resolved{}, ConfigurationError{{Message: r.coord + ": " + err.Error()}}
		}
		variables = rendered
	}
	if r.wrapper != nil {
		variables = r.wrapper.Variables(variables)
	}

	body, err := json.Marshal(graphRequest{
		Query:         language.PrintOperation(op, p.Fragments),
		OperationName: op.Name,
		Variables:     variables,
	})
	if err != nil {
		return schema.Resolved{}, fmt.Errorf("%s: encode graph request: %w", r.coord, err)
	}

	caller := callctx.From(ctx)
	req := &Request{
		Method:    http.MethodPost,
		URL:       r.opts.BaseURL,
		Header:    r.policy.Outbound(caller.InboundHeader()),
		Body:      body,
		Directive: r.opts.Name,
		Field:     r.coord,
	}
	r.opts.Logger.Debug("downstream graph request",
		zap.String("directive", r.opts.Name),
		zap.String("field", r.coord),
		zap.String("url", req.URL),
		zap.String("operation", op.Name),
		zap.Strings("forward", r.policy.ForwardList()),
	)
	resp, err := r.opts.Transport.Do(ctx, req)
	if err != nil {
		return schema.Resolved{}, &upstream.TransportError{Method: req.Method, URL: req.URL, Err: err}
	}
	caller.Propagate(resp.Header, r.opts.ResponseHeaders)

	decoded, err := reshape.Decode(bytes.TrimSpace(resp.Body))
	if err != nil {
		if !upstream.OK(resp.Status) {
			return schema.Resolved{}, r.errors.FromResponse(resp.Status, resp.Header, resp.Body)
		}
		return schema.Resolved{}, r.errors.ParseFailure(resp.Status, resp.Header.Get("Content-Type"), err)
	}
	envelope, _ := decoded.(map[string]any)
	if errs, ok := envelope["errors"].([]any); ok && len(errs) > 0 {
		err := r.errors.FromGraph(resp.Status, errs)
		r.opts.Logger.Debug("downstream graph errors", zap.String("field", r.coord), zap.Int("count", len(errs)))
		return schema.Resolved{}, err
	}
	if !upstream.OK(resp.Status) {
		return schema.Resolved{}, r.errors.FromResponse(resp.Status, resp.Header, resp.Body)
	}

	data := envelope["data"]
	if len(r.keyMap) > 0 {
		data = reshape.MapKeysDeep(data, r.keyMap)
	}
	v := argwrap.Unwrap(data, r.wrapper, p.Field.Name, p.ResponseName)
	if r.plan != nil && v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			return schema.Resolved{}, fmt.Errorf("%s: %w", r.coord, err)
		}
		if v, err = r.plan.Apply(raw); err != nil {
			return schema.Resolved{}, fmt.Errorf("%s: %w", r.coord, err)
		}
	}
	return schema.Resolved{Value: v, Args: args}, nil
}

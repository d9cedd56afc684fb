package fetchrt

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hanpama/fetchgraph/internal/argtmpl"
	"github.com/hanpama/fetchgraph/internal/callctx"
	"github.com/hanpama/fetchgraph/internal/codec"
	"github.com/hanpama/fetchgraph/internal/headers"
	"github.com/hanpama/fetchgraph/internal/reshape"
	"github.com/hanpama/fetchgraph/internal/schema"
	"github.com/hanpama/fetchgraph/internal/upstream"
)

type restResolver struct {
	opts        *Options
	coord       string
	url         string
	method      string
	body        *argtmpl.Body
	contentType string
	text        bool
	policy      *headers.Policy
	plan        *reshape.Plan
	errors      *upstream.Mapper
}

func (f *Factory) newRestResolver(a *directiveArgs, field *schema.Field) *restResolver {
	o := f.opts
	r := &restResolver{opts: o, coord: a.coord}

	path := a.str("path", "")
	if path == "" {
		a.fail("argument %q is required", "path")
	}
	r.url = argtmpl.JoinURL(o.BaseURL, path)
	r.method = a.method()
	r.body = a.body("postbody")
	r.contentType = a.str("contenttype", o.ContentType)
	if r.contentType == "" {
		r.contentType = "application/json"
	}
	r.text = o.NoContentType != "" && field.Type.Kind == schema.TypeRefKindNamed && field.Type.Named == o.NoContentType
	r.policy = headers.NewPolicy(r.contentType, o.Headers, a.headerMap("headers"), o.ForwardHeaders, a.strList("forwardheaders"))

	roots := o.ResultRoot
	if a.has("resultroot") {
		var err error
		if roots, err = reshape.ParseRoots(a.raw("resultroot")); err != nil {
			a.fail("%v", err)
		}
	}
	setters, err := reshape.ParseSetters(a.raw("setters"))
	if err != nil {
		a.fail("%v", err)
	}
	if r.plan, err = reshape.NewPlan(roots, setters, nil); err != nil {
		a.fail("%v", err)
	}
	if r.errors, err = upstream.NewMapper(o.ErrorFactory, a.str("errorroot", o.ErrorRoot)); err != nil {
		a.fail("%v", err)
	}
	return r
}

func (r *restResolver) Resolve(ctx context.Context, p schema.ResolveParams) (schema.Resolved, error) {
	args := mergeArgs(p.Args, p.Inherited)
	caller := callctx.From(ctx)
	req := &Request{
		Method:    r.method,
		URL:       argtmpl.RenderPath(r.url, args),
		Header:    r.policy.Outbound(caller.InboundHeader()),
		Directive: r.opts.Name,
		Field:     r.coord,
	}

	if r.method != http.MethodGet && r.method != http.MethodHead {
		if err := r.encodeBody(req, args); err != nil {
			return schema.Resolved{}, err
		}
	}
	if caller != nil && codec.IsText(caller.ContentType) {
		p := codec.Passthrough(caller.Body, caller.ContentType)
		req.Body = p.Body
		req.Header = headers.WithContentType(req.Header, p.ContentType)
	}

	r.opts.Logger.Debug("downstream request",
		zap.String("directive", r.opts.Name),
		zap.String("field", r.coord),
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Strings("forward", r.policy.ForwardList()),
	)
	resp, err := r.opts.Transport.Do(ctx, req)
	if err != nil {
		return schema.Resolved{}, &upstream.TransportError{Method: req.Method, URL: req.URL, Err: err}
	}
	if !upstream.OK(resp.Status) {
		err := r.errors.FromResponse(resp.Status, resp.Header, resp.Body)
		r.opts.Logger.Debug("downstream error", zap.String("field", r.coord), zap.Int("status", resp.Status), zap.Error(err))
		return schema.Resolved{}, err
	}
	caller.Propagate(resp.Header, r.opts.ResponseHeaders)

	if r.text {
		if len(resp.Body) == 0 {
			return schema.Resolved{Args: args}, nil
		}
		return schema.Resolved{Value: string(resp.Body), Args: args}, nil
	}
	v, err := r.plan.Apply(resp.Body)
	if err != nil {
		if errors.Is(err, reshape.ErrInvalidJSON) {
			return schema.Resolved{}, r.errors.ParseFailure(resp.Status, resp.Header.Get("Content-Type"), err)
		}
		return schema.Resolved{}, err
	}
	return schema.Resolved{Value: v, Args: args}, nil
}

func (r *restResolver) encodeBody(req *Request, args map[string]any) error {
	var body any = argtmpl.AutoBody(args)
	if r.body != nil {
		rendered, err := r.body.Render(args)
		if err != nil {
			return ConfigurationError{{Message: r.coord + ": " + err.Error()}}
		}
		body = rendered
	}
	payload, err := codec.Encode(body, r.contentType)
	if err != nil {
		return ConfigurationError{{Message: r.coord + ": " + err.Error()}}
	}
	req.Body = payload.Body
	if payload.ContentType != r.contentType {
		req.Header = headers.WithContentType(req.Header, payload.ContentType)
	}
	return nil
}

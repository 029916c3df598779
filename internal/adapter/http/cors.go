package httpadapter

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

type corsPolicy struct {
	origin  string
	methods string
	headers string
	maxAge  string
}

func newCORSPolicy(origin string) corsPolicy {
	if origin == "" {
		origin = "*"
	}
	return corsPolicy{
		origin:  origin,
		methods: "GET,POST,DELETE,OPTIONS",
		headers: "Content-Type,X-Owner-ID",
		maxAge:  "600",
	}
}

func (p corsPolicy) apply(ctx *app.RequestContext) {
	h := &ctx.Response.Header
	h.Set("Access-Control-Allow-Origin", p.origin)
	h.Set("Access-Control-Allow-Methods", p.methods)
	h.Set("Access-Control-Allow-Headers", p.headers)
	h.Set("Access-Control-Max-Age", p.maxAge)
	if p.origin != "*" {
		h.Set("Vary", "Origin")
	}
}

// middleware answers preflight requests itself and decorates the rest.
func (p corsPolicy) middleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		p.apply(ctx)
		if string(ctx.Method()) == consts.MethodOptions {
			ctx.AbortWithStatus(consts.StatusNoContent)
			return
		}
		ctx.Next(c)
	}
}

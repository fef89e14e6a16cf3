package middleware

import (
	"testing"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	httpctx "medadherence/internal/http/ctx"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(func(ctx *fasthttp.RequestCtx) {
		seen, _ = httpctx.RequestIDFromCtx(ctx)
	})

	var ctx fasthttp.RequestCtx
	h(&ctx)
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("generated id %q is not a UUID: %v", seen, err)
	}
	if got := string(ctx.Response.Header.Peek(httpctx.RequestIDHeader)); got != seen {
		t.Fatalf("response header = %q, want %q", got, seen)
	}

	var ctx2 fasthttp.RequestCtx
	ctx2.Request.Header.Set(httpctx.RequestIDHeader, "abc-123")
	h(&ctx2)
	if seen != "abc-123" {
		t.Fatalf("propagated id = %q", seen)
	}
}

func TestCORS(t *testing.T) {
	called := false
	next := func(ctx *fasthttp.RequestCtx) { called = true }

	var pre fasthttp.RequestCtx
	pre.Request.Header.SetMethod(fasthttp.MethodOptions)
	CORS("*")(next)(&pre)
	if called || pre.Response.StatusCode() != fasthttp.StatusNoContent {
		t.Fatalf("preflight: called=%v status=%d", called, pre.Response.StatusCode())
	}
	if string(pre.Response.Header.Peek("Access-Control-Allow-Origin")) != "*" {
		t.Fatal("missing allow-origin")
	}

	var other fasthttp.RequestCtx
	other.Request.Header.SetMethod(fasthttp.MethodGet)
	other.Request.Header.Set("Origin", "https://evil.example")
	CORS("https://app.example")(next)(&other)
	if !called || len(other.Response.Header.Peek("Access-Control-Allow-Origin")) != 0 {
		t.Fatalf("foreign origin: called=%v header=%q", called, other.Response.Header.Peek("Access-Control-Allow-Origin"))
	}

	called = false
	var off fasthttp.RequestCtx
	off.Request.Header.SetMethod(fasthttp.MethodOptions)
	CORS("")(next)(&off)
	if !called {
		t.Fatal("disabled CORS should pass through")
	}
}

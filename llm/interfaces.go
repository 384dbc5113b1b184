package llm

import (
	"context"
)

// Adapter translates provider-neutral chat requests into one backend's wire format.
// Each Send performs exactly one network round trip and never retries.
type Adapter interface {
	// Send delivers the request and returns the normalized reply.
	Send(ctx context.Context, req *Request) (*Result, error)

	// Provider returns the backend tag this adapter talks to.
	Provider() Provider
}

// AdapterFactory builds the adapter for a resolved profile.
type AdapterFactory func(profile ModelProfile) (Adapter, error)

// Middleware provides hooks for decorating Adapter calls.
type Middleware interface {
	// BeforeSend is called before the request is sent.
	// It can modify the request or return an error to abort it.
	BeforeSend(ctx context.Context, req *Request) (*Request, error)

	// AfterSend is called after a successful reply.
	AfterSend(ctx context.Context, req *Request, res *Result) (*Result, error)

	// OnError is called when the send fails.
	// It can return a modified error or nil to use the original error.
	OnError(ctx context.Context, req *Request, err error) error
}

// MiddlewareFunc is a function type that implements Middleware.
type MiddlewareFunc struct {
	BeforeSendFunc func(ctx context.Context, req *Request) (*Request, error)
	AfterSendFunc  func(ctx context.Context, req *Request, res *Result) (*Result, error)
	OnErrorFunc    func(ctx context.Context, req *Request, err error) error
}

// BeforeSend calls the BeforeSendFunc if set.
func (f MiddlewareFunc) BeforeSend(ctx context.Context, req *Request) (*Request, error) {
	if f.BeforeSendFunc != nil {
		return f.BeforeSendFunc(ctx, req)
	}
	return req, nil
}

// AfterSend calls the AfterSendFunc if set.
func (f MiddlewareFunc) AfterSend(ctx context.Context, req *Request, res *Result) (*Result, error) {
	if f.AfterSendFunc != nil {
		return f.AfterSendFunc(ctx, req, res)
	}
	return res, nil
}

// OnError calls the OnErrorFunc if set.
func (f MiddlewareFunc) OnError(ctx context.Context, req *Request, err error) error {
	if f.OnErrorFunc != nil {
		return f.OnErrorFunc(ctx, req, err)
	}
	return err
}

// WrapWithMiddleware wraps an Adapter with middleware and returns a new Adapter.
func WrapWithMiddleware(adapter Adapter, middleware ...Middleware) Adapter {
	if len(middleware) == 0 {
		return adapter
	}
	return &adapterWithMiddleware{
		adapter:    adapter,
		middleware: middleware,
	}
}

type adapterWithMiddleware struct {
	adapter    Adapter
	middleware []Middleware
}

// Send implements Adapter.Send with middleware support.
func (a *adapterWithMiddleware) Send(ctx context.Context, req *Request) (*Result, error) {
	for _, mw := range a.middleware {
		var err error
		req, err = mw.BeforeSend(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	res, err := a.adapter.Send(ctx, req)
	if err != nil {
		for _, mw := range a.middleware {
			if mwErr := mw.OnError(ctx, req, err); mwErr != nil {
				err = mwErr
			}
		}
		return nil, err
	}

	// AfterSend runs in reverse order
	for i := len(a.middleware) - 1; i >= 0; i-- {
		res, err = a.middleware[i].AfterSend(ctx, req, res)
		if err != nil {
			return nil, err
		}
	}

	return res, nil
}

// Provider implements Adapter.Provider.
func (a *adapterWithMiddleware) Provider() Provider {
	return a.adapter.Provider()
}

var _ Adapter = (*adapterWithMiddleware)(nil)

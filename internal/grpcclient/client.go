package grpcclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"time"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"github.com/jhump/protoreflect/dynamic/grpcdynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/quicpulse/quicpulse/internal/model"
)

// DialOptions mirrors the unified SSL settings (spec §4.4.4's "apply the TLS
// config from the unified SSL settings") and the fixed keepalive policy.
type DialOptions struct {
	TLS    *tls.Config // nil disables TLS (plaintext channel)
	Target string
}

// Dial opens a channel with a 60s TCP keepalive and no endpoint-level
// deadline (spec §4.4.4): "timeout applies only at the unary request level,
// never at connection level — would kill long streams."
func Dial(ctx context.Context, opts DialOptions) (*grpc.ClientConn, error) {
	var creds credentials.TransportCredentials
	if opts.TLS != nil {
		creds = credentials.NewTLS(opts.TLS)
	} else {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.NewClient(opts.Target,
		grpc.WithTransportCredentials(creds),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    60 * time.Second,
			Timeout: 20 * time.Second,
		}),
	)
	if err != nil {
		return nil, model.Errorf(model.KindGrpc, err, "dial %q", opts.Target)
	}
	return conn, nil
}

// Client wraps a channel plus the currently-known schema for Invoke/Stream calls.
type Client struct {
	Conn   *grpc.ClientConn
	Schema *Schema
}

// InvokeUnary implements spec §4.4.4's unary mode: single request, single
// response, with the request-level timeout applied only here.
func (c *Client) InvokeUnary(ctx context.Context, md *desc.MethodDescriptor, body any, timeout time.Duration) (any, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reqMsg, err := EncodeJSON(md.GetInputType(), body)
	if err != nil {
		return nil, err
	}

	stub := grpcdynamic.NewStub(c.Conn)
	resp, err := stub.InvokeRpc(ctx, md, reqMsg)
	if err != nil {
		return nil, model.Errorf(model.KindGrpc, err, "invoke %s", md.GetFullyQualifiedName())
	}

	out := dynamic.NewMessage(md.GetOutputType())
	if err := out.ConvertFrom(resp); err != nil {
		return nil, model.Errorf(model.KindGrpc, err, "decode response for %s", md.GetFullyQualifiedName())
	}
	return DecodeJSON(out)
}

// InvokeServerStream implements the server-streaming mode: single request,
// a lazy sequence of decoded JSON values delivered to onMessage until the
// stream closes.
func (c *Client) InvokeServerStream(ctx context.Context, md *desc.MethodDescriptor, body any, onMessage func(any) error) error {
	reqMsg, err := EncodeJSON(md.GetInputType(), body)
	if err != nil {
		return err
	}

	stub := grpcdynamic.NewStub(c.Conn)
	stream, err := stub.InvokeRpcServerStream(ctx, md, reqMsg)
	if err != nil {
		return model.Errorf(model.KindGrpc, err, "open server stream %s", md.GetFullyQualifiedName())
	}

	for {
		resp, err := stream.RecvMsg()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return model.Errorf(model.KindGrpc, err, "server stream %s", md.GetFullyQualifiedName())
		}
		out := dynamic.NewMessage(md.GetOutputType())
		if err := out.ConvertFrom(resp); err != nil {
			return model.Errorf(model.KindGrpc, err, "decode stream message")
		}
		decoded, err := DecodeJSON(out)
		if err != nil {
			return err
		}
		if err := onMessage(decoded); err != nil {
			return err
		}
	}
}

// InvokeClientStream implements the client-streaming mode: a lazy sequence
// of JSON values (spec §4.4.4: "read from NDJSON on stdin") sent one at a
// time via nextMessage until it returns (nil, false), then a single response.
func (c *Client) InvokeClientStream(ctx context.Context, md *desc.MethodDescriptor, nextMessage func() (any, bool, error)) (any, error) {
	stub := grpcdynamic.NewStub(c.Conn)
	stream, err := stub.InvokeRpcClientStream(ctx, md)
	if err != nil {
		return nil, model.Errorf(model.KindGrpc, err, "open client stream %s", md.GetFullyQualifiedName())
	}

	for {
		body, ok, err := nextMessage()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		reqMsg, err := EncodeJSON(md.GetInputType(), body)
		if err != nil {
			return nil, err
		}
		if _, err := stream.SendMsg(reqMsg); err != nil {
			return nil, model.Errorf(model.KindGrpc, err, "send client-stream message")
		}
	}

	resp, err := stream.CloseAndReceive()
	if err != nil {
		return nil, model.Errorf(model.KindGrpc, err, "close client stream %s", md.GetFullyQualifiedName())
	}
	out := dynamic.NewMessage(md.GetOutputType())
	if err := out.ConvertFrom(resp); err != nil {
		return nil, model.Errorf(model.KindGrpc, err, "decode client-stream response")
	}
	return DecodeJSON(out)
}

// InvokeBidiStream implements the bidirectional mode: two lazy sequences
// running concurrently (spec §4.4.4). The send side runs in its own
// goroutine; received messages are delivered to onMessage on the caller's
// goroutine until the stream closes or ctx is canceled.
func (c *Client) InvokeBidiStream(ctx context.Context, md *desc.MethodDescriptor, nextMessage func() (any, bool, error), onMessage func(any) error) error {
	stub := grpcdynamic.NewStub(c.Conn)
	stream, err := stub.InvokeRpcBidiStream(ctx, md)
	if err != nil {
		return model.Errorf(model.KindGrpc, err, "open bidi stream %s", md.GetFullyQualifiedName())
	}

	sendErrCh := make(chan error, 1)
	go func() {
		defer func() {
			_ = stream.CloseSend()
		}()
		for {
			body, ok, err := nextMessage()
			if err != nil {
				sendErrCh <- err
				return
			}
			if !ok {
				sendErrCh <- nil
				return
			}
			reqMsg, err := EncodeJSON(md.GetInputType(), body)
			if err != nil {
				sendErrCh <- err
				return
			}
			if _, err := stream.SendMsg(reqMsg); err != nil {
				sendErrCh <- model.Errorf(model.KindGrpc, err, "send bidi message")
				return
			}
		}
	}()

	for {
		resp, err := stream.RecvMsg()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return model.Errorf(model.KindGrpc, err, "recv bidi message")
		}
		out := dynamic.NewMessage(md.GetOutputType())
		if err := out.ConvertFrom(resp); err != nil {
			return model.Errorf(model.KindGrpc, err, "decode bidi message")
		}
		decoded, err := DecodeJSON(out)
		if err != nil {
			return err
		}
		if err := onMessage(decoded); err != nil {
			return err
		}
	}

	if sendErr := <-sendErrCh; sendErr != nil {
		return sendErr
	}
	return nil
}

// StreamKind reports which of the four modes a method descriptor uses,
// selected from its (clientStreaming, serverStreaming) bits (spec §4.4.4).
type StreamKind int

const (
	Unary StreamKind = iota
	ServerStream
	ClientStream
	BidiStream
)

func KindOf(md *desc.MethodDescriptor) StreamKind {
	switch {
	case md.IsClientStreaming() && md.IsServerStreaming():
		return BidiStream
	case md.IsServerStreaming():
		return ServerStream
	case md.IsClientStreaming():
		return ClientStream
	default:
		return Unary
	}
}

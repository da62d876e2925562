/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package router

import (
	"bytes"
	"io"
	"net/url"
	"time"

	"github.com/pierrec/lz4/v3"
	"github.com/pkg/errors"
	"github.com/skal-io/skal/cmn"
	"github.com/skal-io/skal/msg"
	"github.com/valyala/fasthttp"
)

// messages above this size are lz4-compressed on the wire
const compressThreshold = 4 * 1024

const (
	hdrEncoding = "X-Skal-Encoding"
	encLZ4      = "lz4"

	sendPath    = "/send"
	deliverPath = "/deliver"
)

// httpPort forwards serialized messages to the daemon over HTTP.
type httpPort struct {
	uri    string
	client *fasthttp.Client
}

// NewHTTPPort validates the daemon URL and returns an outbound port.
func NewHTTPPort(rawURL string) (Port, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Wrapf(cmn.ErrBadURL, "%q", rawURL)
	}
	return &httpPort{
		uri: u.Scheme + "://" + u.Host + sendPath,
		client: &fasthttp.Client{
			MaxIdleConnDuration: 30 * time.Second,
		},
	}, nil
}

func (hp *httpPort) Send(m *msg.Msg) error {
	body := msg.Encode(m)
	m.Close()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.SetRequestURI(hp.uri)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/octet-stream")
	if len(body) > compressThreshold {
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return errors.Wrap(err, "lz4")
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, "lz4")
		}
		body = buf.Bytes()
		req.Header.Set(hdrEncoding, encLZ4)
	}
	req.SetBody(body)

	if err := hp.client.Do(req, resp); err != nil {
		return errors.Wrapf(err, "POST %s", hp.uri)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return errors.Errorf("POST %s: status %d", hp.uri, code)
	}
	return nil
}

func (hp *httpPort) Close() error {
	hp.client.CloseIdleConnections()
	return nil
}

// NewDeliverServer returns a server for the inbound half: the daemon
// POSTs frames to /deliver and they re-enter the local send path.
func NewDeliverServer() *fasthttp.Server {
	return &fasthttp.Server{
		Name: "skal-deliver",
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) != deliverPath || !ctx.IsPost() {
				ctx.SetStatusCode(fasthttp.StatusNotFound)
				return
			}
			body := ctx.PostBody()
			if string(ctx.Request.Header.Peek(hdrEncoding)) == encLZ4 {
				zr := lz4.NewReader(bytes.NewReader(body))
				raw, err := io.ReadAll(zr)
				if err != nil {
					ctx.SetStatusCode(fasthttp.StatusBadRequest)
					return
				}
				body = raw
			}
			Deliver(body)
			ctx.SetStatusCode(fasthttp.StatusOK)
		},
	}
}

package authpipe

import (
	"context"
	"testing"

	"github.com/MrEthical07/authpipe/session"
	"github.com/MrEthical07/authpipe/transport"
)

func benchClient(b *testing.B) *Client {
	b.Helper()
	body := []byte(`{"code":200,"data":{"items":[],"total":0,"current":1,"pageSize":20}}`)
	tr := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: 200, Body: body}, nil
	})
	c, err := New().
		WithTransport(tr).
		WithSessionStore(session.NewMemoryStore(session.Session{AccessToken: "T1", RefreshToken: "R1", LoggedIn: true})).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	b.Cleanup(c.Close)
	return c
}

func BenchmarkSend(b *testing.B) {
	c := benchClient(b)
	spec := CallSpec{Method: "GET", Path: "/movie/list", Params: map[string]string{"page": "1"}}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Send(ctx, spec); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSendParallel(b *testing.B) {
	c := benchClient(b)
	spec := CallSpec{Method: "GET", Path: "/movie/list"}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := c.Send(ctx, spec); err != nil {
				b.Fatal(err)
			}
		}
	})
}

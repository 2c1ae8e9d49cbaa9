// Package watch is a terminal client for the notification stream: it
// subscribes with an access token, prints every event as a JSON line and
// keeps the connection alive with pong frames.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"golang.org/x/term"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	gs "github.com/dmitrijs2005/sharekeeper/internal/server/grpc"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// PromptToken asks for the access token on the terminal without echo.
func PromptToken(w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Access token: "); err != nil {
		return "", err
	}
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(b)
	return strings.TrimSpace(string(b)), nil
}

type Client struct {
	endpointURL  string
	accessToken  string
	pongInterval time.Duration
	dialOpts     []grpc.DialOption
	conn         *grpc.ClientConn
}

func NewClient(endpointURL, accessToken string, pongInterval time.Duration, opts ...grpc.DialOption) *Client {
	if pongInterval <= 0 {
		pongInterval = 10 * time.Second
	}
	return &Client{endpointURL: endpointURL, accessToken: accessToken, pongInterval: pongInterval, dialOpts: opts}
}

func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {

	ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, c.accessToken)

	return streamer(ctx, desc, cc, method, opts...)
}

func (c *Client) Connect() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStreamInterceptor(c.accessTokenInterceptor),
	}, c.dialOpts...)

	conn, err := grpc.NewClient(c.endpointURL, opts...)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Watch streams events to out until ctx is done or the server ends the
// stream. Pings are answered immediately and not printed.
func (c *Client) Watch(ctx context.Context, out io.Writer) error {
	if c.conn == nil {
		return errors.New("not connected")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := gs.Subscribe(ctx, c.conn)
	if err != nil {
		return err
	}

	var sendMu sync.Mutex
	pong := func() error {
		frame, err := structpb.NewStruct(map[string]any{"type": "pong"})
		if err != nil {
			return err
		}
		sendMu.Lock()
		defer sendMu.Unlock()
		return stream.Send(frame)
	}

	go func() {
		t := time.NewTicker(c.pongInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := pong(); err != nil {
					return
				}
			}
		}
	}()

	enc := json.NewEncoder(out)
	for {
		frame, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		fields := frame.AsMap()
		if fields["type"] == models.EventPing {
			if err := pong(); err != nil {
				return err
			}
			continue
		}
		if err := enc.Encode(fields); err != nil {
			return err
		}
	}
}

package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls catalog.BookingHandler over an existing connection.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) GetEventInformation(ctx context.Context, req *EventInformationRequest, opts ...grpc.CallOption) (*EventInformationReply, error) {
	out := new(EventInformationReply)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/GetEventInformation", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateSeatsLeft(ctx context.Context, req *SeatsRequest, opts ...grpc.CallOption) (*SeatsReply, error) {
	out := new(SeatsReply)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/UpdateSeatsLeft", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

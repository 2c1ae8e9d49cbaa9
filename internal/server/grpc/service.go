package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Frames on the notification stream are generic protobuf Structs: the server
// sends {type, id, user_id, at, payload}, the client sends {type: "pong"}.
type (
	SubscribeServer = grpc.BidiStreamingServer[structpb.Struct, structpb.Struct]
	SubscribeClient = grpc.BidiStreamingClient[structpb.Struct, structpb.Struct]
)

const SubscribeMethod = "/sharekeeper.notify.NotificationService/Subscribe"

// NotificationServer is implemented by GRPCServer.
type NotificationServer interface {
	Subscribe(SubscribeServer) error
}

var notificationServiceDesc = grpc.ServiceDesc{
	ServiceName: "sharekeeper.notify.NotificationService",
	HandlerType: (*NotificationServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "sharekeeper/notify.proto",
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	return srv.(NotificationServer).Subscribe(&grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// Subscribe opens a notification stream on cc. The access token must be set
// in the outgoing metadata of ctx.
func Subscribe(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (SubscribeClient, error) {
	stream, err := cc.NewStream(ctx, &notificationServiceDesc.Streams[0], SubscribeMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}, nil
}

package specsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// configSpecRequest/ConfigSpecResponse mirror the StatsigService.GetConfigSpec
// unary-request/server-stream-response messages from spec.md §6. The real
// wire format is protobuf; since generating a .proto/protoc pipeline is out
// of scope for this module (spec.md §1 treats the transport as an external
// collaborator), these messages round-trip through a small registered gRPC
// codec instead of protoc-gen-go output, while still dialing, streaming, and
// reconnecting over a real *grpc.ClientConn.
type configSpecRequest struct {
	SinceTime int64 `json:"since_time"`
}

// ConfigSpecResponse is one message off the specs stream: a JSON specs
// payload (equivalent to the HTTP body) plus its lcut.
type ConfigSpecResponse struct {
	Spec        string `json:"spec"`
	LastUpdated uint64 `json:"last_updated"`
}

const grpcCodecName = "statsig-specs-json"

// specsJSONCodec is a minimal encoding.Codec standing in for the generated
// protobuf codec: it marshals the same messages protoc-gen-go would, just
// as JSON instead of protobuf wire format.
type specsJSONCodec struct{}

func (specsJSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (specsJSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (specsJSONCodec) Name() string                       { return grpcCodecName }

func init() {
	encoding.RegisterCodec(specsJSONCodec{})
}

const specsServiceMethod = "/statsig.StatsigService/GetConfigSpec"

var specsStreamDesc = grpc.StreamDesc{
	StreamName:    "GetConfigSpec",
	ServerStreams: true,
}

// SpecsStream reads ConfigSpecResponse messages off an open specs stream.
type SpecsStream interface {
	Recv() (*ConfigSpecResponse, error)
}

// GrpcClient is the narrow contract spec.md §1 treats as an external
// collaborator for the gRPC transport: connect, open the server-streaming
// call, and reset the underlying connection on reconnect.
type GrpcClient interface {
	Connect(ctx context.Context, target string) error
	OpenSpecsStream(ctx context.Context, sinceTime int64) (SpecsStream, error)
	Reset()
}

// grpcClientImpl is the default GrpcClient, backed by a real
// *grpc.ClientConn dialed with insecure transport credentials (production
// deployments front this with TLS via the Statsig edge; out of scope here
// per spec.md §1).
type grpcClientImpl struct {
	conn *grpc.ClientConn
}

// NewGrpcClient builds the default GrpcClient.
func NewGrpcClient() GrpcClient {
	return &grpcClientImpl{}
}

func (c *grpcClientImpl) Connect(ctx context.Context, target string) error {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("grpc dial %s: %w", target, err)
	}
	c.conn = conn
	return nil
}

func (c *grpcClientImpl) OpenSpecsStream(ctx context.Context, sinceTime int64) (SpecsStream, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("grpc client: Connect must be called before OpenSpecsStream")
	}
	cs, err := c.conn.NewStream(ctx, &specsStreamDesc, specsServiceMethod, grpc.CallContentSubtype(grpcCodecName))
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(&configSpecRequest{SinceTime: sinceTime}); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return &grpcStream{cs: cs}, nil
}

// Reset closes the underlying connection so the next Connect dials fresh,
// used between reconnect attempts in GrpcStreamAdapter's backoff loop.
func (c *grpcClientImpl) Reset() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

type grpcStream struct {
	cs grpc.ClientStream
}

func (s *grpcStream) Recv() (*ConfigSpecResponse, error) {
	var resp ConfigSpecResponse
	if err := s.cs.RecvMsg(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

package grpcserver

import (
	"context"

	"github.com/chrissnell/lakeice/internal/storage"
	"google.golang.org/grpc"
)

// ServiceName is the fully qualified name of the run service
const ServiceName = "lakeice.v1.RunService"

type ListRunsRequest struct{}

type ListRunsResponse struct {
	Runs []storage.RunSummary `json:"runs"`
}

type GetRunRequest struct {
	ID string `json:"id"`
}

type GetRunResponse struct {
	Run *storage.Run `json:"run"`
}

// RunServiceServer is the server API for the run service
type RunServiceServer interface {
	ListRuns(context.Context, *ListRunsRequest) (*ListRunsResponse, error)
	GetRun(context.Context, *GetRunRequest) (*GetRunResponse, error)
}

// RegisterRunServiceServer registers srv on s
func RegisterRunServiceServer(s grpc.ServiceRegistrar, srv RunServiceServer) {
	s.RegisterService(&runServiceDesc, srv)
}

var runServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RunServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListRuns", Handler: listRunsHandler},
		{MethodName: "GetRun", Handler: getRunHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lakeice/runs",
}

func listRunsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListRunsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RunServiceServer).ListRuns(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListRuns"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RunServiceServer).ListRuns(ctx, req.(*ListRunsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getRunHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetRunRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RunServiceServer).GetRun(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetRun"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RunServiceServer).GetRun(ctx, req.(*GetRunRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the run service over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a run service client on cc
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListRuns(ctx context.Context, opts ...grpc.CallOption) ([]storage.RunSummary, error) {
	out := new(ListRunsResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListRuns", &ListRunsRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out.Runs, nil
}

func (c *Client) GetRun(ctx context.Context, id string, opts ...grpc.CallOption) (*storage.Run, error) {
	out := new(GetRunResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetRun", &GetRunRequest{ID: id}, out, opts...); err != nil {
		return nil, err
	}
	return out.Run, nil
}

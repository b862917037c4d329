// Package grpcserver serves stored simulation runs over gRPC with a MessagePack codec.
package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/chrissnell/lakeice/internal/log"
	"github.com/chrissnell/lakeice/internal/storage"
	"github.com/chrissnell/lakeice/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
)

// Controller represents the gRPC controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	grpcConfig config.GRPCServerData
	Server     *grpc.Server
	store      storage.RunStore
	logger     *zap.SugaredLogger
}

// NewController creates a new gRPC controller instance
func NewController(ctx context.Context, wg *sync.WaitGroup, store storage.RunStore, gc config.GRPCServerData, logger *zap.SugaredLogger) (*Controller, error) {
	if store == nil {
		return nil, errors.New("the gRPC server requires a run store; configure sqlite or timescaledb storage")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if gc.ListenAddr == "" {
		logger.Info("grpc.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		gc.ListenAddr = "0.0.0.0"
	}
	if gc.Port == 0 {
		logger.Info("grpc.port not provided; defaulting to 5050")
		gc.Port = 5050
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		grpcConfig: gc,
		store:      store,
		logger:     logger,
	}

	opts := []grpc.ServerOption{grpc.UnaryInterceptor(ctrl.logCalls)}
	if gc.Cert != "" && gc.Key != "" {
		creds, err := credentials.NewServerTLSFromFile(gc.Cert, gc.Key)
		if err != nil {
			return nil, fmt.Errorf("could not create TLS server from keypair: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}
	ctrl.Server = grpc.NewServer(opts...)
	RegisterRunServiceServer(ctrl.Server, ctrl)

	return ctrl, nil
}

// StartController starts the gRPC controller
func (c *Controller) StartController() error {
	listenAddr := fmt.Sprintf("%v:%v", c.grpcConfig.ListenAddr, c.grpcConfig.Port)
	l, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("gRPC controller could not create listener: %w", err)
	}
	log.Infof("Starting gRPC server on %s...", listenAddr)
	c.serve(l)
	return nil
}

// serve runs the server on l until the controller context ends
func (c *Controller) serve(l net.Listener) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Server.Serve(l); err != nil {
			log.Errorf("gRPC server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the gRPC server...")
		c.Server.GracefulStop()
	}()
}

// ListRuns returns a summary of every stored run
func (c *Controller) ListRuns(ctx context.Context, _ *ListRunsRequest) (*ListRunsResponse, error) {
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		c.logger.Errorw("failed to list runs", "error", err)
		return nil, status.Error(codes.Internal, "failed to list runs")
	}
	return &ListRunsResponse{Runs: runs}, nil
}

// GetRun returns one run with all of its snapshots
func (c *Controller) GetRun(ctx context.Context, req *GetRunRequest) (*GetRunResponse, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "run id is required")
	}
	run, err := c.store.GetRun(ctx, req.ID)
	if errors.Is(err, storage.ErrRunNotFound) {
		return nil, status.Errorf(codes.NotFound, "run %s not found", req.ID)
	}
	if err != nil {
		c.logger.Errorw("failed to get run", "id", req.ID, "error", err)
		return nil, status.Error(codes.Internal, "failed to get run")
	}
	return &GetRunResponse{Run: run}, nil
}

// logCalls logs one line per call at debug level, or at warn level for server-side failures
func (c *Controller) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)

	fields := []interface{}{
		"method", info.FullMethod,
		"code", code.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	switch code {
	case codes.OK, codes.NotFound, codes.InvalidArgument:
		c.logger.Debugw("grpc call", fields...)
	default:
		c.logger.Warnw("grpc call", fields...)
	}
	return resp, err
}

package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/lakeice/internal/controllers/grpcserver"
	"github.com/chrissnell/lakeice/internal/controllers/restserver"
	"github.com/chrissnell/lakeice/internal/storage"
	"github.com/chrissnell/lakeice/pkg/config"
	"go.uber.org/zap"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
	Len() int
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// NewControllerManager creates a new controller manager
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, controllers []config.ControllerData, store storage.RunStore, logger *zap.SugaredLogger) (ControllerManager, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		store:       store,
		logger:      logger,
		controllers: make([]Controller, 0),
	}

	// Create controllers based on configuration
	for _, con := range controllers {
		controller, err := cm.createController(con)
		if err != nil {
			return nil, fmt.Errorf("error creating controller: %w", err)
		}
		cm.controllers = append(cm.controllers, controller)
	}

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	store       storage.RunStore
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("Starting controller manager...")

	for _, controller := range c.controllers {
		err := controller.StartController()
		if err != nil {
			return fmt.Errorf("error starting controller: %w", err)
		}
	}

	c.logger.Infof("Started %d controllers successfully", len(c.controllers))
	return nil
}

func (c *controllerManager) Len() int {
	return len(c.controllers)
}

// createController creates a controller based on the controller configuration
func (c *controllerManager) createController(cc config.ControllerData) (Controller, error) {
	switch cc.Type {
	case "restserver", "rest":
		if cc.RESTServer == nil {
			return nil, fmt.Errorf("controller %q has no rest section", cc.Type)
		}
		return restserver.NewController(c.ctx, c.wg, c.store, *cc.RESTServer, c.logger.Named("rest"))
	case "grpc":
		if cc.GRPCServer == nil {
			return nil, fmt.Errorf("controller %q has no grpc section", cc.Type)
		}
		return grpcserver.NewController(c.ctx, c.wg, c.store, *cc.GRPCServer, c.logger.Named("grpc"))
	default:
		return nil, fmt.Errorf("unknown controller type: %s", cc.Type)
	}
}

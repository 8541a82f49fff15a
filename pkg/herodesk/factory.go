// Package herodesk wires the desk services together: the embedded state
// store, the virtual filesystem and the HTTP API the desktop UI talks to.
package herodesk

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/freeflowuniverse/herodesk/pkg/herodesk/api"
	"github.com/freeflowuniverse/herodesk/pkg/herodesk/api/routes"
	"github.com/freeflowuniverse/herodesk/pkg/redisclient"
	"github.com/freeflowuniverse/herodesk/pkg/statestore"
	"github.com/freeflowuniverse/herodesk/pkg/vfs"
)

// Config holds the configuration for the HeroDesk server
type Config struct {
	Port            string
	StateTCPPort    string
	StateSocketPath string
	// RedisAddr points the filesystem at an external redis. Empty means the
	// embedded state store on StateTCPPort.
	RedisAddr string
	StoreKey  string
	User      string
	Persist   bool
}

// DefaultConfig returns a default configuration for the HeroDesk server
func DefaultConfig() Config {
	return Config{
		Port:            "9030",
		StateTCPPort:    "6390",
		StateSocketPath: "/tmp/herodesk.sock",
		StoreKey:        vfs.DefaultStoreKey,
		User:            "root",
		Persist:         true,
	}
}

// HeroDesk represents the main application
type HeroDesk struct {
	app         *fiber.App
	stateServer *statestore.Server
	stateClient *redisclient.Client
	fs          *vfs.VirtualFS
	config      Config
	startTime   time.Time
}

// New creates a new instance of HeroDesk with the provided configuration
func New(config Config) (*HeroDesk, error) {
	// Initialize modules
	var stateServer *statestore.Server
	addr := config.RedisAddr
	if addr == "" {
		stateServer = statestore.NewServer(statestore.ServerConfig{
			TCPPort:        config.StateTCPPort,
			UnixSocketPath: config.StateSocketPath,
		})
		addr = "localhost:" + config.StateTCPPort
	}

	stateClient := redisclient.NewClientWithAddr(addr, 0)
	if err := stateClient.WaitReady(context.Background(), 5*time.Second); err != nil {
		return nil, fmt.Errorf("state store not reachable at %s: %w", addr, err)
	}

	fs := vfs.New(vfs.Config{
		User:     config.User,
		Store:    vfs.NewRedisStore(stateClient),
		StoreKey: config.StoreKey,
	})
	fs.SetPersistence(config.Persist)
	if !fs.Initialize(context.Background()) {
		return nil, fmt.Errorf("failed to initialize filesystem")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(api.ErrorResponse{
				Error: err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Create HeroDesk instance
	hd := &HeroDesk{
		app:         app,
		stateServer: stateServer,
		stateClient: stateClient,
		fs:          fs,
		config:      config,
		startTime:   time.Now(),
	}

	// Initialize and register route handlers
	hd.setupRoutes()

	return hd, nil
}

// setupRoutes initializes and registers all route handlers
func (hd *HeroDesk) setupRoutes() {
	fsHandler := routes.NewFilesystemHandler(hd.fs)
	stateHandler := routes.NewStateHandler(hd.stateClient)
	// Pass HeroDesk as an UptimeProvider
	adminHandler := routes.NewAdminHandler(hd)

	fsHandler.RegisterRoutes(hd.app)
	stateHandler.RegisterRoutes(hd.app)
	adminHandler.RegisterRoutes(hd.app)
}

// Filesystem returns the virtual filesystem instance
func (hd *HeroDesk) Filesystem() *vfs.VirtualFS {
	return hd.fs
}

// GetUptime returns the uptime of the HeroDesk server as a formatted string
func (hd *HeroDesk) GetUptime() string {
	uptimeDuration := time.Since(hd.startTime)

	days := int(uptimeDuration.Hours() / 24)
	hours := int(uptimeDuration.Hours()) % 24

	return fmt.Sprintf("%d days, %d hours", days, hours)
}

// Start starts the HeroDesk server
func (hd *HeroDesk) Start() error {
	// Setup graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down server...")
		hd.fs.Shutdown(context.Background())
		_ = hd.app.Shutdown()
	}()

	// Start server
	log.Printf("Starting server on :%s", hd.config.Port)
	return hd.app.Listen(":" + hd.config.Port)
}

package main

import (
	"flag"
	"log"

	"github.com/freeflowuniverse/herodesk/pkg/herodesk"
)

func main() {
	config := herodesk.DefaultConfig()

	flag.StringVar(&config.Port, "port", config.Port, "HTTP API port")
	flag.StringVar(&config.StateTCPPort, "state-port", config.StateTCPPort, "embedded state store TCP port")
	flag.StringVar(&config.StateSocketPath, "state-socket", config.StateSocketPath, "embedded state store unix socket path")
	flag.StringVar(&config.RedisAddr, "redis-addr", config.RedisAddr, "external redis address (disables the embedded store)")
	flag.StringVar(&config.StoreKey, "store-key", config.StoreKey, "key the filesystem document is stored under")
	flag.StringVar(&config.User, "user", config.User, "session user")
	flag.BoolVar(&config.Persist, "persist", config.Persist, "persist filesystem changes")
	flag.Parse()

	hd, err := herodesk.New(config)
	if err != nil {
		log.Fatalf("Failed to start herodesk: %v", err)
	}
	if err := hd.Start(); err != nil {
		log.Fatal(err)
	}
}

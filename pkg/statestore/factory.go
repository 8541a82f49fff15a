package statestore

// ServerConfig selects the listening endpoints. Empty values disable the
// corresponding listener.
type ServerConfig struct {
	TCPPort        string
	UnixSocketPath string
}

// NewServer creates the state store and starts its redis-protocol listeners
// and the expiration sweeper in the background.
func NewServer(config ServerConfig) *Server {
	s := newServer()
	go s.sweepExpired()

	if config.TCPPort != "" {
		go s.serve("tcp", ":"+config.TCPPort)
	}
	if config.UnixSocketPath != "" {
		go s.serve("unix", config.UnixSocketPath)
	}
	return s
}

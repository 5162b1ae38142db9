package constants

import "time"

// Test Constants
//
// IMPORTANT: These constants are for testing only. DO NOT use in production code.

// Integration Test Timeout Constants
const (
	// TestIOTimeout bounds every test client read and write
	TestIOTimeout = 2 * time.Second

	// TestServeStopTimeout is how long a test waits for Serve to return after cancel
	TestServeStopTimeout = 5 * time.Second
)

// Concurrency Test Constants
const (
	// TestConcurrentClients is the number of parallel clients in load tests
	TestConcurrentClients = 10
)

// Handshake Test Constants
const (
	// TestRSAKeyBits keeps key generation fast in tests
	TestRSAKeyBits = 512
)

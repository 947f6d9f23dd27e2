// Package natsclient provides a NATS client with circuit breaker protection,
// automatic reconnection, and connection-health metrics for the SHDR adapter's
// optional ingestion bridge.
//
// The natsclient package wraps the standard NATS Go client with reliability
// features: a circuit breaker for failure protection, exponential backoff for
// reconnection, and context propagation throughout every operation. It is the
// transport underneath internal/natsbridge, which decodes observation
// envelopes published to NATS subjects and forwards them to the adapter's
// in-process submission API. Nothing in this package assumes JetStream or a
// Key-Value store is present; it is a plain pub/sub client.
//
// # Core Features
//
// Circuit Breaker Pattern: Prevents cascading failures by failing fast after a
// threshold of consecutive failures (default: 5). The circuit opens to
// refuse further Connect attempts; once a backoff period has passed (it
// doubles each time the circuit opens again, up to the maximum backoff),
// the status returns to Disconnected and the next Connect is let through.
//
// Connection Lifecycle Management: Handles connection states automatically
// through the lifecycle: Disconnected -> Connecting -> Connected ->
// Reconnecting -> Connected. The client manages all transitions with
// configurable callbacks for state changes.
//
// # Basic Usage
//
// Creating and connecting to NATS:
//
//	client, err := natsclient.NewClient("nats://localhost:4222")
//	if err != nil {
//	    return err
//	}
//
//	ctx := context.Background()
//	err = client.Connect(ctx)
//	if err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	// Publish a message
//	err = client.Publish(ctx, "subject.name", []byte("message data"))
//
//	// Subscribe to messages
//	err = client.Subscribe(ctx, "subject.*", func(msgCtx context.Context, data []byte) {
//	    // Handle message with context (30s timeout per message)
//	    fmt.Printf("Received: %s\n", string(data))
//	})
//
// # Advanced Configuration
//
// Creating a client with options:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithMaxReconnects(-1),  // Infinite reconnects
//	    natsclient.WithReconnectWait(2*time.Second),
//	    natsclient.WithCircuitBreakerThreshold(10),
//	    natsclient.WithDisconnectCallback(func(err error) {
//	        log.Printf("Disconnected: %v", err)
//	    }),
//	    natsclient.WithReconnectCallback(func() {
//	        log.Println("Reconnected successfully")
//	    }),
//	)
//
// # Circuit Breaker Pattern
//
// The circuit breaker protects against cascading failures:
//
//	// Circuit states:
//	// - Closed: Normal operation, requests pass through
//	// - Open (StatusCircuitOpen): Failures exceeded threshold, Connect fails fast
//	// There is no half-open state: when the backoff expires the status
//	// returns to StatusDisconnected and the next Connect is attempted.
//
//	err := client.Connect(ctx)
//	if errors.Is(err, natsclient.ErrCircuitOpen) {
//	    // Circuit is open, wait for it to test recovery
//	    log.Println("Circuit breaker is open, backing off...")
//	    time.Sleep(client.Backoff())
//	    // Retry later
//	}
//
// Circuit breaker configuration:
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithCircuitBreakerThreshold(5),  // Open after 5 failures
//	    natsclient.WithMaxBackoff(time.Minute),     // Max backoff duration
//	)
//
// # Connection Status and Health
//
// Monitoring connection health:
//
//	// Check current status
//	status := client.Status()
//	switch status {
//	case natsclient.StatusConnected:
//	    // Healthy and ready
//	case natsclient.StatusReconnecting:
//	    // Temporarily disconnected, reconnecting
//	case natsclient.StatusCircuitOpen:
//	    // Circuit breaker is open
//	case natsclient.StatusDisconnected:
//	    // Not connected
//	}
//
//	// Get detailed status
//	statusInfo := client.GetStatus()
//	log.Printf("Status: %v, Failures: %d, RTT: %v",
//	    statusInfo.Status,
//	    statusInfo.FailureCount,
//	    statusInfo.RTT)
//
//	// Wait for connection
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	err := client.WaitForConnection(ctx)
//
// Health monitoring with callbacks:
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithHealthInterval(10*time.Second),
//	    natsclient.WithHealthChangeCallback(func(healthy bool) {
//	        if healthy {
//	            log.Println("Connection restored")
//	        } else {
//	            log.Println("Connection lost")
//	        }
//	    }),
//	)
//
// # Metrics
//
// WithMetrics wires connection status, failure counts, reconnects, and
// per-subject publish/receive counters into a *metric.MetricsRegistry so the
// bridge's NATS connection shows up next to the rest of the adapter's
// Prometheus metrics:
//
//	client, err := natsclient.NewClient(url, natsclient.WithMetrics(registry))
//
// # Error Handling
//
// The package defines specific error types for different failure scenarios:
//
//	var (
//	    ErrCircuitOpen        = errors.New("circuit breaker is open")
//	    ErrNotConnected       = errors.New("not connected to NATS")
//	    ErrConnectionTimeout  = errors.New("connection timeout")
//	)
//
// Error detection patterns:
//
//	err := client.Publish(ctx, "subject", data)
//	if err != nil {
//	    // Check for circuit breaker
//	    if errors.Is(err, natsclient.ErrCircuitOpen) {
//	        // Back off and retry later
//	        return
//	    }
//
//	    // Check for connection issues
//	    if errors.Is(err, natsclient.ErrNotConnected) {
//	        // Trigger reconnection
//	        return
//	    }
//
//	    // Other error
//	    log.Printf("Publish failed: %v", err)
//	}
//
// # Connection Options
//
// Available configuration options:
//
//	WithMaxReconnects(n int)              // Maximum reconnection attempts (-1 = infinite)
//	WithReconnectWait(d time.Duration)    // Wait between reconnection attempts
//	WithTimeout(d time.Duration)          // Connection timeout
//	WithDrainTimeout(d time.Duration)     // Timeout for graceful shutdown
//	WithPingInterval(d time.Duration)     // Health check interval
//	WithCircuitBreakerThreshold(n int32)  // Failures before circuit opens
//	WithMaxBackoff(d time.Duration)       // Maximum backoff duration
//	WithLogger(logger Logger)             // Custom logger for debug output
//	WithHealthInterval(d time.Duration)   // Enable health monitoring
//	WithName(name string)                 // Client identification
//	WithMetrics(registry *metric.MetricsRegistry) // Connection-health metrics
//
// # Authentication and Security
//
// Username/password authentication:
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithCredentials("username", "password"),
//	)
//
// Token authentication:
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithToken("auth-token"),
//	)
//
// TLS configuration:
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithTLS("client.crt", "client.key", "ca.crt"),
//	)
//
// Note: Credentials are cleared from memory when the client is closed.
//
// # Thread Safety
//
// The Client type is thread-safe and can be used concurrently from multiple
// goroutines:
//   - All public methods are safe for concurrent use
//   - Connection state is managed with atomic operations and mutexes
//   - Subscriptions can be created from any goroutine
//   - Close() can only be called once (subsequent calls are no-ops)
//
// # Design Decisions
//
// Circuit Breaker over Simple Retry: chosen to prevent cascade failures when
// the NATS bridge is enabled but the broker is unreachable. After threshold
// failures, the circuit opens to fail fast rather than continuously retry,
// giving the system time to recover.
//
// Context-First API: every I/O operation requires context.Context as first
// parameter for proper cancellation and timeout support.
//
// No JetStream/KV surface: the SHDR adapter's domain has no need for
// durable streams or a key-value store, so that surface was dropped rather
// than carried along unused. internal/natsbridge uses only NewClient,
// Connect, WaitForConnection, Subscribe and Close.
package natsclient

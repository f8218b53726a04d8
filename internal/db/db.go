package db

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/axonops/cqlsync/internal/config"
	"github.com/axonops/cqlsync/internal/logger"
)

// Session is a wrapper around the gocql.Session.
type Session struct {
	*gocql.Session
	cluster          *gocql.ClusterConfig
	consistency      gocql.Consistency
	username         string // Current connection username
	host             string // Connection host
	cassandraVersion string
}

// SessionOptions represents options for creating a session with command-line overrides
type SessionOptions struct {
	Host           string
	Port           int
	Keyspace       string
	Username       string
	Password       string
	Consistency    string // Default consistency level (e.g., "LOCAL_ONE", "QUORUM")
	SSL            *config.SSLConfig
	ConnectTimeout int    // Connection timeout in seconds (0 = use default)
	RequestTimeout int    // Request timeout in seconds (0 = use default)
	ConfigFile     string // Path to custom config file
}

// NewSession creates a new Cassandra session.
func NewSession() (*Session, error) {
	return NewSessionWithOptions(SessionOptions{})
}

// customLogger suppresses gocql error messages so driver noise doesn't
// interleave with tool output
type customLogger struct{}

func (c *customLogger) Error(msg string, fields ...gocql.LogField)   {}
func (c *customLogger) Warning(msg string, fields ...gocql.LogField) {}
func (c *customLogger) Info(msg string, fields ...gocql.LogField)    {}
func (c *customLogger) Debug(msg string, fields ...gocql.LogField)   {}

// NewSessionWithOptions creates a new Cassandra session with command-line overrides.
func NewSessionWithOptions(options SessionOptions) (*Session, error) {
	cfg, err := config.LoadConfig(options.ConfigFile)
	if err != nil {
		logger.DebugfToFile("Session", "LoadConfig() failed: %v", err)
		// Use defaults if config file not found
		cfg = &config.Config{
			Host:                "127.0.0.1",
			Port:                9042,
			Username:            "cassandra",
			Password:            "cassandra",
			RequireConfirmation: true,
		}
	}

	// Override config with command-line options if provided
	if options.Host != "" {
		cfg.Host = options.Host
	}
	if options.Port != 0 {
		cfg.Port = options.Port
	}
	if options.Keyspace != "" {
		cfg.Keyspace = options.Keyspace
	}
	if options.Username != "" {
		cfg.Username = options.Username
	}
	if options.Password != "" {
		cfg.Password = options.Password
	}
	if options.SSL != nil {
		cfg.SSL = options.SSL
	}

	logger.DebugfToFile("Session", "Final config for connection: host=%s:%d, username=%s, keyspace=%s, hasPassword=%v",
		cfg.Host, cfg.Port, cfg.Username, cfg.Keyspace, cfg.Password != "")

	cluster, err := newClusterConfig(cfg, options)
	if err != nil {
		return nil, err
	}

	// Try to connect with progressively lower protocol versions
	// Protocol v5: Cassandra 3.10+, 4.0+, 5.0+
	// Protocol v4: Cassandra 3.0+
	// Protocol v3: Cassandra 2.1+
	var session *gocql.Session
	protocolVersions := []int{5, 4, 3}

	for _, protoVer := range protocolVersions {
		cluster.ProtoVersion = protoVer
		session, err = cluster.CreateSession()
		if err == nil {
			logger.DebugfToFile("Session", "Connected with protocol version %d", protoVer)
			break
		}
		logger.DebugfToFile("Session", "Failed to connect with protocol version %d: %v", protoVer, err)
	}

	if session == nil {
		return nil, fmt.Errorf("failed to connect to Cassandra with any supported protocol version: %v", err)
	}

	// Get Cassandra version
	var releaseVersion string
	iter := session.Query("SELECT release_version FROM system.local").Iter()
	iter.Scan(&releaseVersion)
	_ = iter.Close()

	// Determine initial consistency level
	initialConsistency := gocql.LocalOne
	consistencyName := options.Consistency
	if consistencyName == "" {
		consistencyName = cfg.Consistency
	}
	if consistencyName != "" {
		if parsed, err := parseConsistency(consistencyName); err == nil {
			initialConsistency = parsed
		} else {
			logger.DebugfToFile("Session", "Invalid consistency level '%s', defaulting to LOCAL_ONE", consistencyName)
		}
	}

	return &Session{
		Session:          session,
		cluster:          cluster,
		consistency:      initialConsistency,
		username:         cfg.Username,
		host:             cfg.Host,
		cassandraVersion: releaseVersion,
	}, nil
}

// newClusterConfig builds the gocql cluster configuration from the merged
// config and command-line options. Driver logging goes through customLogger
// so driver noise doesn't interleave with tool output; the process-wide
// standard logger is left alone.
func newClusterConfig(cfg *config.Config, options SessionOptions) (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	cluster.Logger = &customLogger{}
	cluster.Consistency = gocql.LocalOne

	// Set timeouts based on options, config, or use defaults
	switch {
	case options.RequestTimeout > 0:
		cluster.Timeout = time.Duration(options.RequestTimeout) * time.Second
	case cfg.RequestTimeout > 0:
		cluster.Timeout = time.Duration(cfg.RequestTimeout) * time.Second
	default:
		cluster.Timeout = 10 * time.Second
	}

	switch {
	case options.ConnectTimeout > 0:
		cluster.ConnectTimeout = time.Duration(options.ConnectTimeout) * time.Second
	case cfg.ConnectTimeout > 0:
		cluster.ConnectTimeout = time.Duration(cfg.ConnectTimeout) * time.Second
	default:
		cluster.ConnectTimeout = 10 * time.Second
	}

	cluster.DisableInitialHostLookup = true

	if cfg.Keyspace != "" {
		cluster.Keyspace = cfg.Keyspace
	}

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	// Configure SSL if enabled
	if cfg.SSL != nil && cfg.SSL.Enabled {
		tlsConfig, err := createTLSConfig(cfg.SSL, cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS configuration: %v", err)
		}
		cluster.SslOpts = &gocql.SslOptions{
			Config: tlsConfig,
		}
	}

	return cluster, nil
}

// parseConsistency converts a consistency level name to a gocql.Consistency
func parseConsistency(level string) (gocql.Consistency, error) {
	switch strings.ToUpper(level) {
	case "ANY":
		return gocql.Any, nil
	case "ONE":
		return gocql.One, nil
	case "TWO":
		return gocql.Two, nil
	case "THREE":
		return gocql.Three, nil
	case "QUORUM":
		return gocql.Quorum, nil
	case "ALL":
		return gocql.All, nil
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum, nil
	case "EACH_QUORUM":
		return gocql.EachQuorum, nil
	case "LOCAL_ONE":
		return gocql.LocalOne, nil
	default:
		return gocql.LocalOne, fmt.Errorf("invalid consistency level: %s", level)
	}
}

// Consistency returns the current consistency level
func (s *Session) Consistency() string {
	switch s.consistency {
	case gocql.Any:
		return "ANY"
	case gocql.One:
		return "ONE"
	case gocql.Two:
		return "TWO"
	case gocql.Three:
		return "THREE"
	case gocql.Quorum:
		return "QUORUM"
	case gocql.All:
		return "ALL"
	case gocql.LocalQuorum:
		return "LOCAL_QUORUM"
	case gocql.EachQuorum:
		return "EACH_QUORUM"
	case gocql.LocalOne:
		return "LOCAL_ONE"
	default:
		return "UNKNOWN"
	}
}

// SetConsistency sets the consistency level
func (s *Session) SetConsistency(level string) error {
	consistency, err := parseConsistency(level)
	if err != nil {
		return err
	}
	s.consistency = consistency
	return nil
}

// Username returns the current connection username
func (s *Session) Username() string {
	return s.username
}

// Host returns the connection host
func (s *Session) Host() string {
	return s.host
}

// Keyspace returns the current keyspace
func (s *Session) Keyspace() string {
	if s.cluster != nil {
		return s.cluster.Keyspace
	}
	return ""
}

// Query creates a new query with session defaults applied
func (s *Session) Query(stmt string, values ...interface{}) *gocql.Query {
	query := s.Session.Query(stmt, values...)
	query.Consistency(s.consistency)
	return query
}

// ExecuteDDL executes a fire-and-forget DDL statement
func (s *Session) ExecuteDDL(stmt string) error {
	logger.DebugfToFile("DDL", "Executing: %s", stmt)
	return s.Query(stmt).Exec()
}

// CassandraVersion returns the Cassandra version
func (s *Session) CassandraVersion() string {
	if s.cassandraVersion == "" {
		return "unknown"
	}
	return s.cassandraVersion
}

// IsVersion3OrHigher checks if the Cassandra version is 3.0 or higher
func (s *Session) IsVersion3OrHigher() bool {
	version := s.CassandraVersion()
	// Parse version string like "3.0.4" or "4.0.4"
	parts := strings.Split(version, ".")
	if len(parts) < 1 {
		return false
	}

	majorVersion, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}

	return majorVersion >= 3
}

// createTLSConfig creates a TLS configuration based on the SSL settings
func createTLSConfig(sslConfig *config.SSLConfig, hostname string) (*tls.Config, error) {
	// Determine server name for hostname verification
	// Use explicit ServerName from config if provided (for SNI routing),
	// otherwise derive from hostname
	serverName := sslConfig.ServerName
	if serverName == "" {
		serverName = hostname
		if hostname != "" {
			// Strip port if present (hostname might be "host:port")
			if colonIdx := strings.LastIndex(hostname, ":"); colonIdx > 0 {
				serverName = hostname[:colonIdx]
			}
		}
	}

	// When AllowLegacyCN is enabled, we need to bypass standard verification
	// and do manual verification in VerifyConnection
	skipVerify := sslConfig.InsecureSkipVerify || (sslConfig.AllowLegacyCN && sslConfig.HostVerification)

	tlsConfig := &tls.Config{
		InsecureSkipVerify: skipVerify, // #nosec G402 - Configurable TLS verification
	}

	// Set ServerName for hostname verification (only when not using legacy CN verification)
	if sslConfig.HostVerification && !sslConfig.AllowLegacyCN && serverName != "" {
		tlsConfig.ServerName = serverName
	}

	// Load client certificate if provided
	if sslConfig.CertPath != "" && sslConfig.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(sslConfig.CertPath, sslConfig.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %v", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	// Load CA certificate if provided
	if sslConfig.CAPath != "" {
		caCert, err := os.ReadFile(sslConfig.CAPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %v", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	// Manual verification for legacy CN certificates
	// We skip standard verification and manually check the certificate
	if sslConfig.AllowLegacyCN && sslConfig.HostVerification {
		tlsConfig.VerifyConnection = func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				return fmt.Errorf("no peer certificates")
			}

			// Build intermediates pool
			intermediates := x509.NewCertPool()
			for _, cert := range cs.PeerCertificates[1:] {
				intermediates.AddCert(cert)
			}

			// First try standard verification with SANs
			opts := x509.VerifyOptions{
				DNSName:       serverName,
				Intermediates: intermediates,
			}
			if tlsConfig.RootCAs != nil {
				opts.Roots = tlsConfig.RootCAs
			}

			_, err := cs.PeerCertificates[0].Verify(opts)
			if err == nil {
				return nil // Standard verification with SANs passed
			}

			// If standard verification failed, try legacy CN verification
			// First verify the certificate chain without hostname check
			optsNoHostname := x509.VerifyOptions{
				Intermediates: intermediates,
			}
			if tlsConfig.RootCAs != nil {
				optsNoHostname.Roots = tlsConfig.RootCAs
			}

			_, err = cs.PeerCertificates[0].Verify(optsNoHostname)
			if err != nil {
				return fmt.Errorf("certificate verification failed: %v", err)
			}

			// Chain is valid, now check CN
			cert := cs.PeerCertificates[0]
			if cert.Subject.CommonName == serverName {
				return nil // Legacy CN matches
			}

			return fmt.Errorf("certificate CN %q doesn't match expected hostname %q", cert.Subject.CommonName, serverName)
		}
	}

	return tlsConfig, nil
}

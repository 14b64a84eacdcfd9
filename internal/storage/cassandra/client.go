package cassandra

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drop-plan-generator/internal/config"
	"github.com/drop-plan-generator/pkg/logger"
	"github.com/gocql/gocql"
)

// Client wraps a gocql.Session and provides connection management
type Client struct {
	session *gocql.Session
	config  config.CassandraConfig
	logger  *logger.Logger
}

// NewClient creates a new Cassandra client and establishes a connection
func NewClient(cfg config.CassandraConfig, log *logger.Logger) (*Client, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)

	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.Timeout
	cluster.Consistency = parseConsistency(cfg.Consistency)
	cluster.RetryPolicy = RetryPolicy(3)

	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	cluster.NumConns = 2
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}

	log.Info("Connected to Cassandra", logger.F("hosts", strings.Join(cfg.Hosts, ",")), logger.F("keyspace", cfg.Keyspace))

	client := &Client{
		session: session,
		config:  cfg,
		logger:  log,
	}

	if err := client.initializeSchema(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return client, nil
}

// Session returns the underlying gocql.Session
func (c *Client) Session() *gocql.Session {
	return c.session
}

// Keyspace returns the configured keyspace
func (c *Client) Keyspace() string {
	return c.config.Keyspace
}

// Close closes the Cassandra session
func (c *Client) Close() {
	if c.session != nil {
		c.session.Close()
		c.logger.Info("Cassandra session closed")
	}
}

// initializeSchema creates the keyspace and tables if they don't exist.
//
// plans is keyed by plan_id for lookups. plans_by_day partitions plan IDs by
// UTC day and clusters them newest first so recent plans can be listed
// without a full scan.
func (c *Client) initializeSchema() error {
	keyspace := c.config.Keyspace

	statements := []string{
		fmt.Sprintf(`
		CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {
			'class': 'SimpleStrategy',
			'replication_factor': 1
		}`, keyspace),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.plans (
			plan_id text PRIMARY KEY,
			created_at timestamp,
			drops int,
			sessions list<text>,
			input text,
			output text
		)`, keyspace),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.plans_by_day (
			day text,
			created_at timestamp,
			plan_id text,
			PRIMARY KEY ((day), created_at, plan_id)
		) WITH CLUSTERING ORDER BY (created_at DESC, plan_id DESC)`, keyspace),
	}

	for _, stmt := range statements {
		if err := c.session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	c.logger.Info("Cassandra schema initialized", logger.F("keyspace", keyspace))
	return nil
}

// parseConsistency parses a consistency level string
func parseConsistency(consistencyStr string) gocql.Consistency {
	switch strings.ToUpper(consistencyStr) {
	case "ONE":
		return gocql.One
	case "TWO":
		return gocql.Two
	case "THREE":
		return gocql.Three
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "EACH_QUORUM":
		return gocql.EachQuorum
	case "LOCAL_ONE":
		return gocql.LocalOne
	default:
		return gocql.Quorum
	}
}

// RetryPolicy retries timeouts and connection failures up to maxRetries times
func RetryPolicy(maxRetries int) gocql.RetryPolicy {
	return &simpleRetryPolicy{maxRetries: maxRetries}
}

type simpleRetryPolicy struct {
	maxRetries int
}

func (p *simpleRetryPolicy) Attempt(q gocql.RetryableQuery) bool {
	return q.Attempts() <= p.maxRetries
}

func (p *simpleRetryPolicy) GetRetryType(err error) gocql.RetryType {
	if errors.Is(err, gocql.ErrTimeoutNoResponse) {
		return gocql.Retry
	}
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "timeout") || strings.Contains(msg, "connection") || strings.Contains(msg, "unavailable") {
			return gocql.Retry
		}
	}
	return gocql.Rethrow
}

package store

import (
	"time"

	"github.com/gocql/gocql"
)

// Session wraps a gocql session with the cluster settings every
// portalchat process uses.
type Session struct {
	*gocql.Session
}

func NewSession(hosts []string, keyspace string) (*Session, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	return &Session{Session: session}, nil
}

// EnsureKeyspace connects to the system keyspace and creates the chat
// keyspace if missing. Schema creation belongs in migration tooling; this
// exists for local bootstrap only.
func EnsureKeyspace(hosts []string, keyspace string) error {
	sys, err := NewSession(hosts, "system")
	if err != nil {
		return err
	}
	defer sys.Close()

	return sys.Query(`CREATE KEYSPACE IF NOT EXISTS ` + keyspace +
		` WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		channel_id text,
		id bigint,
		sender_id text,
		sender_name text,
		body text,
		created_at timestamp,
		PRIMARY KEY (channel_id, id)
	) WITH CLUSTERING ORDER BY (id ASC)`,
	`CREATE TABLE IF NOT EXISTS memberships (
		user_id text,
		channel_id text,
		last_read_at timestamp,
		PRIMARY KEY (user_id, channel_id)
	)`,
	`CREATE TABLE IF NOT EXISTS channel_members (
		channel_id text,
		user_id text,
		PRIMARY KEY (channel_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_conversations (
		user_id text,
		channel_id text,
		last_updated timestamp,
		preview text,
		PRIMARY KEY (user_id, channel_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_counters (
		user_id text,
		channel_id text,
		unread_count counter,
		PRIMARY KEY (user_id, channel_id)
	)`,
}

// EnsureSchema creates the chat tables if they do not exist.
func (s *Session) EnsureSchema() error {
	for _, stmt := range schema {
		if err := s.Query(stmt).Exec(); err != nil {
			return err
		}
	}
	return nil
}

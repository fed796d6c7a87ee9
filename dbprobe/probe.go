// Package dbprobe reads the registration service's database directly, so that tests can verify
// persisted side effects independently of the service's HTTP responses.
package dbprobe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"apollo.io/contract-tests/framework"
	"apollo.io/contract-tests/framework/helpers"
	"apollo.io/contract-tests/framework/opt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	resetUsersQuery  = "DELETE FROM users"
	fetchUserQuery   = "SELECT username, email, password_hash, salt FROM users WHERE username = $1"
	countUsersQuery  = "SELECT count(*) FROM users"
	redactedPassword = "xxxxx"
)

// User is a read-only view of one row of the users table.
type User struct {
	Username     string
	Email        string
	PasswordHash []byte
	Salt         []byte
}

// Store is the set of database operations that test cases rely on.
type Store interface {
	// ResetUsers removes every row from the users table. It succeeds on an empty table.
	ResetUsers(ctx context.Context) error

	// FetchUserByUsername returns the row with the given username, or an empty Maybe if there
	// is none. A missing row is not an error.
	FetchUserByUsername(ctx context.Context, username string) (opt.Maybe[User], error)

	// CountUsers returns the number of rows in the users table.
	CountUsers(ctx context.Context) (int, error)
}

// PostgresProbe is a Store backed by a PostgreSQL database. Every operation opens its own
// connection, executes a single statement, and closes the connection before returning.
type PostgresProbe struct {
	dsn     string
	timeout time.Duration
	logger  framework.Logger
}

var _ Store = (*PostgresProbe)(nil)

// Option configures a PostgresProbe.
type Option helpers.ConfigOption[PostgresProbe]

// WithTimeout bounds each operation, including connection setup. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return helpers.ConfigOptionFunc[PostgresProbe](func(p *PostgresProbe) error {
		if timeout < 0 {
			return fmt.Errorf("timeout cannot be negative (got %s)", timeout)
		}
		p.timeout = timeout
		return nil
	})
}

// WithLogger sets a logger that receives one line for every statement executed.
func WithLogger(logger framework.Logger) Option {
	return helpers.ConfigOptionFunc[PostgresProbe](func(p *PostgresProbe) error {
		p.logger = logger
		return nil
	})
}

// NewPostgresProbe creates a probe for the given connection string. The string is checked for
// syntax here, but no connection is attempted until the first operation.
func NewPostgresProbe(dsn string, options ...Option) (*PostgresProbe, error) {
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return nil, framework.Configuration("database probe", fmt.Errorf("invalid connection string %q: %w",
			RedactDSN(dsn), err))
	}
	p := &PostgresProbe{dsn: dsn, logger: framework.NullLogger()}
	if err := helpers.ApplyOptions(p, options...); err != nil {
		return nil, framework.Configuration("database probe", err)
	}
	if p.logger == nil {
		p.logger = framework.NullLogger()
	}
	return p, nil
}

// DSN returns the connection string with any password redacted.
func (p *PostgresProbe) DSN() string {
	return RedactDSN(p.dsn)
}

func (p *PostgresProbe) ResetUsers(ctx context.Context) error {
	return p.withConn(ctx, "reset users", func(ctx context.Context, conn *pgx.Conn) error {
		p.logger.Printf("exec: %s", resetUsersQuery)
		_, err := conn.Exec(ctx, resetUsersQuery)
		return err
	})
}

func (p *PostgresProbe) FetchUserByUsername(ctx context.Context, username string) (opt.Maybe[User], error) {
	result := opt.None[User]()
	err := p.withConn(ctx, "fetch user", func(ctx context.Context, conn *pgx.Conn) error {
		p.logger.Printf("query: %s [%q]", fetchUserQuery, username)
		var u User
		err := conn.QueryRow(ctx, fetchUserQuery, username).Scan(&u.Username, &u.Email, &u.PasswordHash, &u.Salt)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil
		case err != nil:
			return err
		}
		result = opt.Some(u)
		return nil
	})
	if err != nil {
		return opt.None[User](), err
	}
	return result, nil
}

func (p *PostgresProbe) CountUsers(ctx context.Context) (int, error) {
	var count int64
	err := p.withConn(ctx, "count users", func(ctx context.Context, conn *pgx.Conn) error {
		p.logger.Printf("query: %s", countUsersQuery)
		return conn.QueryRow(ctx, countUsersQuery).Scan(&count)
	})
	return int(count), err
}

func (p *PostgresProbe) withConn(ctx context.Context, op string, action func(context.Context, *pgx.Conn) error) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return framework.Infrastructure(op, fmt.Errorf("connecting to %s: %w", p.DSN(), err))
	}
	defer func() {
		_ = conn.Close(context.Background())
	}()
	if err := action(ctx, conn); err != nil {
		if code := SQLState(err); code != "" {
			p.logger.Printf("%s failed with SQLSTATE %s", op, code)
		}
		return framework.Infrastructure(op, err)
	}
	return nil
}

// SQLState returns the PostgreSQL error code carried by err, or "" if err did not come from
// the server.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

var keywordPasswordRegex = regexp.MustCompile(`(?i)(password\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)

// RedactDSN hides the password in a connection string in either URL or keyword/value form.
func RedactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), redactedPassword)
		}
		q := u.Query()
		if q.Has("password") {
			q.Set("password", redactedPassword)
			u.RawQuery = q.Encode()
		}
		return u.String()
	}
	return keywordPasswordRegex.ReplaceAllString(dsn, "${1}"+redactedPassword)
}

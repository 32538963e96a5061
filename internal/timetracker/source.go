// Package timetracker imports people and projects from the time-tracking
// database. It never touches assignments.
package timetracker

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// DefaultDriver is the database the time tracker ships with.
const DefaultDriver = "mysql"

// User is a person as the time tracker knows them.
type User struct {
	ID      string
	Name    string
	Enabled bool
}

// Project is a project as the time tracker knows it.
type Project struct {
	ID       string
	Name     string
	Color    string
	Visible  bool
	Customer string
}

// Source lists the records to mirror.
type Source interface {
	Users(ctx context.Context) ([]User, error)
	Projects(ctx context.Context) ([]Project, error)
}

// SQLSource reads the time tracker's own tables. The tracker normally runs
// on MySQL or MariaDB; PostgreSQL installs work with driver "postgres".
type SQLSource struct {
	db *sql.DB
}

// OpenSQL prepares a pool for the time tracker database. No connection is
// made until the first query.
func OpenSQL(driver, dsn string) (*SQLSource, error) {
	if driver == "" {
		driver = DefaultDriver
	}
	switch driver {
	case "mysql":
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return nil, fmt.Errorf("parse time tracker dsn: %w", err)
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("unknown time tracker driver %q (want mysql or postgres)", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open time tracker db: %w", err)
	}
	db.SetMaxOpenConns(2)
	return &SQLSource{db: db}, nil
}

func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db}
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}

// Users returns enabled and disabled users. The display alias wins over the
// login name when set.
func (s *SQLSource) Users(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, alias, enabled FROM kimai2_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			id       int64
			username string
			alias    sql.NullString
			enabled  bool
		)
		if err := rows.Scan(&id, &username, &alias, &enabled); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		name := username
		if alias.Valid && alias.String != "" {
			name = alias.String
		}
		users = append(users, User{ID: strconv.FormatInt(id, 10), Name: name, Enabled: enabled})
	}
	return users, rows.Err()
}

// Projects returns visible and hidden projects with their customer name.
func (s *SQLSource) Projects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT p.id, p.name, p.color, c.name, p.visible
        FROM kimai2_projects p
        LEFT JOIN kimai2_customers c ON p.customer_id = c.id
        ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var (
			id       int64
			p        Project
			color    sql.NullString
			customer sql.NullString
		)
		if err := rows.Scan(&id, &p.Name, &color, &customer, &p.Visible); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.ID = strconv.FormatInt(id, 10)
		p.Color = color.String
		p.Customer = customer.String
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

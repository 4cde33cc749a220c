package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Table Structure:
//
// CREATE TABLE IF NOT EXISTS users (
// 	id CHAR(27) NOT NULL UNIQUE,
// 	name VARCHAR(255) NOT NULL,
// 	email VARCHAR(255) NOT NULL,
// 	password VARCHAR(255) NOT NULL,
// 	avatar TEXT NOT NULL DEFAULT '',
// 	role VARCHAR(20) NOT NULL DEFAULT 'user',
// 	bio TEXT NOT NULL DEFAULT '',
// 	created_at TIMESTAMP NOT NULL,
// 	updated_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(id)
// );
// CREATE UNIQUE INDEX users_email_idx ON users (email);

// CREATE TABLE IF NOT EXISTS blogs (
// 	id CHAR(27) NOT NULL UNIQUE,
// 	title VARCHAR(255) NOT NULL,
// 	content TEXT NOT NULL,
// 	excerpt TEXT NOT NULL DEFAULT '',
// 	slug VARCHAR(255) NOT NULL,
// 	author CHAR(27) NOT NULL,
// 	cover_image TEXT NOT NULL DEFAULT '',
// 	likes TEXT[] NOT NULL DEFAULT '{}',
// 	categories TEXT[] NOT NULL DEFAULT '{}',
// 	tags TEXT[] NOT NULL DEFAULT '{}',
// 	published BOOLEAN NOT NULL DEFAULT TRUE,
// 	created_at TIMESTAMP NOT NULL,
// 	updated_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(id)
// );
// CREATE UNIQUE INDEX blogs_slug_idx ON blogs (slug);
// CREATE INDEX blogs_author_idx ON blogs (author);

// CREATE TABLE IF NOT EXISTS categories (
// 	id CHAR(27) NOT NULL UNIQUE,
// 	name VARCHAR(100) NOT NULL,
// 	created_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(id)
// );
// names are stored trimmed and lowercased, the unique index is what makes
// find-or-create safe under concurrent first use
// CREATE UNIQUE INDEX categories_name_idx ON categories (name);

// CREATE TABLE IF NOT EXISTS tags (
// 	id CHAR(27) NOT NULL UNIQUE,
// 	name VARCHAR(100) NOT NULL,
// 	created_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(id)
// );
// CREATE UNIQUE INDEX tags_name_idx ON tags (name);

// CREATE TABLE IF NOT EXISTS comments (
// 	id CHAR(27) NOT NULL UNIQUE,
// 	post_id CHAR(27) NOT NULL,
// 	user_id CHAR(27) NOT NULL,
// 	text TEXT NOT NULL,
// 	created_at TIMESTAMP NOT NULL,
// 	updated_at TIMESTAMP NOT NULL,
// 	PRIMARY KEY(id)
// );
// CREATE INDEX comments_post_id_idx ON comments (post_id);

// GetDbConn tries to establish a connection to postgres and return the connection handler
func GetDbConn(databaseUser string, databasePassword string, databaseHost string, databasePort string, databaseName string, sslMode string) (*sql.DB, error) {
	databaseURL := fmt.Sprintf("postgres://%v:%v@%v:%v/%v?sslmode=%s",
		databaseUser,
		databasePassword,
		databaseHost,
		databasePort,
		databaseName,
		sslMode,
	)
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// CloseDbConn closes db conn
func CloseDbConn(conn *sql.DB) {
	conn.Close()
}

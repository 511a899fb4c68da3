package postgres

import (
	"context"
	"fmt"
	"go-subtx/internal/config"
	"go-subtx/internal/messages"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	connStringFormat = "postgresql://%s:%s@%s:%s/%s?sslmode=disable&pool_max_conns=%d"

	tableName    = "history_blobs"
	colNamespace = "namespace"
	colValue     = "value"

	createTableQuery = "CREATE TABLE IF NOT EXISTS " + tableName +
		" (" + colNamespace + " TEXT PRIMARY KEY, " + colValue + " TEXT NOT NULL)"
	getQuery = "SELECT " + colValue + " FROM " + tableName +
		" WHERE " + colNamespace + "=$1"
	setQuery = "INSERT INTO " + tableName + " (" + colNamespace + ", " + colValue + ")" +
		" VALUES ($1, $2) ON CONFLICT (" + colNamespace + ") DO UPDATE SET " + colValue + "=$2"
	clearQuery = "DELETE FROM " + tableName
)

type (
	PostgresClient struct {
		Pool *pgxpool.Pool
	}
)

// Connect creates a new Postgres connection pool client instance and makes
// sure the history blobs table exists
func Connect(dbConfiguration config.PostgresConfig) (*PostgresClient, error) {
	connString := fmt.Sprintf(
		connStringFormat,
		dbConfiguration.User,
		dbConfiguration.Password,
		dbConfiguration.Host,
		dbConfiguration.Port,
		dbConfiguration.Db,
		dbConfiguration.ConnPool,
	)
	messages.NewSdkMessage(
		messages.LOG_LEVEL_INFO,
		"",
		nil,
		messages.POSTGRES_CONNECTING,
		fmt.Sprintf("%s:%s/%s",
			dbConfiguration.Host,
			dbConfiguration.Port,
			dbConfiguration.Db,
		),
	).ConsoleLog()

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(Connect),
			err,
			messages.POSTGRES_FAILED_TO_PARSE_CONNECTION_STRING,
		).ToError()
	}

	poolConnection, err := pgxpool.ConnectConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(Connect),
			err,
			messages.POSTGRES_FAILED_TO_CONNECT,
		).ToError()
	}

	err = poolConnection.Ping(context.Background())
	if err != nil {
		return nil, messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(Connect),
			err,
			messages.POSTGRES_FAILED_TO_PING,
		).ToError()
	}

	_, err = poolConnection.Exec(context.Background(), createTableQuery)
	if err != nil {
		return nil, messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(Connect),
			err,
			messages.POSTGRES_FAILED_TO_INIT_TABLE,
		).ToError()
	}

	messages.NewSdkMessage(
		messages.LOG_LEVEL_SUCCESS,
		"",
		nil,
		messages.POSTGRES_CONNECTED,
	).ConsoleLog()
	return &PostgresClient{Pool: poolConnection}, nil
}

// Get reads the blob stored under a namespace, empty string when absent
func (pc *PostgresClient) Get(namespace string) (string, error) {
	var value string
	err := pc.Pool.QueryRow(context.Background(), getQuery, namespace).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(pc.Get),
			err,
			messages.POSTGRES_FAILED_GET,
			namespace,
		).ToError()
	}
	return value, nil
}

// Set upserts the blob stored under a namespace, last write wins
func (pc *PostgresClient) Set(namespace string, value string) error {
	_, err := pc.Pool.Exec(context.Background(), setQuery, namespace, value)
	if err != nil {
		return messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(pc.Set),
			err,
			messages.POSTGRES_FAILED_SET,
			namespace,
		).ToError()
	}
	return nil
}

// Clear drops every stored namespace
func (pc *PostgresClient) Clear() error {
	_, err := pc.Pool.Exec(context.Background(), clearQuery)
	if err != nil {
		return messages.NewSdkMessage(
			messages.LOG_LEVEL_ERROR,
			messages.GetComponent(pc.Clear),
			err,
			messages.POSTGRES_FAILED_CLEAR,
		).ToError()
	}
	return nil
}

func (pc *PostgresClient) Close() {
	pc.Pool.Close()
}

package clickhouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "regimeradar",
		User:        "default",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		MaxExecTime: time.Minute,
	})
	assert.Equal(t, "clickhouse://default:p%40ss@ch:9000/regimeradar?dial_timeout=5s&max_execution_time=60", dsn)

	assert.Contains(t, BuildDSN(ClientConfig{Host: "ch", Port: 8123, UseHTTP: true}), "http://")
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}

func TestInitSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	c := NewClientWithDB(db)
	defer c.Close()

	mock.ExpectExec("CREATE DATABASE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("boom"))

	err = c.InitSchema(context.Background(), []string{"CREATE DATABASE x", "CREATE TABLE y", "never"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

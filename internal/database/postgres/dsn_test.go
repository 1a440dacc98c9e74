package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/errs"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
		want string
	}{
		{
			name: "full",
			cfg:  database.Config{Host: "db.internal", Port: 6432, User: "app", Database: "shop", SSLMode: "require"},
			want: "host=db.internal port=6432 user=app dbname=shop sslmode=require",
		},
		{
			name: "defaults",
			cfg:  database.Config{Host: "localhost", User: "app", Database: "shop"},
			want: "host=localhost port=5432 user=app dbname=shop sslmode=disable",
		},
		{
			name: "quoted values",
			cfg:  database.Config{Host: "localhost", User: "o'brien", Database: "my db"},
			want: `host=localhost port=5432 user='o\'brien' dbname='my db' sslmode=disable`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDSN(&tt.cfg))
		})
	}
}

func TestBuildDSN_OmitsPassword(t *testing.T) {
	cfg := database.Config{Host: "localhost", User: "app", Password: "s3cret", Database: "shop"}
	assert.NotContains(t, buildDSN(&cfg), "s3cret")
}

func TestBuildConnConfig(t *testing.T) {
	cfg := &database.Config{
		Host:           "db.internal",
		Port:           5433,
		User:           "app",
		Password:       "pa ss'word",
		Database:       "shop",
		AppName:        "pgmeta-test",
		ConnectTimeout: 3 * time.Second,
	}

	got, err := buildConnConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", got.Host)
	assert.Equal(t, uint16(5433), got.Port)
	assert.Equal(t, "app", got.User)
	assert.Equal(t, "pa ss'word", got.Password)
	assert.Equal(t, "shop", got.Database)
	assert.Equal(t, 3*time.Second, got.ConnectTimeout)
	assert.Equal(t, "pgmeta-test", got.RuntimeParams["application_name"])
}

func TestConnect_InvalidSettings(t *testing.T) {
	p := NewProvider(&database.Config{Host: "localhost", User: "app", Database: "shop", SSLMode: "bogus", Password: "s3cret"}, nil)

	_, err := p.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.NotContains(t, err.Error(), "s3cret")
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := &database.Config{
		Host:           "127.0.0.1",
		Port:           1,
		User:           "app",
		Password:       "s3cret",
		Database:       "shop",
		ConnectTimeout: time.Second,
	}
	p := NewProvider(cfg, nil)

	_, err := p.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsConnection(err))
	assert.NotContains(t, err.Error(), "s3cret")
}

//go:build integration

package user

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"safesupport/pkg/testutil/containers"
)

func TestRedisUserStoreSuite(t *testing.T) {
	rc := containers.NewRedis(t)
	suite.Run(t, &storeContractSuite{newStore: func() userStore {
		rc.Reset(t)
		return NewRedisUserStore(rc.Client)
	}})
}

func TestPostgresUserStoreSuite(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	db, err := sql.Open("postgres", pg.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewPostgresUserStore(db)
	require.NoError(t, store.Migrate(context.Background()))

	suite.Run(t, &storeContractSuite{newStore: func() userStore {
		_, err := db.Exec(`TRUNCATE users`)
		require.NoError(t, err)
		return store
	}})
}

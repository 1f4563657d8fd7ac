package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"budgetbuddy/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for the session slot
type DBTestSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(MemoryPath)
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) TestEmptySlot() {
	token, ok, err := suite.db.Get(suite.ctx)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
	assert.Empty(suite.T(), token)
}

func (suite *DBTestSuite) TestSetThenGet() {
	require.NoError(suite.T(), suite.db.Set(suite.ctx, "abc123"))

	token, ok, err := suite.db.Get(suite.ctx)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), "abc123", token)
}

func (suite *DBTestSuite) TestSetOverwrites() {
	require.NoError(suite.T(), suite.db.Set(suite.ctx, "first"))
	require.NoError(suite.T(), suite.db.Set(suite.ctx, "second"))

	token, _, err := suite.db.Get(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "second", token)

	var rows int
	require.NoError(suite.T(), suite.db.conn.QueryRow("SELECT COUNT(*) FROM session_slots").Scan(&rows))
	assert.Equal(suite.T(), 1, rows, "slot is a single row")
}

func (suite *DBTestSuite) TestClear() {
	require.NoError(suite.T(), suite.db.Set(suite.ctx, "abc123"))
	require.NoError(suite.T(), suite.db.Clear(suite.ctx))

	_, ok, err := suite.db.Get(suite.ctx)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	// Clearing an empty slot is not an error.
	assert.NoError(suite.T(), suite.db.Clear(suite.ctx))
}

func (suite *DBTestSuite) TestRejectsEmptyToken() {
	assert.ErrorIs(suite.T(), suite.db.Set(suite.ctx, ""), session.ErrEmptyToken)
}

func (suite *DBTestSuite) TestUpdatedAt() {
	_, ok, err := suite.db.UpdatedAt(suite.ctx)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	before := time.Now().Add(-time.Minute)
	require.NoError(suite.T(), suite.db.Set(suite.ctx, "abc123"))

	updated, ok, err := suite.db.UpdatedAt(suite.ctx)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
	assert.True(suite.T(), updated.After(before), "updated_at %v should be recent", updated)
}

func TestDBTestSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestNewDB_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")
	ctx := context.Background()

	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, "durable"))
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err, "reopening runs migrations again without error")
	defer db.Close()

	token, ok, err := db.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "durable", token)
}

func TestNewDB_InvalidPath(t *testing.T) {
	// A directory cannot be opened as a database file.
	_, err := NewDB(t.TempDir())
	assert.Error(t, err)
}

func TestSealedStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sealed.db")
	key := []byte(strings.Repeat("k", KeySize))
	sealer, err := NewSealer(key)
	require.NoError(t, err)

	db, err := NewDB(path, WithSealer(sealer))
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, "abc123"))

	var raw string
	require.NoError(t, db.conn.QueryRow("SELECT value FROM session_slots WHERE name = ?", session.SlotName).Scan(&raw))
	assert.True(t, IsSealed(raw))
	assert.NotContains(t, raw, "abc123")

	token, ok, err := db.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)
	require.NoError(t, db.Close())

	// Without the key the slot must not be read as a token.
	plain, err := NewDB(path)
	require.NoError(t, err)
	_, ok, err = plain.Get(ctx)
	assert.ErrorIs(t, err, ErrSealedSlot)
	assert.False(t, ok)
	require.NoError(t, plain.Close())

	// With the wrong key the slot cannot be opened.
	other, err := NewSealer([]byte(strings.Repeat("x", KeySize)))
	require.NoError(t, err)
	wrong, err := NewDB(path, WithSealer(other))
	require.NoError(t, err)
	defer wrong.Close()
	_, _, err = wrong.Get(ctx)
	assert.ErrorIs(t, err, ErrOpenSlot)
}

package database

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logsvc "github.com/trezcool/edutrack/services/logger"
)

type fakeConn struct {
	mu      sync.Mutex
	queries *[]string
	failOn  map[string]error
	closed  bool
}

func (c *fakeConn) ExecContext(ctx context.Context, query string, _ ...interface{}) (sql.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.queries = append(*c.queries, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for prefix, err := range c.failOn {
		if strings.HasPrefix(query, prefix) {
			return nil, err
		}
	}
	return nil, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newFakeEngine(failOn map[string]error) (*BackupEngine, *[]string, *[]*fakeConn) {
	queries := new([]string)
	conns := new([]*fakeConn)
	eng := &BackupEngine{
		name: "Edu]Track",
		connect: func(ctx context.Context) (execConn, error) {
			c := &fakeConn{queries: queries, failOn: failOn}
			*conns = append(*conns, c)
			return c, nil
		},
		restoreTimeout: time.Minute,
		logger:         logsvc.NewDiscardLogger(),
	}
	return eng, queries, conns
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "[EduTrack]", quoteIdent("EduTrack"))
	assert.Equal(t, "[Edu]]Track]", quoteIdent("Edu]Track"))
	assert.Equal(t, "N'it''s'", quoteString("it's"))
}

func TestBackupEngine_Restore(t *testing.T) {
	eng, queries, conns := newFakeEngine(nil)

	err := eng.Restore(context.Background(), "/var/opt/mssql/backups/x.bak")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"USE [master]",
		"ALTER DATABASE [Edu]]Track] SET SINGLE_USER WITH ROLLBACK IMMEDIATE",
		"RESTORE DATABASE [Edu]]Track] FROM DISK = @p1 WITH REPLACE",
		"ALTER DATABASE [Edu]]Track] SET MULTI_USER",
	}, *queries)
	require.Len(t, *conns, 1)
	assert.True(t, (*conns)[0].closed)
}

func TestBackupEngine_Restore_revertsOnFailure(t *testing.T) {
	restoreErr := errors.New("media is corrupt")
	eng, queries, _ := newFakeEngine(map[string]error{"RESTORE": restoreErr})

	err := eng.Restore(context.Background(), "x.bak")
	require.Error(t, err)
	assert.Equal(t, restoreErr, errors.Cause(err))
	assert.Equal(t, "ALTER DATABASE [Edu]]Track] SET MULTI_USER", (*queries)[len(*queries)-1])
}

func TestBackupEngine_Restore_revertsWhenCancelled(t *testing.T) {
	eng, queries, _ := newFakeEngine(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, eng.Restore(ctx, "x.bak"))
	assert.Contains(t, *queries, "ALTER DATABASE [Edu]]Track] SET MULTI_USER")
}

func TestBackupEngine_Restore_reportsBothErrors(t *testing.T) {
	failOn := map[string]error{"RESTORE": errors.New("media is corrupt")}
	failOn["ALTER DATABASE [Edu]]Track] SET M"] = errors.New("deadlock victim")
	eng, queries, conns := newFakeEngine(failOn)

	err := eng.Restore(context.Background(), "x.bak")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "media is corrupt")
	assert.Contains(t, err.Error(), "deadlock victim")

	var reverts int
	for _, q := range *queries {
		if strings.HasSuffix(q, "SET MULTI_USER") {
			reverts++
		}
	}
	assert.Equal(t, revertAttempts, reverts)
	for _, c := range *conns {
		assert.True(t, c.closed)
	}
}

func TestBackupEngine_Restore_singleUserFailure(t *testing.T) {
	eng, queries, _ := newFakeEngine(map[string]error{"ALTER DATABASE [Edu]]Track] SET S": errors.New("in use")})

	err := eng.Restore(context.Background(), "x.bak")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SINGLE_USER")
	assert.NotContains(t, strings.Join(*queries, "\n"), "RESTORE")
	assert.Contains(t, *queries, "ALTER DATABASE [Edu]]Track] SET MULTI_USER")
}

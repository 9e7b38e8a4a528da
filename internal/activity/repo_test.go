package activity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:activity_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ActivityEvent{}))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	})
	return db
}

func TestRecordAndListRecent(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, enums.ActivityTypeEntryCreated, "entry created for Maija Virtanen", "c0ffee"))
	require.NoError(t, repo.Recordf(ctx, enums.ActivityTypeOrderDone, "order-1", "order %s pressed", "order-1"))

	events, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	byType := map[enums.ActivityType]models.ActivityEvent{}
	for _, event := range events {
		byType[event.Type] = event
	}
	require.Equal(t, "order order-1 pressed", byType[enums.ActivityTypeOrderDone].Message)
	entry := byType[enums.ActivityTypeEntryCreated]
	require.NotNil(t, entry.EntityID)
	require.Equal(t, "c0ffee", *entry.EntityID)
}

func TestListRecentHonorsLimit(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Recordf(ctx, enums.ActivityTypeOrderUpdated, "", "update %d", i))
	}

	events, err := repo.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
}

package queries

import (
	"context"
	"database/sql"
	"testing"

	"github.com/Asaad942/VidFold/pkg/db"
	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserRepository(conn)
	videos := NewVideoRepository(conn)
	ctx := context.Background()

	missing, err := users.FindUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := users.CreateUser(ctx, &db.User{Username: "alice", Email: "a@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	byEmail, err := users.FindUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := users.FindUserByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)

	_, err = users.CreateUser(ctx, &db.User{Username: "again", Email: "a@example.com", PasswordHash: "hash"})
	assert.Error(t, err)

	rec, err := videos.Insert(ctx, video.Record{OwnerID: created.ID.String(), URL: "https://youtu.be/1", Platform: video.PlatformYouTube})
	require.NoError(t, err)

	require.NoError(t, users.DeleteUser(ctx, created.ID))
	_, err = videos.FindByID(ctx, created.ID.String(), rec.ID)
	assert.ErrorIs(t, err, video.ErrNotFound)
	assert.ErrorIs(t, users.DeleteUser(ctx, created.ID), sql.ErrNoRows)
}

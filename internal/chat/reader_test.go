package chat

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"staff-chat/internal/crypto"
	"staff-chat/internal/directory"
	"staff-chat/internal/mocks"
	"staff-chat/internal/models"
)

func encryptedMessage(t *testing.T, key crypto.Key, id, roomID, senderID int, text string, createdAt time.Time) models.Message {
	t.Helper()
	ciphertext, iv, err := crypto.Encrypt(text, key)
	require.NoError(t, err)
	return models.Message{
		ID:         id,
		RoomID:     roomID,
		SenderID:   senderID,
		Ciphertext: ciphertext,
		IV:         iv,
		CreatedAt:  createdAt,
	}
}

func TestLoadHistoryDecryptsMessages(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	dir := new(mocks.DirectoryClientMock)
	reader := NewReader(rooms, messages, dir)

	room := testRoom(t, models.RoomTypeGroup)
	key, err := crypto.ParseKey(room.EncryptionKey)
	require.NoError(t, err)

	now := time.Now().UTC()
	rooms.On("GetParticipant", mock.Anything, 5, 1).Return(models.Participant{RoomID: 5, EmployeeID: 1}, nil).Once()
	rooms.On("GetRoom", mock.Anything, 5).Return(room, nil).Once()
	messages.On("ListMessages", mock.Anything, 5).Return([]models.Message{
		encryptedMessage(t, key, 10, 5, 2, "first", now.Add(-time.Minute)),
		encryptedMessage(t, key, 11, 5, 1, "second", now),
	}, nil).Once()
	dir.On("BulkEmployees", mock.Anything, []int{2, 1}).Return([]directory.Employee{
		{ID: 2, Name: "Mika", AvatarURL: "https://cdn/avatars/2.png"},
		{ID: 1, Name: "Ren"},
	}, nil).Once()

	history, err := reader.LoadHistory(context.Background(), 5, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "first", history[0].Text)
	assert.Equal(t, "Mika", history[0].SenderName)
	assert.Equal(t, "https://cdn/avatars/2.png", history[0].SenderAvatar)
	assert.Equal(t, "second", history[1].Text)
	assert.False(t, history[0].Undecryptable)

	rooms.AssertExpectations(t)
	messages.AssertExpectations(t)
	dir.AssertExpectations(t)
}

func TestLoadHistoryHidesPrivateMessagesBeforeDeletion(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	reader := NewReader(rooms, messages, nil)

	room := testRoom(t, models.RoomTypePrivate)
	key, err := crypto.ParseKey(room.EncryptionKey)
	require.NoError(t, err)

	cutoff := time.Now().UTC().Add(-time.Hour)
	rooms.On("GetParticipant", mock.Anything, 5, 1).Return(models.Participant{
		RoomID:     5,
		EmployeeID: 1,
		DeletedAt:  &cutoff,
	}, nil).Once()
	rooms.On("GetRoom", mock.Anything, 5).Return(room, nil).Once()
	messages.On("ListMessages", mock.Anything, 5).Return([]models.Message{
		encryptedMessage(t, key, 10, 5, 2, "old", cutoff.Add(-time.Minute)),
		encryptedMessage(t, key, 11, 5, 2, "at cutoff", cutoff),
		encryptedMessage(t, key, 12, 5, 2, "new", cutoff.Add(time.Minute)),
	}, nil).Once()

	history, err := reader.LoadHistory(context.Background(), 5, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "new", history[0].Text)
}

func TestLoadHistoryGroupIgnoresDeletionCursor(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	reader := NewReader(rooms, messages, nil)

	room := testRoom(t, models.RoomTypeGroup)
	key, err := crypto.ParseKey(room.EncryptionKey)
	require.NoError(t, err)

	cutoff := time.Now().UTC()
	rooms.On("GetParticipant", mock.Anything, 5, 1).Return(models.Participant{
		RoomID:     5,
		EmployeeID: 1,
		DeletedAt:  &cutoff,
	}, nil).Once()
	rooms.On("GetRoom", mock.Anything, 5).Return(room, nil).Once()
	messages.On("ListMessages", mock.Anything, 5).Return([]models.Message{
		encryptedMessage(t, key, 10, 5, 2, "old", cutoff.Add(-time.Hour)),
	}, nil).Once()

	history, err := reader.LoadHistory(context.Background(), 5, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "old", history[0].Text)
}

func TestLoadHistoryMarksUndecryptableRows(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	reader := NewReader(rooms, messages, nil)

	room := testRoom(t, models.RoomTypeGroup)
	key, err := crypto.ParseKey(room.EncryptionKey)
	require.NoError(t, err)

	now := time.Now().UTC()
	good := encryptedMessage(t, key, 10, 5, 2, "ok", now)
	bad := good
	bad.ID = 11
	bad.Ciphertext = base64.StdEncoding.EncodeToString(make([]byte, 18))

	rooms.On("GetParticipant", mock.Anything, 5, 1).Return(models.Participant{RoomID: 5, EmployeeID: 1}, nil).Once()
	rooms.On("GetRoom", mock.Anything, 5).Return(room, nil).Once()
	messages.On("ListMessages", mock.Anything, 5).Return([]models.Message{good, bad}, nil).Once()

	history, err := reader.LoadHistory(context.Background(), 5, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "ok", history[0].Text)
	assert.True(t, history[1].Undecryptable)
	assert.Empty(t, history[1].Text)
}

func TestLoadHistoryFailsOnMalformedRoomKey(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	reader := NewReader(rooms, messages, nil)

	rooms.On("GetParticipant", mock.Anything, 5, 1).Return(models.Participant{RoomID: 5, EmployeeID: 1}, nil).Once()
	rooms.On("GetRoom", mock.Anything, 5).Return(models.Room{ID: 5, EncryptionKey: "short"}, nil).Once()

	_, err := reader.LoadHistory(context.Background(), 5, 1)
	assert.ErrorIs(t, err, crypto.ErrKeyFormat)
	messages.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything)
}

func TestMarkReadDelegates(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	reader := NewReader(rooms, new(mocks.MessageRepositoryMock), nil)

	rooms.On("MarkRead", mock.Anything, 5, 1).Return(nil).Once()
	require.NoError(t, reader.MarkRead(context.Background(), 5, 1))
	rooms.AssertExpectations(t)
}

package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"staff-chat/internal/crypto"
	"staff-chat/internal/mocks"
	"staff-chat/internal/models"
	"staff-chat/internal/queue"
	"staff-chat/internal/repositories"
)

func testRoom(t *testing.T, roomType models.RoomType) models.Room {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return models.Room{ID: 5, Type: roomType, EncryptionKey: key}
}

func TestSendEnqueuesEncryptedJob(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	publisher := new(mocks.PublisherMock)
	sender := NewSender(rooms, publisher)

	room := testRoom(t, models.RoomTypeGroup)
	rooms.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	rooms.On("GetRoom", mock.Anything, 5).Return(room, nil).Once()

	var published queue.SendJob
	publisher.On("PublishSend", mock.Anything, mock.MatchedBy(func(job queue.SendJob) bool {
		published = job
		return job.RoomID == 5 && job.SenderID == 1 && job.JobID != ""
	})).Return(nil).Once()

	pending, err := sender.Send(context.Background(), 5, 1, "hello")
	require.NoError(t, err)

	assert.Equal(t, published.JobID, pending.JobID)
	assert.Equal(t, 5, pending.RoomID)
	assert.Equal(t, 1, pending.SenderID)
	assert.Equal(t, "hello", pending.Text)

	// The queue never sees plaintext.
	assert.NotEqual(t, "hello", published.Ciphertext)
	key, err := crypto.ParseKey(room.EncryptionKey)
	require.NoError(t, err)
	plaintext, err := crypto.Decrypt(published.Ciphertext, published.IV, key)
	require.NoError(t, err)
	assert.Equal(t, "hello", plaintext)

	rooms.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestSendRejectsNonParticipant(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	publisher := new(mocks.PublisherMock)
	sender := NewSender(rooms, publisher)

	rooms.On("IsParticipant", mock.Anything, 5, 9).Return(false, nil).Once()

	_, err := sender.Send(context.Background(), 5, 9, "hello")
	assert.ErrorIs(t, err, repositories.ErrNotParticipant)

	publisher.AssertNotCalled(t, "PublishSend", mock.Anything, mock.Anything)
	rooms.AssertExpectations(t)
}

func TestSendReturnsNoPendingOnQueueFailure(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	publisher := new(mocks.PublisherMock)
	sender := NewSender(rooms, publisher)

	room := testRoom(t, models.RoomTypePrivate)
	rooms.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	rooms.On("GetRoom", mock.Anything, 5).Return(room, nil).Once()
	publisher.On("PublishSend", mock.Anything, mock.Anything).Return(queue.ErrQueueUnavailable).Once()

	pending, err := sender.Send(context.Background(), 5, 1, "hello")
	assert.ErrorIs(t, err, queue.ErrQueueUnavailable)
	assert.Empty(t, pending.JobID)

	rooms.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestSendFailsOnMalformedRoomKey(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	publisher := new(mocks.PublisherMock)
	sender := NewSender(rooms, publisher)

	rooms.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	rooms.On("GetRoom", mock.Anything, 5).Return(models.Room{ID: 5, EncryptionKey: "not-hex"}, nil).Once()

	_, err := sender.Send(context.Background(), 5, 1, "hello")
	assert.ErrorIs(t, err, crypto.ErrKeyFormat)

	publisher.AssertNotCalled(t, "PublishSend", mock.Anything, mock.Anything)
}

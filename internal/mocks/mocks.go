package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"staff-chat/internal/directory"
	"staff-chat/internal/models"
	"staff-chat/internal/queue"
	"staff-chat/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)

func (m *RoomRepositoryMock) CreateGroupRoom(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Room, error) {
	args := m.Called(ctx, creatorID, name, memberIDs)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) FindOrCreatePrivateRoom(ctx context.Context, callerID, peerID int) (models.Room, error) {
	args := m.Called(ctx, callerID, peerID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) FindOrCreateStoreRoom(ctx context.Context, storeID int, name string, memberIDs []int) (models.Room, error) {
	args := m.Called(ctx, storeID, name, memberIDs)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetParticipant(ctx context.Context, roomID, employeeID int) (models.Participant, error) {
	args := m.Called(ctx, roomID, employeeID)
	var participant models.Participant
	if val := args.Get(0); val != nil {
		participant = val.(models.Participant)
	}
	return participant, args.Error(1)
}

func (m *RoomRepositoryMock) IsParticipant(ctx context.Context, roomID, employeeID int) (bool, error) {
	args := m.Called(ctx, roomID, employeeID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) ListParticipants(ctx context.Context, roomID int) ([]models.Participant, error) {
	args := m.Called(ctx, roomID)
	var list []models.Participant
	if val := args.Get(0); val != nil {
		list = val.([]models.Participant)
	}
	return list, args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomsForEmployee(ctx context.Context, employeeID int) ([]models.RoomSummary, error) {
	args := m.Called(ctx, employeeID)
	var list []models.RoomSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.RoomSummary)
	}
	return list, args.Error(1)
}

func (m *RoomRepositoryMock) AddParticipants(ctx context.Context, roomID, actorID int, employeeIDs []int) error {
	args := m.Called(ctx, roomID, actorID, employeeIDs)
	return args.Error(0)
}

func (m *RoomRepositoryMock) RemoveParticipant(ctx context.Context, roomID, actorID, employeeID int) error {
	args := m.Called(ctx, roomID, actorID, employeeID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) SetAdmin(ctx context.Context, roomID, actorID, employeeID int, isAdmin bool) error {
	args := m.Called(ctx, roomID, actorID, employeeID, isAdmin)
	return args.Error(0)
}

func (m *RoomRepositoryMock) UpdateRoomName(ctx context.Context, roomID, actorID int, name string) error {
	args := m.Called(ctx, roomID, actorID, name)
	return args.Error(0)
}

func (m *RoomRepositoryMock) DeleteRoom(ctx context.Context, roomID, actorID int) error {
	args := m.Called(ctx, roomID, actorID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) HideRoomForEmployee(ctx context.Context, roomID, employeeID int) error {
	args := m.Called(ctx, roomID, employeeID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) MarkRead(ctx context.Context, roomID, employeeID int) error {
	args := m.Called(ctx, roomID, employeeID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)

func (m *MessageRepositoryMock) InsertMessage(ctx context.Context, roomID, senderID int, ciphertext, iv, jobID string) (models.Message, error) {
	args := m.Called(ctx, roomID, senderID, ciphertext, iv, jobID)
	var message models.Message
	if val := args.Get(0); val != nil {
		message = val.(models.Message)
	}
	return message, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, roomID int) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) CountMessagesAfter(ctx context.Context, roomID, excludeSenderID int, after time.Time) (int, error) {
	args := m.Called(ctx, roomID, excludeSenderID, after)
	return args.Int(0), args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

var _ queue.Publisher = (*PublisherMock)(nil)

func (m *PublisherMock) PublishSend(ctx context.Context, job queue.SendJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type DirectoryClientMock struct {
	mock.Mock
}

var _ directory.Client = (*DirectoryClientMock)(nil)

func (m *DirectoryClientMock) BulkEmployees(ctx context.Context, ids []int) ([]directory.Employee, error) {
	args := m.Called(ctx, ids)
	var list []directory.Employee
	if val := args.Get(0); val != nil {
		list = val.([]directory.Employee)
	}
	return list, args.Error(1)
}

func (m *DirectoryClientMock) StoreMembers(ctx context.Context, storeID int) ([]int, error) {
	args := m.Called(ctx, storeID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

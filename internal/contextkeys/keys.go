package contextkeys

import (
	"context"

	"github.com/mnbots/mnbot/types"
)

type messageTypeKey struct{}
type filesInfoKey struct{}

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypePhoto       MessageType = "photo"
	MessageTypeVideo       MessageType = "video"
	MessageTypeDocument    MessageType = "document"
	MessageTypeAudio       MessageType = "audio"
	MessageTypeVoice       MessageType = "voice"
	MessageTypeSticker     MessageType = "sticker"
	MessageTypeUnknown     MessageType = "unknown"
	MessageTypeCommand     MessageType = "command"
	MessageTypeCallback    MessageType = "callback"
	MessageTypeJoinRequest MessageType = "join_request"
)

type FilesInfo struct {
	Files []types.FileRef
}

func WithMessageType(ctx context.Context, msgType MessageType) context.Context {
	return context.WithValue(ctx, messageTypeKey{}, msgType)
}

func GetMessageType(ctx context.Context) (MessageType, bool) {
	v, ok := ctx.Value(messageTypeKey{}).(MessageType)
	if !ok {
		return MessageTypeUnknown, false
	}
	return v, true
}

func WithFilesInfo(ctx context.Context, info *FilesInfo) context.Context {
	return context.WithValue(ctx, filesInfoKey{}, info)
}

func GetFilesInfo(ctx context.Context) (*FilesInfo, bool) {
	v, ok := ctx.Value(filesInfoKey{}).(*FilesInfo)
	return v, ok && v != nil
}

// GetFileInfo returns the index-th attachment of the current message.
func GetFileInfo(ctx context.Context, index int) (types.FileRef, bool) {
	info, ok := GetFilesInfo(ctx)
	if !ok || index < 0 || index >= len(info.Files) {
		return types.FileRef{}, false
	}
	return info.Files[index], true
}

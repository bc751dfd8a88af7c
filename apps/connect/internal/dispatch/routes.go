package dispatch

import (
	"SocialSync/apps/connect/internal/service"
	"SocialSync/consts"
	"context"
	"encoding/json"
	"fmt"
)

// RegisterRoutes 注册好友关系与会话相关事件。
// 接受/拒绝申请是单向命令，不回写结果。
func RegisterRoutes(d *Dispatcher, relationships service.IRelationshipService, chats service.IChatService) {
	d.Handle(consts.EventGetFriendRequests, consts.EventFriendRequests,
		func(ctx context.Context, conn Conn, _ json.RawMessage) (any, error) {
			return relationships.ListPendingRequests(ctx, conn.UserID())
		})

	d.Handle(consts.EventAcceptFriendRequest, "",
		func(ctx context.Context, conn Conn, payload json.RawMessage) (any, error) {
			byUserID, err := StringArg(payload, "byUserId")
			if err != nil {
				return nil, fmt.Errorf("%w: %w", service.ErrPrecondition, err)
			}
			return nil, relationships.AcceptRequest(ctx, conn.UserID(), byUserID)
		})

	d.Handle(consts.EventRejectFriendRequest, "",
		func(ctx context.Context, conn Conn, payload json.RawMessage) (any, error) {
			byUserID, err := StringArg(payload, "byUserId")
			if err != nil {
				return nil, fmt.Errorf("%w: %w", service.ErrPrecondition, err)
			}
			return nil, relationships.RejectRequest(ctx, conn.UserID(), byUserID)
		})

	d.Handle(consts.EventGetFriendList, consts.EventFriendList,
		func(ctx context.Context, conn Conn, _ json.RawMessage) (any, error) {
			return relationships.ListFriends(ctx, conn.UserID())
		})

	d.Handle(consts.EventGetChats, consts.EventChats,
		func(ctx context.Context, conn Conn, _ json.RawMessage) (any, error) {
			return chats.ListChats(ctx, conn.UserID())
		})

	d.Handle(consts.EventCreateNewChatRoom, consts.EventNewChatRoom,
		func(ctx context.Context, conn Conn, payload json.RawMessage) (any, error) {
			otherUserID, err := StringArg(payload, "otherUserId")
			if err != nil {
				return nil, fmt.Errorf("%w: %w", service.ErrPrecondition, err)
			}
			return chats.CreateChat(ctx, conn.UserID(), otherUserID)
		})
}

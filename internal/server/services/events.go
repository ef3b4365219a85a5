package services

import (
	"context"

	"github.com/dmitrijs2005/pulse/internal/realtime"
)

// ChangePublisher fans committed row changes out to realtime subscribers.
type ChangePublisher interface {
	PublishRowChange(ctx context.Context, change realtime.RowChange)
}

// PushDispatcher relays a notification to the recipient's devices without
// blocking the caller.
type PushDispatcher interface {
	Dispatch(ctx context.Context, p PushPayload)
}

type nopPublisher struct{}

func (nopPublisher) PublishRowChange(context.Context, realtime.RowChange) {}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, PushPayload) {}

func boolPtr(b bool) *bool { return &b }

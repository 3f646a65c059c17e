package service

import (
	"context"
	"errors"

	"ms-catalog/internal/config"
)

// Publisher emits catalog change notifications. Publishing happens after the
// unit of work commits; a failed publish is logged, never rolled back.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// NameLocker serialises category writes that claim the same name across
// service instances.
type NameLocker interface {
	Lock(ctx context.Context, name, owner string) (bool, error)
	Unlock(ctx context.Context, name, owner string) error
}

// Publishers sends each message to every publisher in turn and joins their
// errors.
type Publishers []Publisher

func (p Publishers) Publish(ctx context.Context, topic, key string, payload any) error {
	var errs error
	for _, pub := range p {
		if pub == nil {
			continue
		}
		errs = errors.Join(errs, pub.Publish(ctx, topic, key, payload))
	}
	return errs
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, string, any) error { return nil }

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string, string) (bool, error) { return true, nil }
func (noopLocker) Unlock(context.Context, string, string) error       { return nil }

// Deps carries the optional collaborators shared by the catalog services.
// Nil fields fall back to no-ops.
type Deps struct {
	Publisher Publisher
	Locker    NameLocker
	Topics    config.TopicConfig
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = noopPublisher{}
	}
	if d.Locker == nil {
		d.Locker = noopLocker{}
	}
	return d
}

package storage

import (
	"context"

	"launchkit/internal/model"
)

// Sink receives audit records emitted by the launch and fee flows.
type Sink interface {
	PutLaunch(ctx context.Context, record model.LaunchRecord) error
	PutRegistration(ctx context.Context, record model.CreatorRegistration) error
	PutPendingSettlement(ctx context.Context, record model.PendingSettlement) error
	PutFeeCollection(ctx context.Context, record model.FeeCollectionRecord) error
}

// Multi fans records out to several sinks, failing on the first error.
type Multi []Sink

func (m Multi) PutLaunch(ctx context.Context, record model.LaunchRecord) error {
	for _, s := range m {
		if err := s.PutLaunch(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) PutRegistration(ctx context.Context, record model.CreatorRegistration) error {
	for _, s := range m {
		if err := s.PutRegistration(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) PutPendingSettlement(ctx context.Context, record model.PendingSettlement) error {
	for _, s := range m {
		if err := s.PutPendingSettlement(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) PutFeeCollection(ctx context.Context, record model.FeeCollectionRecord) error {
	for _, s := range m {
		if err := s.PutFeeCollection(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// Nop discards all records.
type Nop struct{}

func (Nop) PutLaunch(context.Context, model.LaunchRecord) error                 { return nil }
func (Nop) PutRegistration(context.Context, model.CreatorRegistration) error    { return nil }
func (Nop) PutPendingSettlement(context.Context, model.PendingSettlement) error { return nil }
func (Nop) PutFeeCollection(context.Context, model.FeeCollectionRecord) error   { return nil }

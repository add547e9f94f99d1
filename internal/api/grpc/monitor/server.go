package monitor

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/outage-watch/internal/domain/outage"
	"github.com/oshokin/outage-watch/internal/logger"
	"github.com/oshokin/outage-watch/internal/source"
)

// Trigger runs one poll cycle on demand.
type Trigger interface {
	TriggerCheck(ctx context.Context) (*outage.CycleReport, error)
}

// Server implements MonitorService.
type Server struct {
	// trigger runs the cycle.
	trigger Trigger
}

// NewServer wires the trigger into a gRPC handler.
func NewServer(trigger Trigger) *Server {
	return &Server{
		trigger: trigger,
	}
}

// CheckNow runs one cycle and returns its report.
func (s *Server) CheckNow(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	logger.InfoKV(ctx, "Manual check requested", "actor", actorFrom(ctx))

	report, err := s.trigger.TriggerCheck(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	reply, err := toProtoReport(report)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode report")
	}

	return reply, nil
}

// toStatus maps cycle errors to gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, source.ErrSourceUnavailable), errors.Is(err, source.ErrNoRows):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "check failed")
	}
}

// toProtoReport converts a report into a Struct.
func toProtoReport(report *outage.CycleReport) (*structpb.Struct, error) {
	if report == nil {
		return &structpb.Struct{}, nil
	}

	return structpb.NewStruct(map[string]any{
		"cycle_id":   report.CycleID,
		"started_at": report.StartedAt.UTC().Format(time.RFC3339),
		"duration":   report.Duration.String(),
		"rows":       report.Rows,
		"appended":   report.Appended,
		"notified":   report.Notified,
		"failed":     report.Failed,
	})
}

// actorFrom extracts the caller identity from metadata.
func actorFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "unknown"
	}

	if values := md.Get(ActorMetadataKey); len(values) > 0 && values[0] != "" {
		return values[0]
	}

	return "unknown"
}

package rpc

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"

	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
)

const serviceName = "catalog.BookingHandler"

// BookingHandlerServer is the server side of catalog.BookingHandler.
type BookingHandlerServer interface {
	GetEventInformation(ctx context.Context, req *EventInformationRequest) (*EventInformationReply, error)
	UpdateSeatsLeft(ctx context.Context, req *SeatsRequest) (*SeatsReply, error)
}

type EventReader interface {
	GetOne(ctx context.Context, id string) models.Result[models.EventModel]
}

type SeatDebiter interface {
	DebitSeats(ctx context.Context, eventID string, count int) models.Result[models.SeatDebit]
}

// Server answers booking calls from the catalog. Failures are reported in the
// reply body, never as gRPC status errors.
type Server struct {
	Events EventReader
	Ledger SeatDebiter
	Logger *logger.Logger
}

func NewServer(events EventReader, ledger SeatDebiter, log *logger.Logger) *Server {
	return &Server{Events: events, Ledger: ledger, Logger: log}
}

// Register attaches the booking service to gs.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&BookingHandlerServiceDesc, s)
}

func (s *Server) GetEventInformation(ctx context.Context, req *EventInformationRequest) (*EventInformationReply, error) {
	if req == nil || strings.TrimSpace(req.ID) == "" {
		s.Logger.Warn("GRPC", "GetEventInformation was called without an id")
		return &EventInformationReply{Success: false, Message: "Request can not be null."}, nil
	}

	res := s.Events.GetOne(ctx, req.ID)
	if !res.Success || res.Data == nil {
		s.Logger.Warn("GRPC", fmt.Sprintf("Failed to get event information for %s: %s", req.ID, res.ErrorMessage))
		return &EventInformationReply{Success: false, Message: "Failed to get event information."}, nil
	}

	e := res.Data
	return &EventInformationReply{
		Success: true,
		Event: &EventInfo{
			ID:            e.ID,
			EventName:     e.EventName,
			Start:         e.Start.UTC(),
			End:           e.End.UTC(),
			SeatsLeft:     e.SeatsLeft,
			PricePerSeat:  e.Price,
			Currency:      e.Currency,
			Venue:         e.Venue,
			StreetAddress: e.StreetAddress,
			PostalCode:    e.PostalCode,
			City:          e.City,
			Country:       e.Country,
		},
	}, nil
}

func (s *Server) UpdateSeatsLeft(ctx context.Context, req *SeatsRequest) (*SeatsReply, error) {
	if req == nil {
		return &SeatsReply{Success: false, Message: "Request can not be null.", StatusCode: 400}, nil
	}

	res := s.Ledger.DebitSeats(ctx, req.ID, req.SeatsOrdered)
	if !res.Success {
		s.Logger.LogLedger("DEBIT_RPC", req.ID, fmt.Sprintf("rejected (%d): %s", res.StatusCode, res.ErrorMessage))
		return &SeatsReply{Success: false, Message: res.ErrorMessage, StatusCode: res.StatusCode}, nil
	}

	s.Logger.LogLedger("DEBIT_RPC", req.ID, fmt.Sprintf("%d seats, %d left", req.SeatsOrdered, res.Data.SeatsLeft))
	return &SeatsReply{
		Success:    true,
		Message:    fmt.Sprintf("Seats successfully updated for event with id %s", req.ID),
		SeatsLeft:  res.Data.SeatsLeft,
		StatusCode: res.StatusCode,
	}, nil
}

func getEventInformationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(EventInformationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingHandlerServer).GetEventInformation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetEventInformation"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingHandlerServer).GetEventInformation(ctx, req.(*EventInformationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func updateSeatsLeftHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SeatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingHandlerServer).UpdateSeatsLeft(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/UpdateSeatsLeft"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingHandlerServer).UpdateSeatsLeft(ctx, req.(*SeatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var BookingHandlerServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BookingHandlerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetEventInformation", Handler: getEventInformationHandler},
		{MethodName: "UpdateSeatsLeft", Handler: updateSeatsLeftHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/booking.proto",
}

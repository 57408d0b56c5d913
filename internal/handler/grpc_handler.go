package handler

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/pesio-ai/be-brand-navigator/internal/client"
	"github.com/pesio-ai/be-brand-navigator/internal/errors"
	"github.com/pesio-ai/be-brand-navigator/internal/service"
	brandstatus "github.com/pesio-ai/be-brand-navigator/internal/status"
)

// NavigatorServiceName is the fully qualified gRPC service name.
const NavigatorServiceName = "brandnav.v1.NavigatorService"

// NavigatorServer is the gRPC surface of the brand service. Requests and
// responses are google.protobuf.Struct documents using the same field names
// as the HTTP API.
type NavigatorServer interface {
	GetNavigation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ProgressBrand(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RevertBrand(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListSteps(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// GRPCHandler implements NavigatorServer.
type GRPCHandler struct {
	service *service.BrandService
	logger  zerolog.Logger
}

// NewGRPCHandler creates a new gRPC handler
func NewGRPCHandler(service *service.BrandService, logger zerolog.Logger) *GRPCHandler {
	return &GRPCHandler{
		service: service,
		logger:  logger.With().Str("handler", "grpc").Logger(),
	}
}

// RegisterNavigatorServer registers srv on s.
func RegisterNavigatorServer(s grpc.ServiceRegistrar, srv NavigatorServer) {
	s.RegisterService(&NavigatorServiceDesc, srv)
}

// userID reads the acting user from incoming metadata.
func userID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(client.UserIDMetadataKey); len(v) > 0 {
		return v[0]
	}
	return ""
}

// GetNavigation returns the route and step for a brand.
func (h *GRPCHandler) GetNavigation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "id")
	h.logger.Debug().Str("brand_id", id).Msg("gRPC GetNavigation called")

	nav, err := h.service.Navigation(ctx, id)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to get navigation")
		return nil, mapErrorToGRPC(err)
	}
	return navigationToStruct(nav)
}

// ProgressBrand advances a brand by one stage.
func (h *GRPCHandler) ProgressBrand(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uid := userID(ctx)
	id := stringField(req, "id")
	h.logger.Info().
		Str("brand_id", id).
		Str("acted_by", uid).
		Msg("gRPC ProgressBrand called")

	brand, err := h.service.ProgressBrand(ctx, &service.ProgressBrandRequest{
		ID:             id,
		ExpectedStatus: stringField(req, "expected_status"),
		ActedBy:        uid,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to progress brand")
		return nil, mapErrorToGRPC(err)
	}
	return h.GetNavigation(ctx, idStruct(brand.ID))
}

// RevertBrand moves a brand back to an earlier stage.
func (h *GRPCHandler) RevertBrand(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uid := userID(ctx)
	id := stringField(req, "id")
	step := int(req.GetFields()["step"].GetNumberValue())
	h.logger.Info().
		Str("brand_id", id).
		Int("step", step).
		Str("acted_by", uid).
		Msg("gRPC RevertBrand called")

	brand, err := h.service.RevertBrand(ctx, &service.RevertBrandRequest{
		ID:        id,
		Step:      step,
		Confirmed: req.GetFields()["confirmed"].GetBoolValue(),
		ActedBy:   uid,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to revert brand")
		return nil, mapErrorToGRPC(err)
	}
	return h.GetNavigation(ctx, idStruct(brand.ID))
}

// ListSteps describes the progress display.
func (h *GRPCHandler) ListSteps(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"dev_mode": h.service.DevMode(),
		"steps":    stepsToList(h.service.ListSteps()),
	})
}

// Helper functions

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func idStruct(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue(id)}}
}

func navigationToStruct(nav *service.NavigationView) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"brand_id": nav.BrandID,
		"status":   string(nav.Status),
		"route":    nav.Route,
		"step":     nav.Step,
		"known":    nav.Known,
		"dev_mode": nav.DevMode,
		"steps":    stepsToList(nav.Steps),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

func stepsToList(steps []brandstatus.StepInfo) []interface{} {
	out := make([]interface{}, len(steps))
	for i, st := range steps {
		entry := map[string]interface{}{
			"number":     st.Number,
			"status":     string(st.Status),
			"title":      st.Title,
			"revertible": st.Revertible,
			"current":    st.Current,
			"done":       st.Done,
		}
		if st.Route != "" {
			entry["route"] = st.Route
		}
		out[i] = entry
	}
	return out
}

func mapErrorToGRPC(err error) error {
	if err == nil {
		return nil
	}

	switch errors.CodeOf(err) {
	case errors.ErrCodeNotFound:
		return status.Error(codes.NotFound, err.Error())
	case errors.ErrCodeInvalidInput:
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.ErrCodeConflict:
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.ErrCodeUnavailable:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// ── service descriptor ───────────────────────────────────────────────────────

// NavigatorServiceDesc describes NavigatorService for grpc.Server.
var NavigatorServiceDesc = grpc.ServiceDesc{
	ServiceName: NavigatorServiceName,
	HandlerType: (*NavigatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetNavigation", Handler: unaryHandler("GetNavigation", NavigatorServer.GetNavigation)},
		{MethodName: "ProgressBrand", Handler: unaryHandler("ProgressBrand", NavigatorServer.ProgressBrand)},
		{MethodName: "RevertBrand", Handler: unaryHandler("RevertBrand", NavigatorServer.RevertBrand)},
		{MethodName: "ListSteps", Handler: unaryHandler("ListSteps", NavigatorServer.ListSteps)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "brandnav/v1/navigator.proto",
}

type structMethod func(NavigatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call structMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + NavigatorServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NavigatorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(NavigatorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

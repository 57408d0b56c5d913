package handler

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/pesio-ai/be-brand-navigator/internal/client"
	"github.com/pesio-ai/be-brand-navigator/internal/logger"
	"github.com/pesio-ai/be-brand-navigator/internal/repository"
	"github.com/pesio-ai/be-brand-navigator/internal/service"
)

const bufSize = 1 << 20

type grpcFixture struct {
	svc  *service.BrandService
	conn *grpc.ClientConn
	lis  *bufconn.Listener
}

func setupGRPC(t *testing.T, devMode bool) *grpcFixture {
	t.Helper()

	repo := repository.NewMemoryRepository()
	svc := service.NewBrandService(repo, repo, nil, devMode, logger.Nop())

	log := logger.Nop().Logger
	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryRecovery(log), UnaryLogging(log)))
	RegisterNavigatorServer(srv, NewGRPCHandler(svc, log))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
	})
	return &grpcFixture{svc: svc, conn: conn, lis: lis}
}

func (f *grpcFixture) call(t *testing.T, ctx context.Context, method string, fields map[string]interface{}) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	resp := new(structpb.Struct)
	err = f.conn.Invoke(ctx, "/"+NavigatorServiceName+"/"+method, req, resp)
	return resp, err
}

func TestGRPC_NavigationLifecycle(t *testing.T) {
	t.Parallel()

	f := setupGRPC(t, false)
	ctx := client.WithUserID(context.Background(), "user-7")

	brand, err := f.svc.CreateBrand(ctx, &service.CreateBrandRequest{OwnerID: "user-7", Name: "Acme"})
	require.NoError(t, err)

	resp, err := f.call(t, ctx, "GetNavigation", map[string]interface{}{"id": brand.ID})
	require.NoError(t, err)
	assert.Equal(t, "/brands/"+brand.ID+"/questionnaire", resp.Fields["route"].GetStringValue())
	assert.Equal(t, float64(0), resp.Fields["step"].GetNumberValue())
	assert.True(t, resp.Fields["known"].GetBoolValue())

	for i := 0; i < 2; i++ {
		resp, err = f.call(t, ctx, "ProgressBrand", map[string]interface{}{"id": brand.ID})
		require.NoError(t, err)
	}
	assert.Equal(t, "summary", resp.Fields["status"].GetStringValue())
	assert.Equal(t, "/brands/"+brand.ID+"/summary", resp.Fields["route"].GetStringValue())
	assert.Equal(t, float64(2), resp.Fields["step"].GetNumberValue())

	resp, err = f.call(t, ctx, "RevertBrand", map[string]interface{}{"id": brand.ID, "step": 1, "confirmed": true})
	require.NoError(t, err)
	assert.Equal(t, "questionnaire", resp.Fields["status"].GetStringValue())

	history, err := f.svc.History(ctx, brand.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "user-7", history[3].PerformedBy)
}

func TestGRPC_ErrorCodes(t *testing.T) {
	t.Parallel()

	f := setupGRPC(t, false)
	ctx := context.Background()

	brand, err := f.svc.CreateBrand(ctx, &service.CreateBrandRequest{OwnerID: "user-1", Name: "Acme"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		fields map[string]interface{}
		want   codes.Code
	}{
		{name: "unknown brand", method: "GetNavigation", fields: map[string]interface{}{"id": "missing"}, want: codes.NotFound},
		{name: "missing id", method: "GetNavigation", fields: map[string]interface{}{}, want: codes.InvalidArgument},
		{name: "unconfirmed revert", method: "RevertBrand", fields: map[string]interface{}{"id": brand.ID, "step": 1}, want: codes.InvalidArgument},
		{name: "forward revert", method: "RevertBrand", fields: map[string]interface{}{"id": brand.ID, "step": 4, "confirmed": true}, want: codes.FailedPrecondition},
		{name: "payment hidden", method: "RevertBrand", fields: map[string]interface{}{"id": brand.ID, "step": 12, "confirmed": true}, want: codes.InvalidArgument},
		{name: "stale progress", method: "ProgressBrand", fields: map[string]interface{}{"id": brand.ID, "expected_status": "jtbd"}, want: codes.FailedPrecondition},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.call(t, ctx, tt.method, tt.fields)
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err), err.Error())
		})
	}
}

func TestGRPC_ListSteps(t *testing.T) {
	t.Parallel()

	for _, devMode := range []bool{false, true} {
		f := setupGRPC(t, devMode)
		resp, err := f.call(t, context.Background(), "ListSteps", map[string]interface{}{})
		require.NoError(t, err)

		assert.Equal(t, devMode, resp.Fields["dev_mode"].GetBoolValue())
		steps := resp.Fields["steps"].GetListValue().GetValues()
		last := steps[len(steps)-1].GetStructValue().GetFields()
		assert.Equal(t, "completed", last["status"].GetStringValue())
		if devMode {
			assert.Len(t, steps, 14)
			assert.Equal(t, float64(13), last["number"].GetNumberValue())
		} else {
			assert.Len(t, steps, 13)
			assert.Equal(t, float64(12), last["number"].GetNumberValue())
		}
	}
}

func TestGRPC_RecoveryInterceptor(t *testing.T) {
	t.Parallel()

	log := logger.Nop().Logger
	interceptor := UnaryRecovery(log)
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("boom")
		})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestGRPC_NavigatorClient(t *testing.T) {
	t.Parallel()

	f := setupGRPC(t, true)
	ctx := context.Background()

	nc, err := client.NewNavigatorGRPCClient("passthrough:///bufnet", "user-9",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return f.lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	defer nc.Close()

	brand, err := f.svc.CreateBrand(ctx, &service.CreateBrandRequest{OwnerID: "user-9", Name: "Acme"})
	require.NoError(t, err)

	nav, err := nc.ProgressBrand(ctx, brand.ID, "new_brand")
	require.NoError(t, err)
	assert.Equal(t, "questionnaire", nav.Status)
	assert.Equal(t, 1, nav.Step)
	assert.True(t, nav.DevMode)
	require.Len(t, nav.Steps, 14)
	assert.True(t, nav.Steps[1].Current)
	assert.True(t, nav.Steps[0].Done)

	_, err = nc.ProgressBrand(ctx, brand.ID, "new_brand")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	nav, err = nc.GetNavigation(ctx, brand.ID)
	require.NoError(t, err)
	assert.Equal(t, "/brands/"+brand.ID+"/questionnaire", nav.Route)

	steps, err := nc.ListSteps(ctx)
	require.NoError(t, err)
	assert.True(t, steps.DevMode)
	assert.Equal(t, "payment", steps.Steps[12].Status)

	history, err := f.svc.History(ctx, brand.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-9", history[len(history)-1].PerformedBy)
}

package client

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const navigatorService = "/brandnav.v1.NavigatorService/"

// NavigatorGRPCClient is a gRPC client for the brand navigator service
type NavigatorGRPCClient struct {
	conn *grpc.ClientConn
}

// NewNavigatorGRPCClient creates a new navigator service gRPC client. Calls
// are stamped with userID when the context does not carry one.
func NewNavigatorGRPCClient(addr, userID string, opts ...grpc.DialOption) (*NavigatorGRPCClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(forwardMetadata, actingUser(userID)),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	return &NavigatorGRPCClient{conn: conn}, nil
}

// Close closes the gRPC connection
func (c *NavigatorGRPCClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// GetNavigation retrieves the route and step for a brand
func (c *NavigatorGRPCClient) GetNavigation(ctx context.Context, brandID string) (*Navigation, error) {
	var nav Navigation
	if err := c.invoke(ctx, "GetNavigation", map[string]interface{}{"id": brandID}, &nav); err != nil {
		return nil, fmt.Errorf("failed to get navigation: %w", err)
	}
	return &nav, nil
}

// ProgressBrand advances a brand by one stage. expectedStatus may be empty.
func (c *NavigatorGRPCClient) ProgressBrand(ctx context.Context, brandID, expectedStatus string) (*Navigation, error) {
	req := map[string]interface{}{"id": brandID}
	if expectedStatus != "" {
		req["expected_status"] = expectedStatus
	}

	var nav Navigation
	if err := c.invoke(ctx, "ProgressBrand", req, &nav); err != nil {
		return nil, fmt.Errorf("failed to progress brand: %w", err)
	}
	return &nav, nil
}

// RevertBrand moves a brand back to the stage shown at step.
func (c *NavigatorGRPCClient) RevertBrand(ctx context.Context, brandID string, step int, confirmed bool) (*Navigation, error) {
	var nav Navigation
	err := c.invoke(ctx, "RevertBrand", map[string]interface{}{
		"id":        brandID,
		"step":      step,
		"confirmed": confirmed,
	}, &nav)
	if err != nil {
		return nil, fmt.Errorf("failed to revert brand: %w", err)
	}
	return &nav, nil
}

// ListSteps retrieves the progress display definition
func (c *NavigatorGRPCClient) ListSteps(ctx context.Context) (*StepList, error) {
	var steps StepList
	if err := c.invoke(ctx, "ListSteps", map[string]interface{}{}, &steps); err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	return &steps, nil
}

func (c *NavigatorGRPCClient) invoke(ctx context.Context, method string, fields map[string]interface{}, out interface{}) error {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, navigatorService+method, req, resp); err != nil {
		return err
	}

	data, err := protojson.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// internal/services/services_test.go
package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/fifo-inventory/internal/config"
	"github.com/javajoker/fifo-inventory/internal/inventory"
	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/simulator"
	"github.com/javajoker/fifo-inventory/internal/store"
	"github.com/javajoker/fifo-inventory/internal/utils"
)

type fakeS3 struct {
	s3iface.S3API
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = input
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func rawEvent(productID, eventType string, quantity int64, price int64) models.RawEvent {
	raw := models.RawEvent{
		ProductID: productID,
		EventType: eventType,
		Quantity:  &quantity,
	}
	if price > 0 {
		p := decimal.NewFromInt(price)
		raw.UnitPrice = &p
	}
	return raw
}

func newTestEngine(t *testing.T, events ...models.RawEvent) *inventory.Engine {
	t.Helper()
	engine, err := inventory.NewEngine(context.Background(), store.NewMemoryStore())
	require.NoError(t, err)
	for _, ev := range events {
		_, err := engine.Apply(context.Background(), ev)
		require.NoError(t, err)
	}
	return engine
}

func TestValuation(t *testing.T) {
	engine := newTestEngine(t,
		rawEvent("PRD002", "purchase", 50, 130),
		rawEvent("PRD001", "purchase", 100, 80),
		rawEvent("PRD001", "purchase", 100, 90),
		rawEvent("PRD001", "sale", 150, 0),
		rawEvent("PRD002", "sale", 50, 0),
	)
	reports := NewReportService(engine, nil, "reports")

	report, err := reports.Valuation(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Lines, 2)

	assert.Equal(t, "PRD001", report.Lines[0].ProductID)
	assert.Equal(t, int64(50), report.Lines[0].Quantity)
	assert.True(t, report.Lines[0].TotalCost.Equal(decimal.NewFromInt(4500)))
	assert.Equal(t, 1, report.Lines[0].OpenBatches)
	assert.True(t, report.Lines[0].OldestBatchCost.Equal(decimal.NewFromInt(90)))

	assert.Equal(t, "PRD002", report.Lines[1].ProductID)
	assert.Equal(t, int64(0), report.Lines[1].Quantity)
	assert.Equal(t, 0, report.Lines[1].OpenBatches)
	assert.Nil(t, report.Lines[1].OldestBatchAt)

	assert.Equal(t, int64(50), report.TotalQuantity)
	assert.True(t, report.TotalValue.Equal(decimal.NewFromInt(4500)))
}

func TestExportUploadsCSV(t *testing.T) {
	engine := newTestEngine(t, rawEvent("PRD003", "purchase", 75, 45))
	client := &fakeS3{}
	reports := NewReportService(engine, NewStorageServiceWithClient(client, "inventory-reports", "us-east-1"), "reports")
	reports.now = func() time.Time { return time.Date(2025, 1, 26, 10, 0, 0, 0, time.UTC) }

	result, err := reports.Export(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "reports/valuation-20250126T100000Z.csv", result.Key)
	assert.Equal(t, "https://inventory-reports.s3.us-east-1.amazonaws.com/reports/valuation-20250126T100000Z.csv", result.URL)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, int64(len(client.body)), result.Size)

	require.NotNil(t, client.input)
	assert.Equal(t, "inventory-reports", aws.StringValue(client.input.Bucket))
	assert.Equal(t, "text/csv", aws.StringValue(client.input.ContentType))
	assert.Equal(t, utils.HashBytes(client.body), aws.StringValue(client.input.Metadata["sha256"]))
	assert.Contains(t, string(client.body), "PRD003,75,3375.00,45.00,1,45.00,")
}

func TestExportErrors(t *testing.T) {
	engine := newTestEngine(t)

	_, err := NewReportService(engine, nil, "reports").Export(context.Background())
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	disabled, err := NewStorageService(config.AWSConfig{})
	require.NoError(t, err)
	assert.False(t, disabled.Enabled())
	_, err = NewReportService(engine, disabled, "reports").Export(context.Background())
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	denied := errors.New("access denied")
	storage := NewStorageServiceWithClient(&fakeS3{err: denied}, "bucket", "us-east-1")
	_, err = NewReportService(engine, storage, "reports").Export(context.Background())
	assert.ErrorIs(t, err, denied)
}

func TestAuthLogin(t *testing.T) {
	auth, err := NewAuthService(config.AuthConfig{
		Username:  "operator",
		Password:  "s3cret-pass",
		JWTSecret: "test-secret",
		TokenTTL:  2,
	})
	require.NoError(t, err)

	resp, err := auth.Login(&LoginRequest{Username: "operator", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 7200, resp.ExpiresIn)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Username)
	assert.Equal(t, OperatorRole, claims.Role)

	_, err = auth.Login(&LoginRequest{Username: "operator", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(&LoginRequest{Username: "someone", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthAcceptsBcryptHash(t *testing.T) {
	hash, err := utils.HashPassword("hashed-pass")
	require.NoError(t, err)

	auth, err := NewAuthService(config.AuthConfig{
		Username:  "operator",
		Password:  hash,
		JWTSecret: "test-secret",
	})
	require.NoError(t, err)

	_, err = auth.Login(&LoginRequest{Username: "operator", Password: "hashed-pass"})
	assert.NoError(t, err)
}

func TestSimulate(t *testing.T) {
	engine := newTestEngine(t)
	for _, id := range simulator.DefaultProducts {
		_, err := engine.Apply(context.Background(), rawEvent(id, "purchase", 1000, 100))
		require.NoError(t, err)
	}

	sims := NewSimulationService(simulator.NewGenerator(nil, 7), engine)
	for i := 0; i < 10; i++ {
		raw, result, err := sims.Simulate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, raw.ProductID, result.Transaction.ProductID)
		assert.Equal(t, *raw.Quantity, result.Transaction.Quantity)
	}
}

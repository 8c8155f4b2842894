package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

func createTestOpportunity() types.Opportunity {
	return types.Opportunity{
		ID:             "test-opp-123",
		Market:         "market-123",
		UpToken:        "test-up-token-123",
		DownToken:      "test-down-token-123",
		UpAvgPrice:     0.48,
		DownAvgPrice:   0.51,
		Pairs:          100.0,
		PerPairProfit:  0.01,
		FeeRateAssumed: 0.01,
		DetectedAt:     time.Now(),
	}
}

func TestConsoleStorage_New(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	storage := NewConsoleStorage(logger)

	if storage == nil {
		t.Fatal("expected non-nil storage")
	}

	if storage.logger == nil {
		t.Error("expected non-nil logger")
	}
}

func TestConsoleStorage_StoreOpportunity(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	opp := createTestOpportunity()
	ctx := context.Background()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := storage.StoreOpportunity(ctx, opp)

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r) //nolint:errcheck // test capture
	output := buf.String()

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("ARBITRAGE OPPORTUNITY DETECTED")) {
		t.Error("expected output to contain 'ARBITRAGE OPPORTUNITY DETECTED'")
	}

	if !bytes.Contains([]byte(output), []byte(opp.Market)) {
		t.Errorf("expected output to contain market ID %s", opp.Market)
	}

	if !bytes.Contains([]byte(output), []byte(opp.ID)) {
		t.Errorf("expected output to contain opportunity ID %s", opp.ID)
	}
}

func TestConsoleStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	err := storage.Close()
	if err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
}

func TestPostgresStorage_StoreOpportunity(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	opp := createTestOpportunity()
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO arbitrage_opportunities").
		WithArgs(
			opp.ID,
			string(opp.Market),
			string(opp.UpToken),
			string(opp.DownToken),
			opp.UpAvgPrice,
			opp.DownAvgPrice,
			opp.Pairs,
			opp.PerPairProfit,
			opp.FeeRateAssumed,
			sqlmock.AnyArg(), // DetectedAt (time.Time is tricky)
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = storage.StoreOpportunity(ctx, opp)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_StoreOpportunity_Error(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	opp := createTestOpportunity()
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO arbitrage_opportunities").
		WithArgs(
			opp.ID,
			string(opp.Market),
			string(opp.UpToken),
			string(opp.DownToken),
			opp.UpAvgPrice,
			opp.DownAvgPrice,
			opp.Pairs,
			opp.PerPairProfit,
			opp.FeeRateAssumed,
			sqlmock.AnyArg(),
		).
		WillReturnError(sqlmock.ErrCancelled)

	err = storage.StoreOpportunity(ctx, opp)
	if err == nil {
		t.Error("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	mock.ExpectClose()

	err = storage.Close()
	if err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNewPostgresStorage_ConnectionSuccess(t *testing.T) {
	t.Skip("Requires actual PostgreSQL database")

	logger, _ := zap.NewDevelopment()

	cfg := &PostgresConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "test",
		Password: "test",
		Database: "test_db",
		SSLMode:  "disable",
		Logger:   logger,
	}

	storage, err := NewPostgresStorage(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if storage == nil {
		t.Fatal("expected non-nil storage")
	}

	if storage.db == nil {
		t.Error("expected non-nil database connection")
	}

	if storage.logger == nil {
		t.Error("expected non-nil logger")
	}

	storage.Close()
}

func TestPostgresStorage_QueryStructure(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	opp := createTestOpportunity()
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO arbitrage_opportunities").
		WithArgs(
			sqlmock.AnyArg(), // 1: ID
			sqlmock.AnyArg(), // 2: Market
			sqlmock.AnyArg(), // 3: UpToken
			sqlmock.AnyArg(), // 4: DownToken
			sqlmock.AnyArg(), // 5: UpAvgPrice
			sqlmock.AnyArg(), // 6: DownAvgPrice
			sqlmock.AnyArg(), // 7: Pairs
			sqlmock.AnyArg(), // 8: PerPairProfit
			sqlmock.AnyArg(), // 9: FeeRateAssumed
			sqlmock.AnyArg(), // 10: DetectedAt
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = storage.StoreOpportunity(ctx, opp)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStorage_Interface(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	var _ Storage = NewConsoleStorage(logger)

	db, _, _ := sqlmock.New()
	defer db.Close()

	var _ Storage = &PostgresStorage{db: db, logger: logger}
}

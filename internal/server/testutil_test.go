package server

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/luchenqun/lucky-dog/internal/config"
	"github.com/luchenqun/lucky-dog/internal/database"
	"github.com/luchenqun/lucky-dog/internal/wallet"
)

func testDescriptor() *wallet.Descriptor {
	pub := make([]byte, 65)
	pub[0] = 0x04
	return &wallet.Descriptor{
		Salt:                  []byte("0123456789abcdef"),
		DerivationIterations:  1000,
		EncryptedMasterKey:    make([]byte, 32),
		EncryptedPrivateKey:   make([]byte, 32),
		UncompressedPublicKey: pub,
	}
}

func newTestServer(t *testing.T) (*Server, *sql.DB) {
	t.Helper()

	db, err := database.InitDB(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dbName := filepath.Join(t.TempDir(), "lucky.db")
	cfg := &config.Config{DBName: dbName}

	s, err := New(cfg, db, testDescriptor())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	s.RegisterRoutes()
	return s, db
}

func newSampleTestServer(t *testing.T) (*Server, *sql.DB) {
	t.Helper()

	db, err := database.InitDB(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dbName := filepath.Join(t.TempDir(), config.SampleDBName)
	cfg := &config.Config{DBName: dbName, APIToken: "test-token"}

	s, err := New(cfg, db, testDescriptor())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	s.RegisterRoutes()
	return s, db
}
